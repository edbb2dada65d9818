package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// File serving metrics
	FilesServed   *prometheus.CounterVec
	BytesStreamed prometheus.Counter
	RangeRequests prometheus.Counter

	// Job metrics
	JobsSubmitted prometheus.Counter
	JobsFinished  *prometheus.CounterVec
	JobsActive    prometheus.Gauge

	// Data link metrics
	ProxiedFetches prometheus.Counter
	LinksShortened prometheus.Counter

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileglancer_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fileglancer_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		ResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fileglancer_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000, 100000000},
			},
			[]string{"method", "route"},
		),

		FilesServed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileglancer_files_served_total",
				Help: "Total number of file content responses by share",
			},
			[]string{"fsp"},
		),
		BytesStreamed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fileglancer_bytes_streamed_total",
				Help: "Total bytes of file content streamed to clients",
			},
		),
		RangeRequests: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fileglancer_range_requests_total",
				Help: "Total number of byte-range content requests",
			},
		),

		JobsSubmitted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fileglancer_jobs_submitted_total",
				Help: "Total number of submitted jobs",
			},
		),
		JobsFinished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileglancer_jobs_finished_total",
				Help: "Total number of finished jobs by final status",
			},
			[]string{"status"},
		),
		JobsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "fileglancer_jobs_active",
				Help: "Number of jobs currently pending or running",
			},
		),

		ProxiedFetches: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fileglancer_proxied_fetches_total",
				Help: "Total number of public data link fetches",
			},
		),
		LinksShortened: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fileglancer_links_shortened_total",
				Help: "Total number of neuroglancer links shortened",
			},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "fileglancer_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}

	go m.updateUptime()
	return m
}

func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records metrics for one HTTP request
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, route, status).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
	if respSize > 0 {
		m.ResponseSize.WithLabelValues(method, route).Observe(float64(respSize))
	}
}

// RecordFileServed records one content response for a share
func (m *Metrics) RecordFileServed(fsp string, bytes int64) {
	m.FilesServed.WithLabelValues(fsp).Inc()
	if bytes > 0 {
		m.BytesStreamed.Add(float64(bytes))
	}
}

// RecordJobFinished records a job reaching a terminal status
func (m *Metrics) RecordJobFinished(status string) {
	m.JobsFinished.WithLabelValues(status).Inc()
	m.JobsActive.Dec()
}

// RecordJobSubmitted records a new job submission
func (m *Metrics) RecordJobSubmitted() {
	m.JobsSubmitted.Inc()
	m.JobsActive.Inc()
}
