package model

import "time"

// JobStatus is the lifecycle state of a submitted job.
type JobStatus string

const (
	JobPending JobStatus = "PENDING"
	JobRunning JobStatus = "RUNNING"
	JobDone    JobStatus = "DONE"
	JobFailed  JobStatus = "FAILED"
	JobKilled  JobStatus = "KILLED"
)

// Terminal reports whether the status is a final state.
func (s JobStatus) Terminal() bool {
	return s == JobDone || s == JobFailed || s == JobKilled
}

// Job is one submitted run of an app entry point.
type Job struct {
	ID           string            `json:"id"`
	Username     string            `json:"username"`
	AppURL       string            `json:"app_url"`
	AppName      string            `json:"app_name"`
	EntryPointID string            `json:"entry_point_id"`
	Parameters   map[string]string `json:"parameters"`
	Status       JobStatus         `json:"status"`
	ExitCode     *int              `json:"exit_code,omitempty"`
	ClusterJobID string            `json:"cluster_job_id,omitempty"`
	WorkDir      string            `json:"work_dir,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	StartedAt    *time.Time        `json:"started_at,omitempty"`
	FinishedAt   *time.Time        `json:"finished_at,omitempty"`
}
