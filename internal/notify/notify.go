// Package notify serves operator-maintained notifications from a YAML
// file or a central notification service.
package notify

import (
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-yaml"

	"github.com/JaneliaSciComp/fileglancer-server/internal/logging"
	"github.com/JaneliaSciComp/fileglancer-server/internal/model"
	"go.uber.org/zap"
)

type notificationsFile struct {
	Notifications []rawNotification `yaml:"notifications"`
}

type rawNotification struct {
	ID        string `yaml:"id"`
	Type      string `yaml:"type"`
	Title     string `yaml:"title"`
	Message   string `yaml:"message"`
	Active    *bool  `yaml:"active"`
	CreatedAt string `yaml:"created_at"`
	ExpiresAt string `yaml:"expires_at"`
}

// Source reads notifications from a YAML file or a central HTTP
// endpoint on every request so operators can edit the source without a
// restart. When both are configured the URL wins.
type Source struct {
	path   string
	url    string
	client *resty.Client
	log    *logging.Logger
}

// NewSource creates a notification source. Empty path and url disable
// it.
func NewSource(path, url string, log *logging.Logger) *Source {
	s := &Source{path: path, url: url, log: log}
	if url != "" {
		s.client = resty.New().
			SetTimeout(10 * time.Second).
			SetRetryCount(2)
	}
	return s
}

// Active returns the notifications that are marked active and not yet
// expired. A missing file yields an empty list. Malformed entries are
// skipped.
func (s *Source) Active() ([]model.Notification, error) {
	data, err := s.load()
	if err != nil {
		return nil, err
	}
	if data == nil {
		return []model.Notification{}, nil
	}

	var file notificationsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	out := make([]model.Notification, 0, len(file.Notifications))
	for _, raw := range file.Notifications {
		n, ok := s.convert(raw)
		if !ok {
			continue
		}
		if !n.Active {
			continue
		}
		if n.ExpiresAt != nil && n.ExpiresAt.Before(now) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// load fetches the raw YAML document. A nil slice with a nil error
// means no source is configured or the file does not exist yet.
func (s *Source) load() ([]byte, error) {
	if s.url != "" {
		resp, err := s.client.R().Get(s.url)
		if err != nil {
			return nil, fmt.Errorf("fetching notifications: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("fetching notifications: %s returned %s", s.url, resp.Status())
		}
		return resp.Body(), nil
	}
	if s.path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Source) convert(raw rawNotification) (model.Notification, bool) {
	if raw.ID == "" || raw.Message == "" {
		s.log.Debug("skipping notification without id or message")
		return model.Notification{}, false
	}
	n := model.Notification{
		ID:      raw.ID,
		Type:    raw.Type,
		Title:   raw.Title,
		Message: raw.Message,
		Active:  raw.Active == nil || *raw.Active,
	}
	if raw.Type == "" {
		n.Type = "info"
	}
	if t, ok := s.parseTime(raw.ID, raw.CreatedAt); ok {
		n.CreatedAt = t
	}
	if t, ok := s.parseTime(raw.ID, raw.ExpiresAt); ok {
		n.ExpiresAt = t
	}
	return n, true
}

// parseTime accepts RFC 3339 timestamps with or without the Z suffix.
func (s *Source) parseTime(id, value string) (*time.Time, bool) {
	if value == "" {
		return nil, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			utc := t.UTC()
			return &utc, true
		}
	}
	s.log.Debug("skipping unparseable notification timestamp",
		zap.String("id", id), zap.String("value", value))
	return nil, false
}
