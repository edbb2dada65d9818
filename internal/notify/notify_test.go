package notify

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JaneliaSciComp/fileglancer-server/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeNotifications(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notifications.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestActiveFiltersExpiredAndInactive(t *testing.T) {
	future := time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339)
	path := writeNotifications(t, `
notifications:
  - id: current
    type: warning
    title: Maintenance
    message: Scheduled downtime this weekend
    expires_at: "`+future+`"
  - id: expired
    message: Old news
    expires_at: "2020-01-01T00:00:00Z"
  - id: disabled
    message: Hidden
    active: false
  - id: ""
    message: No id, skipped
  - id: no-expiry
    message: Always on
`)

	src := NewSource(path, "", logging.NewDefault())
	active, err := src.Active()
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "current", active[0].ID)
	assert.Equal(t, "warning", active[0].Type)
	assert.Equal(t, "no-expiry", active[1].ID)
	assert.Equal(t, "info", active[1].Type)
}

func TestActiveTimestampWithoutZone(t *testing.T) {
	path := writeNotifications(t, `
notifications:
  - id: zoneless
    message: Still fine
    expires_at: "2099-06-01T12:00:00"
`)
	src := NewSource(path, "", logging.NewDefault())
	active, err := src.Active()
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.NotNil(t, active[0].ExpiresAt)
	assert.Equal(t, 2099, active[0].ExpiresAt.Year())
}

func TestActiveMissingFile(t *testing.T) {
	src := NewSource(filepath.Join(t.TempDir(), "absent.yaml"), "", logging.NewDefault())
	active, err := src.Active()
	require.NoError(t, err)
	assert.Empty(t, active)

	src = NewSource("", "", logging.NewDefault())
	active, err = src.Active()
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestActiveFromRemoteURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`
notifications:
  - id: central
    type: info
    message: Served from the notification service
`))
	}))
	defer srv.Close()

	src := NewSource("", srv.URL, logging.NewDefault())
	active, err := src.Active()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "central", active[0].ID)
}

func TestActiveRemoteURLError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := NewSource("", srv.URL, logging.NewDefault())
	_, err := src.Active()
	assert.Error(t, err)
}
