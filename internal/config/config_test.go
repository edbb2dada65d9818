package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7878", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "~/.fileglancer/fileglancer.db", cfg.Database.Path)
	assert.True(t, cfg.Shares.HomeShare)
	assert.False(t, cfg.SSH.Enabled)
	assert.False(t, cfg.Apps.Enabled)
	assert.Equal(t, 10, cfg.Apps.ZombieTimeoutMinutes)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("FG_PORT", "9900")
	t.Setenv("FG_LOG_LEVEL", "debug")
	t.Setenv("FG_HOME_SHARE", "false")
	t.Setenv("FG_APPS_ENABLED", "true")
	t.Setenv("FG_PROXY_URL", "https://proxy.example.org")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9900", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Shares.HomeShare)
	assert.True(t, cfg.Apps.Enabled)
	assert.Equal(t, "https://proxy.example.org", cfg.Proxy.ExternalURL)

	// Unset values keep their defaults.
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadOrDefault(t *testing.T) {
	cfg := LoadOrDefault()
	assert.NotNil(t, cfg)
	assert.Equal(t, "7878", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shares.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[shares]]
name = "primary"
zone = "Janelia"
mount_path = "/groups/lab/data"
windows_path = '\\server\lab\data'

[[shares]]
mount_path = "/nrs/scratch"

[[external_buckets]]
fsp_name = "primary"
full_path = "/groups/lab/data/public"
external_url = "https://s3.example.org/lab-public"
`), 0644))

	fc, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, fc.Shares, 2)
	assert.Equal(t, "primary", fc.Shares[0].Name)
	assert.Equal(t, `\\server\lab\data`, fc.Shares[0].WindowsPath)
	assert.Empty(t, fc.Shares[1].Name)
	require.Len(t, fc.ExternalBuckets, 1)
	assert.Equal(t, "https://s3.example.org/lab-public", fc.ExternalBuckets[0].ExternalURL)
}

func TestLoadFileOrEmpty(t *testing.T) {
	fc, err := LoadFileOrEmpty("")
	require.NoError(t, err)
	assert.Empty(t, fc.Shares)

	fc, err = LoadFileOrEmpty(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Empty(t, fc.Shares)

	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("not toml ["), 0644))
	_, err = LoadFileOrEmpty(bad)
	assert.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, filepath.Join(home, ".ssh"), ExpandHome("~/.ssh"))
	assert.Equal(t, "/abs/path", ExpandHome("/abs/path"))
	assert.True(t, strings.HasPrefix(ExpandHome("~/x"), home))
}
