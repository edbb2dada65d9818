package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig
	Logging       LogConfig
	RateLimit     RateLimitConfig
	Database      DatabaseConfig
	Shares        SharesConfig
	Proxy         ProxyConfig
	Neuroglancer  NeuroglancerConfig
	SSH           SSHConfig
	Apps          AppsConfig
	Notifications NotificationsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"FG_PORT" default:"7878"`
	Host string `envconfig:"FG_HOST" default:"0.0.0.0"`
	// BaseURL is the externally visible URL of this server, used when
	// building state and viewer URLs.
	BaseURL string `envconfig:"FG_BASE_URL" default:"http://localhost:7878"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"FG_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"FG_LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"FG_RATE_LIMIT_RPS" default:"200"`
	Burst             int  `envconfig:"FG_RATE_LIMIT_BURST" default:"400"`
	Enabled           bool `envconfig:"FG_RATE_LIMIT_ENABLED" default:"true"`
}

// DatabaseConfig holds SQLite store configuration.
type DatabaseConfig struct {
	Path string `envconfig:"FG_DB_PATH" default:"~/.fileglancer/fileglancer.db"`
}

// SharesConfig holds file share registry configuration.
type SharesConfig struct {
	// File points at the TOML mounts file. Empty means no configured
	// shares beyond the user's home directory.
	File string `envconfig:"FG_SHARES_FILE" default:""`
	// HomeShare controls whether the user's home directory is exposed
	// as an implicit share.
	HomeShare bool `envconfig:"FG_HOME_SHARE" default:"true"`
}

// ProxyConfig holds data link proxy configuration.
type ProxyConfig struct {
	// ExternalURL is the public base URL of the data proxy. Data link
	// URLs are only populated when it is set.
	ExternalURL string `envconfig:"FG_PROXY_URL" default:""`
}

// NeuroglancerConfig holds Neuroglancer link configuration.
type NeuroglancerConfig struct {
	URL string `envconfig:"FG_NEUROGLANCER_URL" default:"https://neuroglancer-demo.appspot.com"`
}

// SSHConfig holds SSH key management configuration.
type SSHConfig struct {
	Enabled bool   `envconfig:"FG_SSH_ENABLED" default:"false"`
	Dir     string `envconfig:"FG_SSH_DIR" default:"~/.ssh"`
}

// AppsConfig holds app and job execution configuration.
type AppsConfig struct {
	Enabled              bool   `envconfig:"FG_APPS_ENABLED" default:"false"`
	Dir                  string `envconfig:"FG_APPS_DIR" default:"~/.fileglancer"`
	ZombieTimeoutMinutes int    `envconfig:"FG_APPS_ZOMBIE_TIMEOUT" default:"10"`
}

// NotificationsConfig holds notification source configuration.
type NotificationsConfig struct {
	File string `envconfig:"FG_NOTIFICATIONS_FILE" default:""`
	URL  string `envconfig:"FG_NOTIFICATIONS_URL" default:""`
}

// Load loads configuration from FG_* environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:    "7878",
			Host:    "0.0.0.0",
			BaseURL: "http://localhost:7878",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 200,
			Burst:             400,
			Enabled:           true,
		},
		Database: DatabaseConfig{
			Path: "~/.fileglancer/fileglancer.db",
		},
		Shares: SharesConfig{
			HomeShare: true,
		},
		Neuroglancer: NeuroglancerConfig{
			URL: "https://neuroglancer-demo.appspot.com",
		},
		SSH: SSHConfig{
			Dir: "~/.ssh",
		},
		Apps: AppsConfig{
			Dir:                  "~/.fileglancer",
			ZombieTimeoutMinutes: 10,
		},
	}
}

// ExpandHome replaces a leading ~ with the current user's home directory.
func ExpandHome(path string) string {
	if path == "~" || len(path) >= 2 && path[0] == '~' && (path[1] == '/' || path[1] == filepath.Separator) {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
