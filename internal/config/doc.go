// Package config provides 12-factor configuration management for the
// fileglancer server.
//
// Configuration is loaded from FG_* environment variables with sensible
// defaults. File share paths and external buckets come from an optional
// TOML file. CLI flags can override environment variables for
// development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host, base URL)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Database: SQLite database location
//   - Shares: File share registry source and home share toggle
//   - Proxy: External URL for shared data links
//   - Neuroglancer: Viewer base URL for shortened links
//   - SSH: Managed SSH key directory
//   - Apps: Job runner working directory and zombie timeout
//   - Notifications: Notification YAML file or central service URL
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - FG_PORT, FG_HOST, FG_BASE_URL
//   - FG_LOG_LEVEL, FG_LOG_DEV
//   - FG_RATE_LIMIT_RPS, FG_RATE_LIMIT_BURST
//   - FG_DB_PATH, FG_SHARES_FILE, FG_HOME_SHARE
//   - FG_PROXY_URL, FG_NEUROGLANCER_URL
//   - FG_SSH_ENABLED, FG_SSH_DIR
//   - FG_APPS_ENABLED, FG_APPS_DIR
//   - FG_NOTIFICATIONS_FILE, FG_NOTIFICATIONS_URL
package config
