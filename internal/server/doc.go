// Package server provides HTTP server setup and initialization for the
// Fileglancer service.
//
// This package orchestrates all components:
//   - HTTP routing with Gin framework
//   - Middleware stack (CORS, rate limiting, metrics, recovery)
//   - Share registry and filestore access
//   - SQLite store for data links, preferences, viewer links, and jobs
//   - Optional SSH key management and local job execution
//
// Server Lifecycle:
//  1. Load configuration from environment/flags
//  2. Initialize logger (production or development)
//  3. Open the SQLite store and run migrations
//  4. Load the share registry from the TOML mounts file
//  5. Setup HTTP routes and middleware
//  6. Start background workers (job reconciler)
//  7. Start HTTP server
//  8. Graceful shutdown on signal
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg, log)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
