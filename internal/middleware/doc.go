// Package middleware provides HTTP middleware for the fileglancer server.
//
// Middleware stack includes:
//   - CORS: Cross-origin resource sharing for browser frontends
//   - RateLimit: Per-IP token bucket rate limiting
//
// Rate Limiting:
//   - Per-IP tracking with automatic cleanup of idle clients
//   - Token bucket algorithm
//   - Configurable RPS and burst capacity
//
// Example Usage:
//
//	router.Use(middleware.CORS())
//	router.Use(middleware.RateLimit(cfg.RateLimit))
package middleware
