// Package http provides HTTP handlers for the Fileglancer REST API.
//
// This package implements all HTTP endpoints using the Gin framework,
// covering file browsing and streaming, data links, preferences,
// Neuroglancer short links, SSH keys, and app job execution.
//
// Endpoints:
//   - Health: / and /health, Prometheus metrics at /metrics
//   - Shares: /api/file-share-paths, /api/external-buckets
//   - Files: /api/files/:fsp, /api/content/:fsp/*path
//   - Zarr: /api/zarr/:fsp/*path, /api/ozx/:fsp/*path
//   - Data links: /api/proxied-path, public access at /files/:key
//   - Preferences: /api/preference/:key
//   - Neuroglancer: /api/neuroglancer/*
//   - SSH keys: /api/ssh/keys
//   - Apps and jobs: /api/apps/manifest, /api/jobs
//
// All errors use the JSON envelope {"error": message} with a matching
// HTTP status code.
package http
