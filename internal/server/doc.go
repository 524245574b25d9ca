// Package server provides the HTTP API for projecthub.
//
// This package is internal to projecthub and handles all HTTP concerns:
//
//   - REST API: project CRUD and refresh under "/api/projects"
//   - Bulk refresh: "/api/refresh"
//   - Server-Sent Events: full project list on every change at "/api/sse"
//   - Liveness: "/healthz"
//
// Domain errors map to status codes: validation failures to 400, unknown
// projects to 404, everything else to 500.
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests. It is started by
// [projecthub.Hub.Run] when a port is configured.
package server
