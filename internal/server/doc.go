// Package server implements the HTTP front of refgate.
//
// This package provides:
//   - Commit status lookups per project and stage
//   - Cache expiry, both on request and from signed GitHub tag pushes
//   - Recent deploy history listing
//   - Per-IP rate limiting and structured request logging
//
// The server integrates with other packages:
//   - internal/project: Project configuration
//   - internal/commitstatus: Status resolution and cache expiry
//   - internal/history: SQLite-based deploy history
//
// Security features:
//   - HMAC-SHA256 webhook signature verification
//   - Content-Type validation (application/json only)
//   - Payload size limits (1MB max)
//   - Project name and reference validation before any lookup
package server
