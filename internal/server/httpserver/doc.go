// Package httpserver provides the admin HTTP server for instance-state.
//
// Routing uses chi; the endpoints live in the handler subpackage. Middleware
// stack: RealIP, RequestID (ULID), Recover, per-IP RateLimit and Audit.
package httpserver
