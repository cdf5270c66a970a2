// Package main provides the entry point for instancestate-cli.
//
// The CLI talks to a running instancestate-server:
//
//   - get, set and remove over the message transport
//   - status, snapshot, persist, loglevel and shutdown over the local socket
//   - health and version over the admin HTTP API
//
// encode and decode work offline on request buffers.
//
// Usage:
//
//	instancestate-cli [global flags] <command> [args]
//	instancestate-cli get session-cache -o json
//	instancestate-cli --ack set counter --hex 2a00
package main
