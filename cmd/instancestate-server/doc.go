// Package main provides the entry point for instancestate-server.
//
// The server hosts one instance-state mediator and exposes it through:
//
//   - the framed message transport (tcp or unix) carrying encoded requests
//   - an admin HTTP API with health, readiness, metrics and state status
//   - a local Unix socket for management commands
//
// At startup the previous instance's state is loaded from the configured
// backend and installed as the restore store. At shutdown the save store is
// persisted for the next instance.
//
// Usage:
//
//	instancestate-server [flags]
//	instancestate-server --config /etc/instancestate-server/config.yaml
package main
