// Package handler provides the admin HTTP endpoints for instance-state.
//
// Routes:
//
//	GET  /health            liveness
//	GET  /ready             503 until the restore store is installed
//	GET  /metrics           Prometheus exposition
//	GET  /v1/version        build information
//	GET  /v1/state          store sizes and persistence backend
//	GET  /v1/state/save     save store snapshot, values base64
//	POST /v1/state/persist  write the save store to the backend now
package handler
