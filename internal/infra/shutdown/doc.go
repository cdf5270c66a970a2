// Package shutdown provides graceful shutdown for instance-state.
//
// Shutdown starts on SIGINT, SIGTERM or an explicit Trigger (the local
// management "shutdown" command). Registered hooks then run in reverse
// order under one timeout.
//
// Usage:
//
//	h := shutdown.NewHandler(30 * time.Second)
//	h.OnShutdown(srv.Shutdown)
//	err := h.Wait()
package shutdown
