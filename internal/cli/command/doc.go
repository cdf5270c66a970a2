// Package command provides the instancestate-cli commands.
//
//   - root.go: application, global flags, config file defaults
//   - state.go: get, set and remove over the message transport
//   - codec.go: offline encode and decode of request buffers
//   - admin.go: status, snapshot, persist, loglevel and shutdown over the
//     local socket; health and version over admin HTTP
package command
