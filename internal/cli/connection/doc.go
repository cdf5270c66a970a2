// Package connection provides the clients used by instancestate-cli.
//
//   - MessageClient: framed get/set/remove against the message transport
//   - SocketClient: line commands on the local management socket
//   - HTTPClient: read-only admin HTTP endpoints
package connection
