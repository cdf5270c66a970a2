// Package msgserver serves state requests over a stream socket.
//
// Each connection carries a sequence of frames (see package frame). A data
// or null frame holds one request buffer for the dispatcher; the server
// answers with a frame only when the request produces a reply:
//
//   - Get: always, a data frame with the value or a null frame for no value
//   - Set, Remove: only when mutations are acknowledged, a null frame
//   - errors: an error frame, when the client is waiting for an answer
//
// Connections are served one goroutine each and tracked in a sharded
// registry keyed by ULID. Each connection has its own token-bucket limiter.
package msgserver
