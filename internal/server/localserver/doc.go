// Package localserver provides the local management socket.
//
// The server listens on a Unix domain socket restricted to its owner and
// reads one command per line:
//
//	status             store sizes, backend, connections, uptime
//	snapshot           the save store (values base64)
//	persist            write the save store to the backend now
//	loglevel [level]   read or change the log level
//	shutdown           start a graceful shutdown
//
// Each command is answered with one JSON line: {"ok":true,"data":...} or
// {"ok":false,"error":{"code":...,"message":...}}.
package localserver
