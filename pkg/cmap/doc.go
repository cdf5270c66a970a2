// Package cmap provides a concurrent-safe sharded map.
//
// Keys are spread over a power-of-two number of shards by their murmur3
// hash; each shard has its own RWMutex. The message server uses it as its
// live connection registry.
//
// Usage:
//
//	m := cmap.New[string, *Conn]()
//	m.Set(id, conn)
//	conn, ok := m.Pop(id)
package cmap
