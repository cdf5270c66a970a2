// Package codec implements the binary encoding of state operations.
//
// The encoding is asymmetric. A request carries kind, key and optional data:
//
//	kind        (1 byte: 0=get, 1=set, 2=remove)
//	key length  (1 byte)
//	key         (key length bytes, utf-8)
//	padding     (zero bytes up to the next 8-byte offset, only with data)
//	data        (remaining bytes)
//
// A reply carries only the data. Because the data segment of a request starts
// on an 8-byte boundary, a reply is byte-identical to the tail of the request
// that carried the same data.
//
// All functions are pure and safe for concurrent use.
package codec
