// Package frame delimits message buffers on a byte stream.
//
// Wire format:
//
//	[Flag:1][Length:4][Payload:Length]
//
// Where:
//   - Flag is FlagNull, FlagData or FlagError
//   - Length is a big-endian uint32 and is zero for FlagNull
//   - an error payload is "code\x00message"
//
// FlagNull and a FlagData frame of length zero are different things: the
// first carries no buffer at all, the second an empty one.
package frame
