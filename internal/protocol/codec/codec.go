package codec

import (
	"fmt"
	"unicode/utf8"

	"github.com/evant/instance-state/internal/core/domain"
)

// Layout constants.
const (
	// HeaderSize is kind (1) + key length (1).
	HeaderSize = 2

	// Alignment is the boundary the data segment of a request starts on.
	Alignment = 8

	// MaxKeyLength is the largest key length the single-byte prefix can carry.
	MaxKeyLength = domain.MaxKeyLength
)

// Padding returns the number of zero bytes needed after position pos so the
// next byte lands on an Alignment boundary.
func Padding(pos int) int {
	return (Alignment - pos%Alignment) % Alignment
}

// DataOffset returns where the data segment starts for a key of keyLen bytes.
func DataOffset(keyLen int) int {
	pos := HeaderSize + keyLen
	return pos + Padding(pos)
}

// Encode encodes a request operation.
//
// Layout: [kind:1][keyLen:1][key][zero padding to 8][data]. Padding and data
// are written only when data is present; a zero-length data segment is still
// preceded by its padding. A nil operation encodes to a nil buffer.
func Encode(op *domain.Operation) ([]byte, error) {
	if op == nil {
		return nil, nil
	}
	if !op.Kind.Valid() {
		return nil, domain.ErrUnknownOperationKind.WithDetails(fmt.Sprintf("kind %d", uint8(op.Kind)))
	}
	if len(op.Key) > MaxKeyLength {
		return nil, domain.ErrKeyTooLong.WithDetails(fmt.Sprintf("%d bytes", len(op.Key)))
	}
	if !utf8.ValidString(op.Key) {
		return nil, domain.ErrMalformedMessage.WithDetails("key is not valid utf-8")
	}

	size := HeaderSize + len(op.Key)
	if op.Data != nil {
		size = DataOffset(len(op.Key)) + len(op.Data)
	}

	out := make([]byte, size)
	out[0] = byte(op.Kind)
	out[1] = byte(len(op.Key))
	n := HeaderSize + copy(out[HeaderSize:], op.Key)
	if op.Data != nil {
		// make() zeroed the padding already.
		copy(out[n+Padding(n):], op.Data)
	}
	return out, nil
}

// EncodeReply encodes the reply side: the data bytes only.
//
// Absent data (or a nil operation) yields nil, the "no value" sentinel.
// Present data yields a non-nil slice, even when it is empty.
func EncodeReply(op *domain.Operation) []byte {
	if op == nil || op.Data == nil {
		return nil
	}
	return domain.CloneBytes(op.Data)
}

// Decode decodes a request buffer.
//
// A nil or empty buffer means "no message" and yields a nil operation with no
// error. The returned data never aliases buf.
func Decode(buf []byte) (*domain.Operation, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	if len(buf) < HeaderSize {
		return nil, domain.ErrMalformedMessage.WithDetails("buffer shorter than header")
	}

	kind := domain.Kind(buf[0])
	if !kind.Valid() {
		return nil, domain.ErrUnknownOperationKind.WithDetails(fmt.Sprintf("kind %d", buf[0]))
	}

	keyLen := int(buf[1])
	pos := HeaderSize
	if keyLen > len(buf)-pos {
		return nil, domain.ErrMalformedMessage.WithDetails(
			fmt.Sprintf("key length %d exceeds remaining %d bytes", keyLen, len(buf)-pos))
	}
	keyBytes := buf[pos : pos+keyLen]
	if !utf8.Valid(keyBytes) {
		return nil, domain.ErrMalformedMessage.WithDetails("key is not valid utf-8")
	}
	pos += keyLen

	op := &domain.Operation{
		Kind: kind,
		Key:  string(keyBytes),
	}

	if pos == len(buf) {
		// An empty Set whose key ends on an alignment boundary has neither
		// padding nor data, so its encoding is header-only. Set always
		// carries data; header-only Set at a boundary is the empty value.
		if kind == domain.KindSet && Padding(pos) == 0 {
			op.Data = []byte{}
		}
		return op, nil
	}

	// Data is aligned so replies can carry it without the header.
	pad := Padding(pos)
	if pad > len(buf)-pos {
		return nil, domain.ErrMalformedMessage.WithDetails(
			fmt.Sprintf("need %d padding bytes, have %d", pad, len(buf)-pos))
	}
	pos += pad

	op.Data = make([]byte, len(buf)-pos)
	copy(op.Data, buf[pos:])
	return op, nil
}

// DecodeReply decodes a reply buffer into its data.
//
// nil stays nil (no value); a non-nil buffer, even an empty one, is a value.
func DecodeReply(buf []byte) []byte {
	return domain.CloneBytes(buf)
}
