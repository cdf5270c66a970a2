package domain

import (
	"bytes"
	"fmt"
	"strings"
)

// MaxKeyLength is the maximum UTF-8 length of a key (single-byte length prefix).
const MaxKeyLength = 255

// Kind identifies the type of a state operation. Wire values are stable.
type Kind uint8

const (
	KindGet    Kind = 0
	KindSet    Kind = 1
	KindRemove Kind = 2
)

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindGet, KindSet, KindRemove:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	switch k {
	case KindGet:
		return "get"
	case KindSet:
		return "set"
	case KindRemove:
		return "remove"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind parses a kind name as printed by Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "get":
		return KindGet, nil
	case "set":
		return KindSet, nil
	case "remove", "rm", "delete", "del":
		return KindRemove, nil
	default:
		return 0, ErrUnknownOperationKind.WithDetails(s)
	}
}

// Operation is one decoded request or reply.
//
// A nil Data means the value is absent. A non-nil zero-length Data is an
// empty value; the two are never conflated.
type Operation struct {
	Kind Kind
	Key  string
	Data []byte
}

// NewGet creates a Get request for key.
func NewGet(key string) *Operation {
	return &Operation{Kind: KindGet, Key: key}
}

// NewSet creates a Set request. data must be non-nil to be valid on the wire.
func NewSet(key string, data []byte) *Operation {
	return &Operation{Kind: KindSet, Key: key, Data: data}
}

// NewRemove creates a Remove request for key.
func NewRemove(key string) *Operation {
	return &Operation{Kind: KindRemove, Key: key}
}

// NewGetReply creates the reply to a Get. A nil data answers "no value".
func NewGetReply(key string, data []byte) *Operation {
	return &Operation{Kind: KindGet, Key: key, Data: data}
}

// HasData reports whether the operation carries a value (possibly empty).
func (o *Operation) HasData() bool {
	return o != nil && o.Data != nil
}

// Clone returns a deep copy that shares no memory with o.
func (o *Operation) Clone() *Operation {
	if o == nil {
		return nil
	}
	return &Operation{
		Kind: o.Kind,
		Key:  o.Key,
		Data: CloneBytes(o.Data),
	}
}

// Equal compares two operations including the absent/empty distinction.
func (o *Operation) Equal(other *Operation) bool {
	if o == nil || other == nil {
		return o == other
	}
	if o.Kind != other.Kind || o.Key != other.Key {
		return false
	}
	if (o.Data == nil) != (other.Data == nil) {
		return false
	}
	return bytes.Equal(o.Data, other.Data)
}

func (o *Operation) String() string {
	if o == nil {
		return "<nil>"
	}
	if o.Data == nil {
		return fmt.Sprintf("%s(%q)", o.Kind, o.Key)
	}
	return fmt.Sprintf("%s(%q, %d bytes)", o.Kind, o.Key, len(o.Data))
}

// CloneBytes copies b, keeping nil as nil and empty as non-nil empty.
func CloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// CloneState deep-copies a key/value mapping. A nil input yields an empty map.
func CloneState(m map[string][]byte) map[string][]byte {
	out := make(map[string][]byte, len(m))
	for k, v := range m {
		if v == nil {
			v = []byte{}
		}
		out[k] = CloneBytes(v)
	}
	return out
}
