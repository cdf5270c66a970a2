package bundle

import (
	"errors"
	"fmt"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

// Entry field numbers. The data block is a sequence of fieldEntry records,
// each an embedded message of key, value and present.
const (
	fieldEntry   protowire.Number = 1
	fieldKey     protowire.Number = 1
	fieldValue   protowire.Number = 2
	fieldPresent protowire.Number = 3
)

var errTruncated = errors.New("bundle: truncated entry block")

// encodeEntries serializes state in key order.
func encodeEntries(state map[string][]byte) []byte {
	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out, entry []byte
	for _, k := range keys {
		v := state[k]

		entry = entry[:0]
		entry = protowire.AppendTag(entry, fieldKey, protowire.BytesType)
		entry = protowire.AppendString(entry, k)
		if v != nil {
			entry = protowire.AppendTag(entry, fieldValue, protowire.BytesType)
			entry = protowire.AppendBytes(entry, v)
			entry = protowire.AppendTag(entry, fieldPresent, protowire.VarintType)
			entry = protowire.AppendVarint(entry, 1)
		}

		out = protowire.AppendTag(out, fieldEntry, protowire.BytesType)
		out = protowire.AppendBytes(out, entry)
	}
	return out
}

// decodeEntries parses a data block. Unknown fields are skipped.
func decodeEntries(b []byte) (map[string][]byte, error) {
	state := make(map[string][]byte)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("bundle: entry tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		if num != fieldEntry || typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, errTruncated
			}
			b = b[n:]
			continue
		}

		msg, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, errTruncated
		}
		b = b[n:]

		key, value, err := decodeEntry(msg)
		if err != nil {
			return nil, err
		}
		state[key] = value
	}
	return state, nil
}

func decodeEntry(b []byte) (string, []byte, error) {
	var (
		key     string
		value   []byte
		present bool
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", nil, errTruncated
		}
		b = b[n:]

		switch {
		case num == fieldKey && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return "", nil, errTruncated
			}
			key, b = s, b[n:]
		case num == fieldValue && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return "", nil, errTruncated
			}
			value, b = append([]byte{}, v...), b[n:]
		case num == fieldPresent && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return "", nil, errTruncated
			}
			present, b = v != 0, b[n:]
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return "", nil, errTruncated
			}
			b = b[n:]
		}
	}

	if !present {
		return key, nil, nil
	}
	if value == nil {
		value = []byte{}
	}
	return key, value, nil
}
