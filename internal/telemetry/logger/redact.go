package logger

import (
	"fmt"
	"strings"
)

// Key patterns whose values must never reach the log output.
var sensitiveKeyPatterns = []string{
	"data",
	"value",
	"payload",
	"password",
	"secret",
	"credential",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactArgs rewrites alternating key/value pairs in place of a copy.
// Byte slices are replaced by their size so state payloads never leak.
func redactArgs(args []any) []any {
	if len(args) == 0 {
		return args
	}
	out := make([]any, len(args))
	copy(out, args)

	for i := 0; i+1 < len(out); i += 2 {
		key, ok := out[i].(string)
		if !ok {
			continue
		}
		out[i+1] = redactValue(key, out[i+1])
	}
	return out
}

func redactValue(key string, v any) any {
	if b, ok := v.([]byte); ok {
		return ByteSize(b)
	}
	if !IsSensitiveKey(key) {
		return v
	}
	if s, ok := v.(string); ok && s == "" {
		return s
	}
	return redactedValue
}

// ByteSize describes a payload without its content.
func ByteSize(b []byte) string {
	if b == nil {
		return "<absent>"
	}
	return fmt.Sprintf("<%d bytes>", len(b))
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
