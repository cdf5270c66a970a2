package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func newBuffered(t *testing.T, level, format string) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(Config{Level: level, Format: format, Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { SetLevel("info") })
	return l, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestLogger_LevelFiltering(t *testing.T) {
	l, buf := newBuffered(t, "warn", "json")

	l.Debug("dropped")
	l.Info("dropped")
	l.Warn("kept", "kind", "set")
	l.Error("kept too")

	entries := decodeLines(t, buf)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2: %s", len(entries), buf.String())
	}
	if entries[0]["level"] != "WARN" || entries[0]["kind"] != "set" {
		t.Errorf("first entry = %v", entries[0])
	}
	if entries[1]["level"] != "ERROR" {
		t.Errorf("second entry level = %v", entries[1]["level"])
	}
}

func TestSetLevel(t *testing.T) {
	l, buf := newBuffered(t, "info", "json")

	l.Debug("hidden")
	SetLevel("debug")
	if GetLevel() != "debug" {
		t.Errorf("GetLevel() = %q, want debug", GetLevel())
	}
	l.Debug("visible")

	entries := decodeLines(t, buf)
	if len(entries) != 1 || entries[0]["msg"] != "visible" {
		t.Errorf("entries = %v", entries)
	}

	// Unknown names fall back to info.
	SetLevel("verbose")
	if GetLevel() != "info" {
		t.Errorf("GetLevel() = %q after unknown level, want info", GetLevel())
	}
}

func TestLogger_With(t *testing.T) {
	l, buf := newBuffered(t, "info", "json")

	l.With("component", "msgserver").Info("listening", "address", "127.0.0.1:7420")

	entries := decodeLines(t, buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0]["component"] != "msgserver" || entries[0]["address"] != "127.0.0.1:7420" {
		t.Errorf("entry = %v", entries[0])
	}
}

func TestLogger_TextFormat(t *testing.T) {
	l, buf := newBuffered(t, "info", "text")

	l.Info("test message", "component", "localserver")

	output := buf.String()
	if !strings.Contains(output, "test message") || !strings.Contains(output, "localserver") {
		t.Errorf("text output = %s", output)
	}
	if strings.HasPrefix(strings.TrimSpace(output), "{") {
		t.Errorf("text output should not be JSON, got: %s", output)
	}
}

func TestLogger_RedactsPayloads(t *testing.T) {
	l, buf := newBuffered(t, "info", "json")

	l.Info("stored", "key", "counter", "data", []byte{1, 2, 3}, "secret_value", "hunter2", "raw", []byte(nil))

	entries := decodeLines(t, buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	entry := entries[0]
	if entry["key"] != "counter" {
		t.Errorf("key should be logged as-is, got %v", entry["key"])
	}
	if entry["data"] != "<3 bytes>" {
		t.Errorf("byte payload should be replaced by its size, got %v", entry["data"])
	}
	if entry["secret_value"] != redactedValue {
		t.Errorf("secret should be redacted, got %v", entry["secret_value"])
	}
	if entry["raw"] != "<absent>" {
		t.Errorf("nil payload should be marked absent, got %v", entry["raw"])
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"data", true},
		{"Payload", true},
		{"db_password", true},
		{"key", false},
		{"kind", false},
	}
	for _, tt := range tests {
		if got := IsSensitiveKey(tt.key); got != tt.want {
			t.Errorf("IsSensitiveKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestValidLevel(t *testing.T) {
	if !ValidLevel("WARN") || !ValidLevel("debug") {
		t.Error("known levels should be valid")
	}
	if ValidLevel("verbose") {
		t.Error("unknown level should be invalid")
	}
}
