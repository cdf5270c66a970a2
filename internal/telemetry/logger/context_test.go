package logger

import (
	"context"
	"testing"
)

func TestContextIDs(t *testing.T) {
	ctx := context.Background()
	if RequestIDFromContext(ctx) != "" || ConnIDFromContext(ctx) != "" {
		t.Fatal("empty context should carry no ids")
	}

	ctx = WithConnID(WithRequestID(ctx, "req-1"), "conn-1")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("RequestIDFromContext() = %q", got)
	}
	if got := ConnIDFromContext(ctx); got != "conn-1" {
		t.Errorf("ConnIDFromContext() = %q", got)
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) != Default() {
		t.Error("FromContext without a logger should return Default()")
	}

	l, buf := newBuffered(t, "info", "json")
	FromContext(WithLogger(context.Background(), l)).Info("from context")
	if buf.Len() == 0 {
		t.Error("logger stored in context should be used")
	}
}

func TestL_AddsIDs(t *testing.T) {
	tests := []struct {
		name     string
		reqID    string
		connID   string
		wantKeys []string
		noKeys   []string
	}{
		{"none", "", "", nil, []string{"request_id", "conn_id"}},
		{"request", "req-1", "", []string{"request_id"}, []string{"conn_id"}},
		{"connection", "", "conn-1", []string{"conn_id"}, []string{"request_id"}},
		{"both", "req-1", "conn-1", []string{"request_id", "conn_id"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, buf := newBuffered(t, "info", "json")
			ctx := WithLogger(context.Background(), l)
			if tt.reqID != "" {
				ctx = WithRequestID(ctx, tt.reqID)
			}
			if tt.connID != "" {
				ctx = WithConnID(ctx, tt.connID)
			}

			L(ctx).Info("dispatch")

			entries := decodeLines(t, buf)
			if len(entries) != 1 {
				t.Fatalf("got %d entries", len(entries))
			}
			for _, k := range tt.wantKeys {
				if _, ok := entries[0][k]; !ok {
					t.Errorf("missing %s in %v", k, entries[0])
				}
			}
			for _, k := range tt.noKeys {
				if _, ok := entries[0][k]; ok {
					t.Errorf("unexpected %s in %v", k, entries[0])
				}
			}
		})
	}
}
