package connection

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewHTTPClient(t *testing.T) {
	tests := []struct {
		server string
		want   string
	}{
		{"http://localhost:8080", "http://localhost:8080"},
		{"https://localhost:8080/", "https://localhost:8080"},
		{"localhost:7480", "http://localhost:7480"},
	}
	for _, tt := range tests {
		if got := NewHTTPClient(tt.server, time.Second).BaseURL(); got != tt.want {
			t.Errorf("BaseURL(%q) = %q, want %q", tt.server, got, tt.want)
		}
	}
}

func TestHTTPClient_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/version":
			w.Write([]byte(`{"code":"OK","message":"Success","data":{"version":"1.2.3"}}`))
		case "/ready":
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"code":"IS-SYS-5030","message":"state not restored yet"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("404 page not found"))
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 5*time.Second)
	ctx := context.Background()

	var v struct {
		Version string `json:"version"`
	}
	if err := c.Get(ctx, "/v1/version", &v); err != nil {
		t.Fatalf("Get(version) error = %v", err)
	}
	if v.Version != "1.2.3" {
		t.Errorf("version = %q", v.Version)
	}

	var re *RemoteError
	if err := c.Get(ctx, "/ready", nil); !errors.As(err, &re) || re.Code != "IS-SYS-5030" {
		t.Errorf("Get(ready) error = %v", err)
	}
	if err := c.Get(ctx, "/missing", nil); err == nil {
		t.Error("Get(missing) should fail")
	}
}
