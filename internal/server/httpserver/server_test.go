package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/evant/instance-state/internal/core/domain"
	"github.com/evant/instance-state/internal/core/service"
	"github.com/evant/instance-state/internal/telemetry/metric"
)

func TestServer_ServeAndShutdown(t *testing.T) {
	s := New("127.0.0.1:0", okHandler())
	if err := s.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve()
	}()

	resp, err := http.Get("http://" + s.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Serve() returned %v, want nil after Shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("Serve() did not return after Shutdown")
	}
}

func TestDefaultRouterConfig(t *testing.T) {
	cfg := DefaultRouterConfig()
	if cfg.RateLimit <= 0 {
		t.Error("RateLimit should be positive by default")
	}
	if !cfg.EnableAudit {
		t.Error("EnableAudit should be on by default")
	}
}

func TestNewRouter(t *testing.T) {
	store := service.NewStateStore()
	store.Initialize(nil)
	store.Handle(domain.NewSet("k", []byte("v")))

	reg := metric.NewRegistry()
	cfg := DefaultRouterConfig()
	cfg.Store = store
	cfg.Metrics = reg.Handler()
	router := NewRouter(cfg)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/ready", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/v1/state", http.StatusOK},
		{http.MethodGet, "/v1/state/save", http.StatusOK},
		{http.MethodGet, "/v1/version", http.StatusOK},
		{http.MethodGet, "/nope", http.StatusNotFound},
		{http.MethodDelete, "/v1/state", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("missing X-Request-ID header")
			}
		})
	}
}

func TestNewRouter_RequestIDInBody(t *testing.T) {
	cfg := DefaultRouterConfig()
	cfg.Store = service.NewStateStore()
	router := NewRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	body, _ := io.ReadAll(rec.Body)
	var resp struct {
		RequestID string `json:"request_id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RequestID != "abc" {
		t.Errorf("request_id = %q, want abc", resp.RequestID)
	}
}
