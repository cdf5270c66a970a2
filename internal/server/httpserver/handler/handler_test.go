package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/evant/instance-state/internal/core/domain"
	"github.com/evant/instance-state/internal/core/service"
)

type memPersister struct {
	saved map[string][]byte
	err   error
}

func (m *memPersister) Name() string { return "mem" }

func (m *memPersister) Load(context.Context) (map[string][]byte, error) { return nil, nil }

func (m *memPersister) Save(_ context.Context, state map[string][]byte) error {
	if m.err != nil {
		return m.err
	}
	m.saved = state
	return nil
}

func newTestRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	New(cfg).Register(r)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp Response
	if rec.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return rec, resp
}

func TestHealth(t *testing.T) {
	h := newTestRouter(Config{Store: service.NewStateStore()})

	rec, resp := doRequest(t, h, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if resp.Code != "OK" {
		t.Errorf("code = %q, want OK", resp.Code)
	}
}

func TestReady(t *testing.T) {
	store := service.NewStateStore()
	h := newTestRouter(Config{Store: store})

	rec, resp := doRequest(t, h, http.MethodGet, "/ready")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status before init = %d, want 503", rec.Code)
	}
	if resp.Code != domain.ErrServiceUnavailable.Code {
		t.Errorf("code = %q", resp.Code)
	}

	store.Initialize(nil)
	rec, _ = doRequest(t, h, http.MethodGet, "/ready")
	if rec.Code != http.StatusOK {
		t.Errorf("status after init = %d, want 200", rec.Code)
	}
}

func TestStateStatus(t *testing.T) {
	store := service.NewStateStore()
	store.Initialize(map[string][]byte{"r": {1}})
	store.Handle(domain.NewSet("a", []byte("abc")))

	lc := service.NewLifecycle(store, &memPersister{})
	h := newTestRouter(Config{Store: store, Lifecycle: lc})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/state", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Data StateStatusResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := body.Data
	if got.RestoreKeys != 1 || got.SaveKeys != 1 || got.SaveBytes != 3 || !got.Initialized {
		t.Errorf("stats = %+v", got.StoreStats)
	}
	if got.Backend != "mem" {
		t.Errorf("backend = %q, want mem", got.Backend)
	}
	if got.LastPersist != nil {
		t.Error("last_persist should be omitted before any persist")
	}
}

func TestSnapshot(t *testing.T) {
	store := service.NewStateStore()
	store.Handle(domain.NewSet("a", []byte{0xff, 0x00}))
	store.Handle(domain.NewSet("empty", []byte{}))
	h := newTestRouter(Config{Store: store})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/state/save", nil))

	var body struct {
		Data SnapshotResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Keys != 2 {
		t.Errorf("keys = %d, want 2", body.Data.Keys)
	}
	if got := body.Data.Entries["a"]; len(got) != 2 || got[0] != 0xff {
		t.Errorf("entries[a] = %v", got)
	}
	if _, ok := body.Data.Entries["empty"]; !ok {
		t.Error("empty value missing from snapshot")
	}
}

func TestPersist(t *testing.T) {
	store := service.NewStateStore()
	store.Handle(domain.NewSet("k", []byte("v")))

	t.Run("ok", func(t *testing.T) {
		p := &memPersister{}
		h := newTestRouter(Config{Store: store, Lifecycle: service.NewLifecycle(store, p)})

		rec, _ := doRequest(t, h, http.MethodPost, "/v1/state/persist")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if string(p.saved["k"]) != "v" {
			t.Errorf("saved = %v", p.saved)
		}
	})

	t.Run("failure", func(t *testing.T) {
		p := &memPersister{err: errors.New("disk full")}
		h := newTestRouter(Config{Store: store, Lifecycle: service.NewLifecycle(store, p)})

		rec, resp := doRequest(t, h, http.MethodPost, "/v1/state/persist")
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
		if resp.Code != domain.ErrInternal.Code {
			t.Errorf("code = %q", resp.Code)
		}
	})

	t.Run("no lifecycle", func(t *testing.T) {
		h := newTestRouter(Config{Store: store})
		rec, _ := doRequest(t, h, http.MethodPost, "/v1/state/persist")
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("metric 1\n"))
	})
	h := newTestRouter(Config{Store: service.NewStateStore(), Metrics: metrics})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Body.String() != "metric 1\n" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"IS-SYS-4290", http.StatusTooManyRequests},
		{"IS-STATE-4090", http.StatusConflict},
		{"IS-STATE-4091", http.StatusConflict},
		{"IS-SYS-5030", http.StatusServiceUnavailable},
		{"IS-MSG-4000", http.StatusBadRequest},
		{"IS-ARG-1001", http.StatusBadRequest},
		{"IS-SYS-5000", http.StatusInternalServerError},
		{"OTHER", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := errorCodeToHTTPStatus(tt.code); got != tt.want {
				t.Errorf("errorCodeToHTTPStatus(%q) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}
