package badgerstore

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/evant/instance-state/internal/core/service"
)

var _ service.Persister = (*Store)(nil)

func openStore(t *testing.T, dir string) *Store {
	t.Helper()
	cfg := DefaultConfig(dir)
	cfg.GCInterval = 0
	cfg.SyncWrites = false
	s, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestStore_LoadEmpty(t *testing.T) {
	s := openStore(t, t.TempDir())
	defer s.Close()

	state, err := s.Load(context.Background())
	if err != nil || state != nil {
		t.Fatalf("Load() = %v, %v; want nil, nil", state, err)
	}
	if at, _ := s.SavedAt(); !at.IsZero() {
		t.Errorf("SavedAt() = %v, want zero", at)
	}
}

func TestStore_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := openStore(t, dir)
	if err := s.Save(ctx, map[string][]byte{
		"a":     []byte("one"),
		"empty": {},
		"b/c":   {0x00, 0x01},
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopen as the next instance would.
	s = openStore(t, dir)
	defer s.Close()

	state, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(state) != 3 {
		t.Fatalf("len = %d, want 3: %v", len(state), state)
	}
	if string(state["a"]) != "one" || string(state["b/c"]) != "\x00\x01" {
		t.Errorf("state = %v", state)
	}
	if v := state["empty"]; v == nil || len(v) != 0 {
		t.Errorf("empty = %v, want non-nil empty", v)
	}
	if at, err := s.SavedAt(); err != nil || at.IsZero() {
		t.Errorf("SavedAt() = %v, %v", at, err)
	}
}

func TestStore_SaveReplaces(t *testing.T) {
	s := openStore(t, t.TempDir())
	defer s.Close()
	ctx := context.Background()

	s.Save(ctx, map[string][]byte{"old": {1}, "kept": {2}})
	if err := s.Save(ctx, map[string][]byte{"kept": {3}, "new": {4}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	state, _ := s.Load(ctx)
	if _, ok := state["old"]; ok {
		t.Error("stale key survived a later save")
	}
	if len(state) != 2 || state["kept"][0] != 3 || state["new"][0] != 4 {
		t.Errorf("state = %v", state)
	}

	// An empty save clears everything but still counts as saved.
	s.Save(ctx, map[string][]byte{})
	state, err := s.Load(ctx)
	if err != nil || state == nil || len(state) != 0 {
		t.Errorf("Load after empty save = %v, %v", state, err)
	}
}

func TestStore_Closed(t *testing.T) {
	s := openStore(t, t.TempDir())
	s.Close()
	if err := s.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}

	if _, err := s.Load(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Load after close = %v", err)
	}
	if err := s.Save(context.Background(), nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Save after close = %v", err)
	}
}

func TestStore_GCAndMetrics(t *testing.T) {
	s := openStore(t, t.TempDir())
	defer s.Close()

	if _, err := s.GC(); err != nil {
		t.Fatalf("GC: %v", err)
	}
	if s.Stats().LastGC.IsZero() {
		t.Error("LastGC not recorded")
	}

	reg := prometheus.NewRegistry()
	if err := s.RegisterMetrics(reg); err != nil {
		t.Fatalf("RegisterMetrics: %v", err)
	}
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	if len(mfs) != 2 {
		t.Errorf("gathered %d families, want 2", len(mfs))
	}
}

func TestOpen_RequiresDir(t *testing.T) {
	if _, err := Open(Config{}, nil); err == nil {
		t.Error("Open without dir should fail")
	}
}
