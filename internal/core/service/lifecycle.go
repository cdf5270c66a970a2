package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/evant/instance-state/internal/telemetry/logger"
)

// Persister is the host's durable means of carrying state across process
// instances. The store itself never calls it.
type Persister interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// Load returns the state saved by the previous instance.
	// A nil map with a nil error means there is none.
	Load(ctx context.Context) (map[string][]byte, error)

	// Save stores state for the next instance.
	Save(ctx context.Context, state map[string][]byte) error
}

// PersistRecorder receives one call per persister round trip.
type PersistRecorder interface {
	RecordPersist(backend, op, result string)
}

// Lifecycle connects the state store to the host's startup and teardown.
type Lifecycle struct {
	Store     *StateStore
	Persister Persister
	Recorder  PersistRecorder
	Logger    logger.Logger

	mu          sync.Mutex
	lastPersist time.Time
}

// NewLifecycle creates a lifecycle. p may be nil to disable persistence.
func NewLifecycle(store *StateStore, p Persister) *Lifecycle {
	return &Lifecycle{
		Store:     store,
		Persister: p,
		Logger:    logger.Default(),
	}
}

// Restore loads the previous instance's state and installs it as the restore
// store. Without a persister the store is initialized empty.
func (l *Lifecycle) Restore(ctx context.Context) error {
	if l.Persister == nil {
		return l.Store.Initialize(nil)
	}

	start := time.Now()
	state, err := l.Persister.Load(ctx)
	if err != nil {
		l.record("load", "error")
		return fmt.Errorf("lifecycle: load from %s: %w", l.Persister.Name(), err)
	}
	l.record("load", "ok")

	if err := l.Store.Initialize(state); err != nil {
		return err
	}

	l.log().Info("state restored",
		"backend", l.Persister.Name(),
		"keys", len(state),
		"duration", time.Since(start),
	)
	return nil
}

// Persist writes a snapshot of the save store to the persister.
// It may be called any number of times; the store is not modified.
func (l *Lifecycle) Persist(ctx context.Context) (int, error) {
	if l.Persister == nil {
		return 0, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	state := l.Store.Snapshot()
	if err := l.Persister.Save(ctx, state); err != nil {
		l.record("save", "error")
		return 0, fmt.Errorf("lifecycle: save to %s: %w", l.Persister.Name(), err)
	}
	l.record("save", "ok")
	l.lastPersist = time.Now()

	l.log().Info("state persisted", "backend", l.Persister.Name(), "keys", len(state))
	return len(state), nil
}

// LastPersist returns the time of the last successful Persist.
func (l *Lifecycle) LastPersist() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastPersist
}

// Backend returns the persister name, or "none".
func (l *Lifecycle) Backend() string {
	if l.Persister == nil {
		return "none"
	}
	return l.Persister.Name()
}

func (l *Lifecycle) record(op, result string) {
	if l.Recorder != nil {
		l.Recorder.RecordPersist(l.Persister.Name(), op, result)
	}
}

func (l *Lifecycle) log() logger.Logger {
	if l.Logger == nil {
		return logger.Default()
	}
	return l.Logger
}
