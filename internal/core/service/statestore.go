// Package service provides domain services for instance-state.
package service

import (
	"fmt"
	"sync"

	"github.com/evant/instance-state/internal/core/domain"
	"github.com/evant/instance-state/internal/telemetry/logger"
	"github.com/evant/instance-state/internal/telemetry/metric"
)

// Operation results reported to the recorder.
const (
	ResultHit      = "hit"
	ResultMiss     = "miss"
	ResultOK       = "ok"
	ResultNoop     = "noop"
	ResultRejected = "rejected"
)

// OperationRecorder receives one call per handled operation.
type OperationRecorder interface {
	RecordOperation(kind, result string)
}

// StoreStats is a point-in-time summary of the store.
type StoreStats struct {
	RestoreKeys int  `json:"restore_keys"`
	SaveKeys    int  `json:"save_keys"`
	SaveBytes   int  `json:"save_bytes"`
	Initialized bool `json:"initialized"`
}

// StateStore mediates between state requests and the host lifecycle.
//
// It holds two independent key spaces. The restore store is installed once by
// Initialize and each key is consumed by the first Get that finds it. The save
// store starts empty, is changed only by Set and Remove, and is copied out by
// Snapshot. All methods are serialized by one mutex.
type StateStore struct {
	mu          sync.Mutex
	restore     map[string][]byte
	save        map[string][]byte
	initialized bool
	getServed   bool

	logger   logger.Logger
	recorder OperationRecorder
}

// StateStoreOption configures a StateStore.
type StateStoreOption func(*StateStore)

// WithStoreLogger sets the logger.
func WithStoreLogger(l logger.Logger) StateStoreOption {
	return func(s *StateStore) {
		s.logger = l
	}
}

// WithRecorder sets the operation recorder.
func WithRecorder(r OperationRecorder) StateStoreOption {
	return func(s *StateStore) {
		s.recorder = r
	}
}

// NewStateStore creates an empty, uninitialized store.
func NewStateStore(opts ...StateStoreOption) *StateStore {
	s := &StateStore{
		restore: make(map[string][]byte),
		save:    make(map[string][]byte),
		logger:  logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize installs snapshot as the restore store.
//
// A nil snapshot means there is no carried-over state. It must be called at
// most once and before the first Get; misuse returns ErrAlreadyInitialized or
// ErrInitializeTooLate and leaves the restore store untouched.
func (s *StateStore) Initialize(snapshot map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		s.logger.Error("state store initialized twice", "restore_keys", len(s.restore))
		return domain.ErrAlreadyInitialized
	}
	if s.getServed {
		s.logger.Error("state store initialized after a get was served")
		return domain.ErrInitializeTooLate
	}

	s.restore = domain.CloneState(snapshot)
	s.initialized = true

	s.logger.Info("state store initialized", "restore_keys", len(s.restore))
	return nil
}

// Handle applies one operation and returns the reply, if any.
//
// Get always replies, carrying the consumed restore value or absent data.
// Set and Remove never reply. A nil operation is "no message" and yields no
// reply and no error.
func (s *StateStore) Handle(op *domain.Operation) (*domain.Operation, error) {
	if op == nil {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch op.Kind {
	case domain.KindGet:
		return s.get(op.Key), nil

	case domain.KindSet:
		if op.Data == nil {
			s.record(op.Kind, ResultRejected)
			return nil, domain.ErrMalformedMessage.WithDetails("set without data")
		}
		s.save[op.Key] = domain.CloneBytes(op.Data)
		s.record(op.Kind, ResultOK)
		s.logger.Debug("state saved", "key", op.Key, "size", len(op.Data))
		return nil, nil

	case domain.KindRemove:
		if _, ok := s.save[op.Key]; !ok {
			s.record(op.Kind, ResultNoop)
			return nil, nil
		}
		delete(s.save, op.Key)
		s.record(op.Kind, ResultOK)
		s.logger.Debug("state removed", "key", op.Key)
		return nil, nil

	default:
		s.record(op.Kind, ResultRejected)
		return nil, domain.ErrUnknownOperationKind.WithDetails(fmt.Sprintf("kind %d", uint8(op.Kind)))
	}
}

// get consumes key from the restore store. Caller holds s.mu.
//
// The key is removed on a successful lookup, before the reply is built, so a
// value is handed out at most once even if the reply is never delivered.
func (s *StateStore) get(key string) *domain.Operation {
	s.getServed = true

	data, ok := s.restore[key]
	if !ok {
		s.record(domain.KindGet, ResultMiss)
		return domain.NewGetReply(key, nil)
	}
	delete(s.restore, key)

	s.record(domain.KindGet, ResultHit)
	s.logger.Debug("state restored", "key", key, "size", len(data))
	return domain.NewGetReply(key, data)
}

// Snapshot returns a point-in-time deep copy of the save store.
func (s *StateStore) Snapshot() map[string][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneState(s.save)
}

// Initialized reports whether Initialize has succeeded.
func (s *StateStore) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Stats returns a summary of the store.
func (s *StateStore) Stats() StoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := StoreStats{
		RestoreKeys: len(s.restore),
		SaveKeys:    len(s.save),
		Initialized: s.initialized,
	}
	for _, v := range s.save {
		stats.SaveBytes += len(v)
	}
	return stats
}

// MetricStats adapts Stats for metric.NewCollector.
func (s *StateStore) MetricStats() metric.StoreStats {
	st := s.Stats()
	return metric.StoreStats{
		RestoreKeys: st.RestoreKeys,
		SaveKeys:    st.SaveKeys,
		SaveBytes:   st.SaveBytes,
		Initialized: st.Initialized,
	}
}

func (s *StateStore) record(kind domain.Kind, result string) {
	if s.recorder != nil {
		s.recorder.RecordOperation(kind.String(), result)
	}
}
