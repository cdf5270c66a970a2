package badgerstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/evant/instance-state/internal/telemetry/logger"
)

var (
	savePrefix = []byte("save/")
	savedAtKey = []byte("meta/saved_at")
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("badgerstore: closed")

// Config configures the badger persister.
type Config struct {
	Dir string

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// GCInterval is the period of value log garbage collection. Zero disables it.
	GCInterval time.Duration

	// GCThreshold is the discard ratio passed to RunValueLogGC.
	GCThreshold float64
}

// DefaultConfig returns the default configuration for dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:         dir,
		SyncWrites:  true,
		GCInterval:  10 * time.Minute,
		GCThreshold: 0.5,
	}
}

// Stats describes the on-disk database.
type Stats struct {
	LSMSize      int64     `json:"lsm_size"`
	ValueLogSize int64     `json:"value_log_size"`
	LastGC       time.Time `json:"last_gc"`
}

// Store persists the save store in a badger database.
type Store struct {
	db     *badger.DB
	cfg    Config
	logger logger.Logger

	closed     atomic.Bool
	lastGCTime atomic.Int64

	stopCh chan struct{}
	doneCh chan struct{}
}

// Open opens or creates the database in cfg.Dir.
func Open(cfg Config, log logger.Logger) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("badgerstore: dir is required")
	}
	if log == nil {
		log = logger.Default()
	}
	log = log.With("component", "badger")

	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = &badgerLogger{logger: log}
	opts.SyncWrites = cfg.SyncWrites

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open db: %w", err)
	}

	s := &Store{
		db:     db,
		cfg:    cfg,
		logger: log,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	if cfg.GCInterval > 0 {
		go s.gcLoop()
	} else {
		close(s.doneCh)
	}

	log.Info("badger store opened", "dir", cfg.Dir, "gc_interval", cfg.GCInterval)
	return s, nil
}

// Name implements service.Persister.
func (s *Store) Name() string {
	return "badger"
}

// Load implements service.Persister. It returns nil when nothing was ever
// saved.
func (s *Store) Load(ctx context.Context) (map[string][]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var (
		state map[string][]byte
		saved bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(savedAtKey); err == nil {
			saved = true
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		state = make(map[string][]byte)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = savePrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if value == nil {
				value = []byte{}
			}
			key := bytes.TrimPrefix(item.Key(), savePrefix)
			state[string(key)] = value
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badgerstore: load: %w", err)
	}
	if !saved {
		return nil, nil
	}
	return state, nil
}

// Save implements service.Persister. The previous save is replaced in a
// single transaction.
func (s *Store) Save(ctx context.Context, state map[string][]byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		var stale [][]byte
		opts := badger.DefaultIteratorOptions
		opts.Prefix = savePrefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if _, ok := state[string(bytes.TrimPrefix(key, savePrefix))]; !ok {
				stale = append(stale, key)
			}
		}
		it.Close()

		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		for k, v := range state {
			if err := txn.Set(saveKey(k), v); err != nil {
				return err
			}
		}

		var ts [8]byte
		binary.BigEndian.PutUint64(ts[:], uint64(time.Now().UnixMilli()))
		return txn.Set(savedAtKey, ts[:])
	})
	if err != nil {
		return fmt.Errorf("badgerstore: save: %w", err)
	}
	return nil
}

// SavedAt returns when Save last committed, or the zero time.
func (s *Store) SavedAt() (time.Time, error) {
	var at time.Time
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(savedAtKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			if len(v) != 8 {
				return fmt.Errorf("bad saved_at length %d", len(v))
			}
			at = time.UnixMilli(int64(binary.BigEndian.Uint64(v)))
			return nil
		})
	})
	return at, err
}

// GC runs value log garbage collection until nothing more is rewritten.
func (s *Store) GC() (int, error) {
	start := time.Now()
	rounds := 0
	for {
		err := s.db.RunValueLogGC(s.cfg.GCThreshold)
		if errors.Is(err, badger.ErrNoRewrite) {
			break
		}
		if err != nil {
			return rounds, fmt.Errorf("badgerstore: gc: %w", err)
		}
		rounds++
	}

	s.lastGCTime.Store(time.Now().UnixMilli())
	s.logger.Debug("gc completed", "rounds", rounds, "elapsed", time.Since(start))
	return rounds, nil
}

// Stats returns storage statistics.
func (s *Store) Stats() Stats {
	lsm, vlog := s.db.Size()
	st := Stats{LSMSize: lsm, ValueLogSize: vlog}
	if ms := s.lastGCTime.Load(); ms > 0 {
		st.LastGC = time.UnixMilli(ms)
	}
	return st
}

// RegisterMetrics registers size gauges with reg.
func (s *Store) RegisterMetrics(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "instancestate",
			Subsystem: "badger",
			Name:      "lsm_size_bytes",
			Help:      "Badger LSM tree size in bytes",
		}, func() float64 { return float64(s.Stats().LSMSize) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "instancestate",
			Subsystem: "badger",
			Name:      "value_log_size_bytes",
			Help:      "Badger value log size in bytes",
		}, func() float64 { return float64(s.Stats().ValueLogSize) }),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Close stops background GC and closes the database.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	close(s.stopCh)
	<-s.doneCh

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("badgerstore: close db: %w", err)
	}
	s.logger.Info("badger store closed")
	return nil
}

func (s *Store) gcLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.GC(); err != nil {
				s.logger.Error("auto gc failed", "error", err)
			}
		case <-s.stopCh:
			return
		}
	}
}

func saveKey(k string) []byte {
	key := make([]byte, 0, len(savePrefix)+len(k))
	key = append(key, savePrefix...)
	return append(key, k...)
}

// badgerLogger adapts logger.Logger to badger's Logger interface.
type badgerLogger struct {
	logger logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

// Badger is chatty at info level.
func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
