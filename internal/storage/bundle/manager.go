package bundle

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/evant/instance-state/internal/telemetry/logger"
)

var magicBytes = []byte("ISBUNDLE")

const (
	filePrefix    = "bundle-"
	fileExtension = ".isb"
	checksumSize  = 32
	headerVersion = 1

	// DefaultRetentionCount is the number of bundles kept by Prune.
	DefaultRetentionCount = 3
)

var (
	ErrInvalidMagic     = errors.New("bundle: invalid magic bytes")
	ErrChecksumMismatch = errors.New("bundle: checksum mismatch")
	ErrNoBundles        = errors.New("bundle: no bundles available")
)

type bundleHeader struct {
	Version   int    `json:"version"`
	CreatedAt int64  `json:"created_at"`
	KeyCount  uint64 `json:"key_count"`
	DataBytes uint64 `json:"data_bytes"`
}

// Config configures the bundle manager.
type Config struct {
	Dir string

	// RetentionCount is how many bundles Prune keeps. The newest is always kept.
	RetentionCount int

	Logger logger.Logger
}

// DefaultConfig returns a config for dir with default retention.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:            dir,
		RetentionCount: DefaultRetentionCount,
	}
}

// Manager writes and reads state bundles in one directory.
type Manager struct {
	cfg    Config
	logger logger.Logger
}

// NewManager creates the directory if needed and returns a manager for it.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("bundle: dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("bundle: create dir: %w", err)
	}
	if cfg.RetentionCount <= 0 {
		cfg.RetentionCount = DefaultRetentionCount
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	return &Manager{
		cfg:    cfg,
		logger: log.With("component", "bundle"),
	}, nil
}

// Info describes a bundle file.
type Info struct {
	ID        string `json:"id"`
	KeyCount  int    `json:"key_count"`
	CreatedAt int64  `json:"created_at"`
	Size      int64  `json:"size"`
	Path      string `json:"path"`
	Checksum  string `json:"checksum"`
}

// Name implements service.Persister.
func (m *Manager) Name() string {
	return "bundle"
}

// Load implements service.Persister. An empty directory loads as no state.
func (m *Manager) Load(ctx context.Context) (map[string][]byte, error) {
	state, info, err := m.LoadLatest()
	if errors.Is(err, ErrNoBundles) {
		m.logger.Info("no bundle to restore", "dir", m.cfg.Dir)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	logger.L(ctx).Debug("bundle loaded", "id", info.ID, "keys", info.KeyCount)
	return state, nil
}

// Save implements service.Persister: it writes a new bundle, then prunes.
func (m *Manager) Save(ctx context.Context, state map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := m.Create(state)
	if err != nil {
		return err
	}
	logger.L(ctx).Debug("bundle written", "id", info.ID, "keys", info.KeyCount, "size", info.Size)

	if err := m.Prune(); err != nil {
		m.logger.Warn("bundle prune failed", "error", err)
	}
	return nil
}

// Create writes state to a new bundle file.
//
// Layout: magic, header length (uint32 BE), JSON header, data length
// (uint32 BE), entry block, SHA-256 of everything before it.
func (m *Manager) Create(state map[string][]byte) (*Info, error) {
	now := time.Now()
	id := m.generateID(now)
	data := encodeEntries(state)

	tempPath := filepath.Join(m.cfg.Dir, id+".tmp")
	file, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("bundle: create temp file: %w", err)
	}
	defer os.Remove(tempPath)

	hash := sha256.New()
	w := bufio.NewWriter(io.MultiWriter(file, hash))

	hdr := bundleHeader{
		Version:   headerVersion,
		CreatedAt: now.UnixMilli(),
		KeyCount:  uint64(len(state)),
		DataBytes: uint64(len(data)),
	}
	hdrJSON, err := json.Marshal(hdr)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("bundle: marshal header: %w", err)
	}

	var lenBuf [4]byte
	w.Write(magicBytes)
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(hdrJSON)))
	w.Write(lenBuf[:])
	w.Write(hdrJSON)
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	w.Write(lenBuf[:])
	w.Write(data)
	if err := w.Flush(); err != nil {
		file.Close()
		return nil, fmt.Errorf("bundle: write: %w", err)
	}

	// The trailer is not part of the hash.
	sum := hash.Sum(nil)
	if _, err := file.Write(sum); err != nil {
		file.Close()
		return nil, fmt.Errorf("bundle: write checksum: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return nil, fmt.Errorf("bundle: sync: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("bundle: close: %w", err)
	}

	stat, err := os.Stat(tempPath)
	if err != nil {
		return nil, err
	}

	finalPath := filepath.Join(m.cfg.Dir, id+fileExtension)
	if err := os.Rename(tempPath, finalPath); err != nil {
		return nil, fmt.Errorf("bundle: rename: %w", err)
	}

	return &Info{
		ID:        id,
		KeyCount:  len(state),
		CreatedAt: hdr.CreatedAt,
		Size:      stat.Size(),
		Path:      finalPath,
		Checksum:  hex.EncodeToString(sum),
	}, nil
}

// LoadLatest reads the newest valid bundle, falling back to older ones when
// the newer are corrupt.
func (m *Manager) LoadLatest() (map[string][]byte, *Info, error) {
	bundles, err := m.List()
	if err != nil {
		return nil, nil, err
	}

	for i := len(bundles) - 1; i >= 0; i-- {
		state, info, err := m.loadFile(bundles[i].Path)
		if err == nil {
			return state, info, nil
		}
		if errors.Is(err, ErrChecksumMismatch) || errors.Is(err, ErrInvalidMagic) {
			m.logger.Warn("skipping corrupt bundle", "path", bundles[i].Path, "error", err)
			continue
		}
		return nil, nil, err
	}

	return nil, nil, ErrNoBundles
}

func (m *Manager) loadFile(path string) (map[string][]byte, *Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	if stat.Size() < int64(len(magicBytes))+checksumSize {
		return nil, nil, ErrChecksumMismatch
	}

	bodyLen := stat.Size() - checksumSize
	expected := make([]byte, checksumSize)
	if _, err := io.ReadFull(io.NewSectionReader(f, bodyLen, checksumSize), expected); err != nil {
		return nil, nil, err
	}
	h := sha256.New()
	if _, err := io.CopyN(h, io.NewSectionReader(f, 0, bodyLen), bodyLen); err != nil {
		return nil, nil, err
	}
	if !bytes.Equal(h.Sum(nil), expected) {
		return nil, nil, ErrChecksumMismatch
	}

	br := bufio.NewReader(io.NewSectionReader(f, 0, bodyLen))

	magic := make([]byte, len(magicBytes))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, nil, err
	}
	if !bytes.Equal(magic, magicBytes) {
		return nil, nil, ErrInvalidMagic
	}

	hdrJSON, err := readBlock(br, bodyLen)
	if err != nil {
		return nil, nil, fmt.Errorf("bundle: read header: %w", err)
	}
	var hdr bundleHeader
	if err := json.Unmarshal(hdrJSON, &hdr); err != nil {
		return nil, nil, fmt.Errorf("bundle: unmarshal header: %w", err)
	}
	if hdr.Version != headerVersion {
		return nil, nil, fmt.Errorf("bundle: unsupported version %d", hdr.Version)
	}

	data, err := readBlock(br, bodyLen)
	if err != nil {
		return nil, nil, fmt.Errorf("bundle: read data: %w", err)
	}
	state, err := decodeEntries(data)
	if err != nil {
		return nil, nil, err
	}

	info := &Info{
		ID:        strings.TrimSuffix(filepath.Base(path), fileExtension),
		KeyCount:  len(state),
		CreatedAt: hdr.CreatedAt,
		Size:      stat.Size(),
		Path:      path,
		Checksum:  hex.EncodeToString(expected),
	}
	return state, info, nil
}

// readBlock reads a uint32 BE length followed by that many bytes. The
// length is bounded by the file body so a bad header cannot force a huge
// allocation.
func readBlock(r io.Reader, limit int64) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if int64(n) > limit {
		return nil, fmt.Errorf("block length %d exceeds file size", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// List lists bundle files, oldest first (metadata only).
func (m *Manager) List() ([]*Info, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileExtension) {
			paths = append(paths, filepath.Join(m.cfg.Dir, name))
		}
	}
	sort.Strings(paths)

	infos := make([]*Info, 0, len(paths))
	for _, p := range paths {
		stat, err := os.Stat(p)
		if err != nil {
			continue
		}
		infos = append(infos, &Info{
			ID:   strings.TrimSuffix(filepath.Base(p), fileExtension),
			Path: p,
			Size: stat.Size(),
		})
	}
	return infos, nil
}

// Prune deletes all but the newest RetentionCount bundles.
func (m *Manager) Prune() error {
	infos, err := m.List()
	if err != nil {
		return err
	}
	if len(infos) <= m.cfg.RetentionCount {
		return nil
	}

	var errs []error
	for _, info := range infos[:len(infos)-m.cfg.RetentionCount] {
		if err := os.Remove(info.Path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
			continue
		}
		m.logger.Debug("bundle pruned", "id", info.ID)
	}
	return errors.Join(errs...)
}

func (m *Manager) generateID(t time.Time) string {
	ts := t.UTC().Format("20060102150405")
	prefix := filePrefix + ts + "-"
	seq := 0

	entries, _ := os.ReadDir(m.cfg.Dir)
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, fileExtension) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), fileExtension))
		if err == nil && n > seq {
			seq = n
		}
	}

	return fmt.Sprintf("%s%04d", prefix, seq+1)
}
