package config

import (
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/evant/instance-state/internal/protocol/frame"
	"github.com/evant/instance-state/internal/telemetry/logger"
)

// Verify validates the configuration and prepares the data directory.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyServer(cfg *ServerSection) error {
	m := &cfg.Message
	switch m.Network {
	case "tcp":
		if _, _, err := net.SplitHostPort(m.Addr); err != nil {
			return fmt.Errorf("server.message.addr: %w", err)
		}
	case "unix":
		if m.Addr == "" {
			return errors.New("server.message.addr is required")
		}
	default:
		return fmt.Errorf("server.message.network must be tcp or unix, got %q", m.Network)
	}

	if m.MaxPayload <= 0 || m.MaxPayload > frame.MaxPayload {
		return fmt.Errorf("server.message.max_payload must be in 1..%d", frame.MaxPayload)
	}
	if m.MaxConnections < 0 {
		return errors.New("server.message.max_connections must not be negative")
	}
	if m.RateLimit < 0 {
		return errors.New("server.message.rate_limit must not be negative")
	}

	if cfg.HTTP.Enabled {
		if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
			return fmt.Errorf("server.http.addr: %w", err)
		}
		if m.Network == "tcp" && cfg.HTTP.Addr == m.Addr {
			return errors.New("server.http.addr conflicts with server.message.addr")
		}
	}

	if cfg.Local.Enabled && cfg.Local.Path == "" {
		return errors.New("server.local.path is required")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Backend {
	case BackendNone:
		return nil
	case BackendBundle, BackendBadger:
	default:
		return fmt.Errorf("storage.backend must be none, bundle or badger, got %q", cfg.Backend)
	}

	if cfg.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return errors.New("cannot create data directory: " + err.Error())
	}
	if cfg.Backend == BackendBundle && cfg.BundleKeep < 1 {
		return errors.New("storage.bundle_keep must be at least 1")
	}
	if cfg.PersistInterval < 0 {
		return errors.New("storage.persist_interval must not be negative")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if !logger.ValidLevel(cfg.Level) {
		return fmt.Errorf("log.level: unknown level %q", cfg.Level)
	}
	switch cfg.Format {
	case "json", "text", "console":
		return nil
	default:
		return fmt.Errorf("log.format must be json or text, got %q", cfg.Format)
	}
}
