package config

import (
	"time"

	"github.com/evant/instance-state/internal/protocol/frame"
)

// Storage backends.
const (
	BackendNone   = "none"
	BackendBundle = "bundle"
	BackendBadger = "badger"
)

// Default configuration values.
const (
	DefaultMessageNetwork = "tcp"
	DefaultMessageAddr    = "127.0.0.1:7420"
	DefaultHTTPAddr       = "127.0.0.1:7480"
	DefaultLocalSocket    = "/var/run/instancestate-server/instancestate-server.sock"

	DefaultReadTimeout    = 30 * time.Second
	DefaultWriteTimeout   = 30 * time.Second
	DefaultIdleTimeout    = 5 * time.Minute
	DefaultRateLimit      = 1000
	DefaultMaxConnections = 256
	DefaultHTTPRateLimit  = 100

	DefaultBackend    = BackendBundle
	DefaultDataDir    = "/var/lib/instancestate-server/data"
	DefaultBundleKeep = 3

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Message: MessageConfig{
				Network:        DefaultMessageNetwork,
				Addr:           DefaultMessageAddr,
				ReadTimeout:    DefaultReadTimeout,
				WriteTimeout:   DefaultWriteTimeout,
				IdleTimeout:    DefaultIdleTimeout,
				RateLimit:      DefaultRateLimit,
				MaxPayload:     frame.MaxPayload,
				MaxConnections: DefaultMaxConnections,
			},
			HTTP: HTTPConfig{
				Enabled:     true,
				Addr:        DefaultHTTPAddr,
				RateLimit:   DefaultHTTPRateLimit,
				EnableAudit: true,
			},
			Local: LocalConfig{
				Enabled: true,
				Path:    DefaultLocalSocket,
			},
		},
		Storage: StorageSection{
			Backend:    DefaultBackend,
			DataDir:    DefaultDataDir,
			BundleKeep: DefaultBundleKeep,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
