package config

import "time"

// ServerConfig is the root configuration for instancestate-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Storage StorageSection `koanf:"storage"`
	Log     LogSection     `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	Message MessageConfig `koanf:"message"`
	HTTP    HTTPConfig    `koanf:"http"`
	Local   LocalConfig   `koanf:"local"`
}

// MessageConfig configures the framed message transport.
type MessageConfig struct {
	// Network is "tcp" or "unix".
	Network string `koanf:"network"`
	Addr    string `koanf:"addr"`

	// AckMutations makes Set and Remove answer with a null frame.
	AckMutations bool `koanf:"ack_mutations"`

	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
	IdleTimeout    time.Duration `koanf:"idle_timeout"`
	RateLimit      int           `koanf:"rate_limit"`
	MaxPayload     int           `koanf:"max_payload"`
	MaxConnections int           `koanf:"max_connections"`
}

// HTTPConfig configures the admin HTTP server.
type HTTPConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Addr        string `koanf:"addr"`
	RateLimit   int    `koanf:"rate_limit"`
	EnableAudit bool   `koanf:"enable_audit"`
}

// LocalConfig configures the local management socket.
type LocalConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// StorageSection configures the persistence backend.
type StorageSection struct {
	// Backend is one of BackendNone, BackendBundle or BackendBadger.
	Backend string `koanf:"backend"`
	DataDir string `koanf:"data_dir"`

	// BundleKeep is how many bundle files survive pruning.
	BundleKeep int `koanf:"bundle_keep"`

	// PersistInterval, when positive, persists the save store periodically
	// in addition to the final persist at shutdown.
	PersistInterval time.Duration `koanf:"persist_interval"`
}

// LogSection configures logging.
type LogSection struct {
	Level     string `koanf:"level"`
	Format    string `koanf:"format"`
	AddSource bool   `koanf:"add_source"`
}
