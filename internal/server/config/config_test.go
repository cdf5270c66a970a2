package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Message.Network != "tcp" || cfg.Server.Message.Addr != DefaultMessageAddr {
		t.Errorf("Message = %+v", cfg.Server.Message)
	}
	if cfg.Server.Message.AckMutations {
		t.Error("mutations should not be acknowledged by default")
	}
	if !cfg.Server.HTTP.Enabled || cfg.Server.HTTP.Addr != DefaultHTTPAddr {
		t.Errorf("HTTP = %+v", cfg.Server.HTTP)
	}
	if cfg.Server.Local.Path != DefaultLocalSocket {
		t.Errorf("Local.Path = %q", cfg.Server.Local.Path)
	}
	if cfg.Storage.Backend != BackendBundle || cfg.Storage.BundleKeep != DefaultBundleKeep {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Log.Level != DefaultLogLevel || cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func validConfig(t *testing.T) *ServerConfig {
	cfg := Default()
	cfg.Storage.DataDir = t.TempDir()
	return cfg
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr bool
	}{
		{"defaults", func(*ServerConfig) {}, false},
		{"unix transport", func(c *ServerConfig) {
			c.Server.Message.Network = "unix"
			c.Server.Message.Addr = "/tmp/is.sock"
		}, false},
		{"unknown network", func(c *ServerConfig) { c.Server.Message.Network = "udp" }, true},
		{"bad tcp addr", func(c *ServerConfig) { c.Server.Message.Addr = "nope" }, true},
		{"empty unix addr", func(c *ServerConfig) {
			c.Server.Message.Network = "unix"
			c.Server.Message.Addr = ""
		}, true},
		{"payload too large", func(c *ServerConfig) { c.Server.Message.MaxPayload = 1 << 30 }, true},
		{"zero payload", func(c *ServerConfig) { c.Server.Message.MaxPayload = 0 }, true},
		{"negative rate", func(c *ServerConfig) { c.Server.Message.RateLimit = -1 }, true},
		{"port conflict", func(c *ServerConfig) { c.Server.HTTP.Addr = c.Server.Message.Addr }, true},
		{"http disabled ignores addr", func(c *ServerConfig) {
			c.Server.HTTP.Enabled = false
			c.Server.HTTP.Addr = ""
		}, false},
		{"empty local path", func(c *ServerConfig) { c.Server.Local.Path = "" }, true},
		{"unknown backend", func(c *ServerConfig) { c.Storage.Backend = "s3" }, true},
		{"empty data dir", func(c *ServerConfig) { c.Storage.DataDir = "" }, true},
		{"none needs no data dir", func(c *ServerConfig) {
			c.Storage.Backend = BackendNone
			c.Storage.DataDir = ""
		}, false},
		{"bundle keep zero", func(c *ServerConfig) { c.Storage.BundleKeep = 0 }, true},
		{"badger ignores keep", func(c *ServerConfig) {
			c.Storage.Backend = BackendBadger
			c.Storage.BundleKeep = 0
		}, false},
		{"negative interval", func(c *ServerConfig) { c.Storage.PersistInterval = -1 }, true},
		{"bad log level", func(c *ServerConfig) { c.Log.Level = "loud" }, true},
		{"bad log format", func(c *ServerConfig) { c.Log.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := Verify(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestVerify_CreateDataDir(t *testing.T) {
	newDir := filepath.Join(t.TempDir(), "subdir", "data")

	cfg := Default()
	cfg.Storage.DataDir = newDir
	if err := Verify(cfg); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if _, err := os.Stat(newDir); err != nil {
		t.Errorf("data directory not created: %v", err)
	}
}
