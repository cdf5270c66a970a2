package config

import "time"

// CLIConfig holds defaults for instancestate-cli flags.
type CLIConfig struct {
	Network string        `yaml:"network"`
	Addr    string        `yaml:"addr"`
	Socket  string        `yaml:"socket"`
	HTTP    string        `yaml:"http"`
	Output  string        `yaml:"output"` // table, json, yaml
	Ack     bool          `yaml:"ack"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Network: "tcp",
		Addr:    "127.0.0.1:7420",
		Socket:  "/var/run/instancestate-server/instancestate-server.sock",
		HTTP:    "127.0.0.1:7480",
		Output:  "table",
		Timeout: 5 * time.Second,
	}
}
