// Package config provides the instancestate-server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: default values
//   - verify.go: validation (addresses, backend, data directory)
//
// Values are loaded by internal/infra/confloader from a YAML file,
// INSTANCESTATE_ environment variables and command-line flags.
package config
