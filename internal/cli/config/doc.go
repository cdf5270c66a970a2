// Package config loads instancestate-cli defaults from ~/.instancestate/cli.yaml.
//
// Command-line flags and INSTANCESTATE_* environment variables override the
// file.
package config
