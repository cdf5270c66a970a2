// Package confloader loads configuration with koanf.
//
// Sources, highest priority first:
//
//  1. Overrides (command-line flags)
//  2. Environment variables (INSTANCESTATE_ prefix)
//  3. YAML configuration file
//  4. Defaults already present in the target struct
//
// Watcher reports writes to a configuration file through fsnotify so the
// server can apply the settings that are safe to change at runtime.
package confloader
