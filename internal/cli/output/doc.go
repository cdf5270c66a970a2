// Package output renders CLI results as table, JSON or YAML.
package output
