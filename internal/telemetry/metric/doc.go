// Package metric provides Prometheus metrics for instance-state.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: registry, counters, histograms and HTTP handler
//   - collector.go: scrape-time collector for state store sizes
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
