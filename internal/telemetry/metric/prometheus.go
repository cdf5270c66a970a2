// Package metric provides Prometheus metrics for instance-state.
package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "instancestate"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Store metrics
	OperationsTotal *prometheus.CounterVec
	DecodeErrors    *prometheus.CounterVec

	// Transport metrics
	MessageDuration   *prometheus.HistogramVec
	ConnectionsActive *prometheus.GaugeVec
	RateLimited       *prometheus.CounterVec

	// Host persistence metrics
	PersistTotal *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with runtime collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "State operations handled, by kind and result.",
		}, []string{"kind", "result"}),
		DecodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Messages rejected by the codec, by error code.",
		}, []string{"code"}),
		MessageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_duration_seconds",
			Help:      "Time to dispatch one message, by transport.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		}, []string{"transport"}),
		ConnectionsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Open transport connections.",
		}, []string{"transport"}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Messages rejected by the per-connection rate limiter.",
		}, []string{"transport"}),
		PersistTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_total",
			Help:      "Host persistence calls, by backend, direction and result.",
		}, []string{"backend", "op", "result"}),
	}

	reg.MustRegister(
		r.OperationsTotal,
		r.DecodeErrors,
		r.MessageDuration,
		r.ConnectionsActive,
		r.RateLimited,
		r.PersistTotal,
	)

	return r
}

// RecordOperation counts one handled operation.
func (r *Registry) RecordOperation(kind, result string) {
	r.OperationsTotal.WithLabelValues(kind, result).Inc()
}

// RecordDecodeError counts one rejected message.
func (r *Registry) RecordDecodeError(code string) {
	r.DecodeErrors.WithLabelValues(code).Inc()
}

// ObserveMessageDuration records how long one message took to dispatch.
func (r *Registry) ObserveMessageDuration(transport string, seconds float64) {
	r.MessageDuration.WithLabelValues(transport).Observe(seconds)
}

// IncConnections marks a connection as opened.
func (r *Registry) IncConnections(transport string) {
	r.ConnectionsActive.WithLabelValues(transport).Inc()
}

// DecConnections marks a connection as closed.
func (r *Registry) DecConnections(transport string) {
	r.ConnectionsActive.WithLabelValues(transport).Dec()
}

// RecordRateLimited counts one rate-limited message.
func (r *Registry) RecordRateLimited(transport string) {
	r.RateLimited.WithLabelValues(transport).Inc()
}

// RecordPersist counts one Load or Save call against a host backend.
func (r *Registry) RecordPersist(backend, op, result string) {
	r.PersistTotal.WithLabelValues(backend, op, result).Inc()
}

// Register adds a custom collector.
func (r *Registry) Register(c prometheus.Collector) error {
	return r.registry.Register(c)
}

// Registerer exposes the underlying registry for components that register
// their own collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Handler returns an HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

var (
	globalOnce     sync.Once
	globalRegistry *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// Handler returns an HTTP handler for the global registry.
func Handler() http.Handler {
	return Global().Handler()
}
