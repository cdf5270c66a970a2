package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/evant/instance-state/internal/core/service"
	"github.com/evant/instance-state/internal/server/httpserver/handler"
	"github.com/evant/instance-state/internal/telemetry/logger"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	Store     *service.StateStore
	Lifecycle *service.Lifecycle

	// Metrics serves /metrics. Nil disables the route.
	Metrics http.Handler

	Logger logger.Logger

	// RateLimit is requests per second per client IP. 0 disables it.
	RateLimit int

	// EnableAudit logs every request.
	EnableAudit bool
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		RateLimit:   100,
		EnableAudit: true,
	}
}

// NewRouter creates the admin router with all routes and middleware.
//
// Order: RealIP -> RequestID -> Recover -> RateLimit -> Audit -> handler.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	log = log.With("component", "httpserver")

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestID())
	r.Use(Recover(log))
	if cfg.RateLimit > 0 {
		r.Use(RateLimit(cfg.RateLimit))
	}
	if cfg.EnableAudit {
		r.Use(Audit(log))
	}

	handler.New(handler.Config{
		Store:     cfg.Store,
		Lifecycle: cfg.Lifecycle,
		Metrics:   cfg.Metrics,
		Logger:    log,
	}).Register(r)

	return r
}
