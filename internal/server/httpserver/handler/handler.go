package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/evant/instance-state/internal/core/domain"
	"github.com/evant/instance-state/internal/core/service"
	"github.com/evant/instance-state/internal/telemetry/logger"
)

// Config holds the handler dependencies.
type Config struct {
	Store     *service.StateStore
	Lifecycle *service.Lifecycle
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	Logger  logger.Logger
}

// Handler serves the admin API.
type Handler struct {
	store     *service.StateStore
	lifecycle *service.Lifecycle
	metrics   http.Handler
	logger    logger.Logger
}

// New creates a new Handler.
func New(cfg Config) *Handler {
	l := cfg.Logger
	if l == nil {
		l = logger.Default()
	}
	return &Handler{
		store:     cfg.Store,
		lifecycle: cfg.Lifecycle,
		metrics:   cfg.Metrics,
		logger:    l,
	}
}

// Register mounts all routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Get("/v1/version", h.handleVersion)
	r.Get("/v1/state", h.handleStateStatus)
	r.Get("/v1/state/save", h.handleSnapshot)
	r.Post("/v1/state/persist", h.handlePersist)
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := logger.RequestIDFromContext(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(NewResponse(requestID, data)); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID := logger.RequestIDFromContext(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(NewErrorResponse(requestID, code, message))
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if code := domain.GetErrorCode(err); code != "" {
		h.writeError(w, r, errorCodeToHTTPStatus(code), code, err.Error())
		return
	}

	logger.L(r.Context()).Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, domain.ErrInternal.Code, domain.ErrInternal.Message)
}

// errorCodeToHTTPStatus maps error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-4090"), strings.HasSuffix(code, "-4091"):
		return http.StatusConflict
	case strings.HasSuffix(code, "-5030"):
		return http.StatusServiceUnavailable
	case strings.HasPrefix(code, "IS-MSG-"), strings.HasPrefix(code, "IS-ARG-"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
