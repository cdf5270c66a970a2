package localserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/evant/instance-state/internal/core/domain"
	"github.com/evant/instance-state/internal/core/service"
	"github.com/evant/instance-state/internal/infra/buildinfo"
	"github.com/evant/instance-state/internal/telemetry/logger"
)

// Deps are the collaborators the commands act on.
type Deps struct {
	Store     *service.StateStore
	Lifecycle *service.Lifecycle
	// Shutdown starts a graceful shutdown.
	Shutdown func(reason string)
	// Connections returns the live message connection count.
	Connections func() int
	StartedAt   time.Time
}

// Reply is one JSON line written back per command.
type Reply struct {
	OK    bool        `json:"ok"`
	Data  any         `json:"data,omitempty"`
	Error *ReplyError `json:"error,omitempty"`
}

// ReplyError carries a failed command's code and message.
type ReplyError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Status is the data of the status command.
type Status struct {
	service.StoreStats
	Backend     string         `json:"backend"`
	Connections int            `json:"connections"`
	Uptime      string         `json:"uptime"`
	LogLevel    string         `json:"log_level"`
	Build       buildinfo.Info `json:"build"`
}

// Handler handles local management commands.
type Handler struct {
	deps Deps
}

// NewHandler creates a new Handler.
func NewHandler(deps Deps) *Handler {
	if deps.StartedAt.IsZero() {
		deps.StartedAt = time.Now()
	}
	return &Handler{deps: deps}
}

// Execute executes a local management command and writes one reply line.
func (h *Handler) Execute(ctx context.Context, w io.Writer, cmd string, args []string) error {
	data, err := h.run(ctx, strings.ToLower(cmd), args)

	reply := Reply{OK: err == nil, Data: data}
	if err != nil {
		code := domain.GetErrorCode(err)
		if code == "" {
			code = domain.ErrInternal.Code
		}
		reply.Error = &ReplyError{Code: code, Message: err.Error()}
		logger.L(ctx).Warn("local command failed", "command", cmd, "error", err)
	}

	enc := json.NewEncoder(w)
	return enc.Encode(reply)
}

func (h *Handler) run(ctx context.Context, cmd string, args []string) (any, error) {
	switch cmd {
	case "status":
		return h.handleStatus(), nil
	case "snapshot":
		return h.deps.Store.Snapshot(), nil
	case "persist":
		return h.handlePersist(ctx)
	case "loglevel":
		return h.handleLogLevel(args)
	case "shutdown":
		return h.handleShutdown()
	default:
		return nil, domain.ErrInvalidArgument.WithDetails("unknown command: " + cmd)
	}
}

func (h *Handler) handleStatus() Status {
	st := Status{
		StoreStats: h.deps.Store.Stats(),
		Backend:    "none",
		Uptime:     time.Since(h.deps.StartedAt).Round(time.Second).String(),
		LogLevel:   logger.GetLevel(),
		Build:      buildinfo.Get(),
	}
	if h.deps.Lifecycle != nil {
		st.Backend = h.deps.Lifecycle.Backend()
	}
	if h.deps.Connections != nil {
		st.Connections = h.deps.Connections()
	}
	return st
}

func (h *Handler) handlePersist(ctx context.Context) (any, error) {
	if h.deps.Lifecycle == nil {
		return map[string]any{"backend": "none", "keys": 0}, nil
	}
	n, err := h.deps.Lifecycle.Persist(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"backend": h.deps.Lifecycle.Backend(), "keys": n}, nil
}

func (h *Handler) handleLogLevel(args []string) (any, error) {
	if len(args) == 0 {
		return map[string]string{"level": logger.GetLevel()}, nil
	}
	level := strings.ToLower(args[0])
	if !logger.ValidLevel(level) {
		return nil, domain.ErrInvalidArgument.WithDetails(fmt.Sprintf("invalid log level %q", args[0]))
	}
	logger.SetLevel(level)
	return map[string]string{"level": logger.GetLevel()}, nil
}

func (h *Handler) handleShutdown() (any, error) {
	if h.deps.Shutdown == nil {
		return nil, domain.ErrServiceUnavailable.WithDetails("shutdown not wired")
	}
	h.deps.Shutdown("local command")
	return map[string]string{"status": "shutting down"}, nil
}
