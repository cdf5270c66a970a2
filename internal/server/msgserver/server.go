package msgserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/evant/instance-state/internal/core/service"
	"github.com/evant/instance-state/internal/protocol/frame"
	"github.com/evant/instance-state/internal/telemetry/logger"
	"github.com/evant/instance-state/pkg/cmap"
)

// Transport is the label used for metrics.
const Transport = "message"

// Config holds the message server configuration.
type Config struct {
	// Network is "tcp" or "unix".
	Network string
	// Address is host:port for tcp or a socket path for unix.
	Address string
	// ReadTimeout bounds reading one frame once its first byte arrived.
	ReadTimeout time.Duration
	// WriteTimeout bounds writing one reply.
	WriteTimeout time.Duration
	// IdleTimeout closes connections with no traffic.
	IdleTimeout time.Duration
	// RateLimit is requests per second per connection. 0 disables it.
	RateLimit int
	// MaxPayload limits one request frame.
	MaxPayload int
	// MaxConnections limits concurrent connections. 0 means unlimited.
	MaxConnections int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Network:        "tcp",
		Address:        "127.0.0.1:7420",
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    5 * time.Minute,
		RateLimit:      1000,
		MaxPayload:     frame.MaxPayload,
		MaxConnections: 256,
	}
}

// Recorder receives transport metrics.
type Recorder interface {
	IncConnections(transport string)
	DecConnections(transport string)
	RecordRateLimited(transport string)
	ObserveMessageDuration(transport string, seconds float64)
}

// Server is the message protocol server.
type Server struct {
	cfg        *Config
	dispatcher *service.Dispatcher
	logger     logger.Logger
	recorder   Recorder

	ln      net.Listener
	conns   *cmap.Map[string, *Conn]
	running atomic.Bool
	wg      sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Server) {
		s.recorder = r
	}
}

// New creates a message server in front of dispatcher.
func New(cfg *Config, dispatcher *service.Dispatcher, opts ...Option) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Server{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger.Default(),
		conns:      cmap.New[string, *Conn](),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "msgserver")
	return s
}

// Start binds the listener and serves connections in the background.
func (s *Server) Start(ctx context.Context) error {
	network := s.cfg.Network
	if network == "" {
		network = "tcp"
	}

	if network == "unix" {
		// A stale socket from an unclean exit would make Listen fail.
		if err := os.Remove(s.cfg.Address); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("msgserver: remove stale socket: %w", err)
		}
	}

	ln, err := net.Listen(network, s.cfg.Address)
	if err != nil {
		return fmt.Errorf("msgserver: listen %s %s: %w", network, s.cfg.Address, err)
	}
	if network == "unix" {
		if err := os.Chmod(s.cfg.Address, 0o600); err != nil {
			ln.Close()
			return fmt.Errorf("msgserver: chmod socket: %w", err)
		}
	}

	s.ln = ln
	s.running.Store(true)
	s.logger.Info("message server listening", "network", network, "address", ln.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.acceptLoop(ctx); err != nil && s.running.Load() {
			s.logger.Error("message server accept failed", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// ConnectionCount returns the number of live connections.
func (s *Server) ConnectionCount() int {
	return s.conns.Count()
}

// Shutdown stops accepting, closes live connections and waits for their
// goroutines to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.running.Swap(false) {
		return nil
	}

	var firstErr error
	if s.ln != nil {
		if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			firstErr = err
		}
	}

	// Unblock readers parked on idle connections.
	s.conns.Range(func(_ string, c *Conn) bool {
		c.Close()
		return true
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.Info("message server stopped")
	return firstErr
}

func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		if max := s.cfg.MaxConnections; max > 0 && s.conns.Count() >= max {
			s.logger.Warn("connection limit reached", "remote", remoteString(nc), "max", max)
			s.reject(nc)
			continue
		}

		c := newConn(nc, s.cfg.RateLimit)
		if !s.track(c) {
			return nil
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.conns.Delete(c.ID)
			s.serveConn(ctx, c)
		}()
	}
}

// track registers c. It returns false and closes c when Shutdown ran
// between Accept and registration, since Shutdown's close pass missed it.
func (s *Server) track(c *Conn) bool {
	s.conns.Set(c.ID, c)
	if s.running.Load() {
		return true
	}
	s.conns.Delete(c.ID)
	c.Close()
	return false
}

func (s *Server) reject(nc net.Conn) {
	_ = nc.SetWriteDeadline(time.Now().Add(s.writeTimeout()))
	_ = frame.Write(nc, frame.Error(errServerBusy))
	_ = nc.Close()
}

func (s *Server) readTimeout() time.Duration {
	if s.cfg.ReadTimeout > 0 {
		return s.cfg.ReadTimeout
	}
	return 30 * time.Second
}

func (s *Server) writeTimeout() time.Duration {
	if s.cfg.WriteTimeout > 0 {
		return s.cfg.WriteTimeout
	}
	return 30 * time.Second
}

func (s *Server) idleTimeout() time.Duration {
	if s.cfg.IdleTimeout > 0 {
		return s.cfg.IdleTimeout
	}
	return 5 * time.Minute
}

func remoteString(nc net.Conn) string {
	if addr := nc.RemoteAddr(); addr != nil && addr.String() != "" {
		return addr.String()
	}
	return "local"
}
