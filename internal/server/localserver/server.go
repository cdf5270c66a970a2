package localserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/evant/instance-state/internal/telemetry/logger"
)

// maxLineLength bounds one command line.
const maxLineLength = 4096

// Server represents the local management server.
type Server struct {
	listener net.Listener
	path     string
	handler  *Handler
	logger   logger.Logger
	timeout  time.Duration
	running  atomic.Bool
	wg       sync.WaitGroup
}

// New creates a new local server on socketPath.
func New(socketPath string, handler *Handler, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	return &Server{
		path:    socketPath,
		handler: handler,
		logger:  log.With("component", "localserver"),
		timeout: time.Minute,
	}
}

// Listen binds the socket. A stale socket file is removed first and the new
// one is restricted to the owner.
func (s *Server) Listen() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("localserver: remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("localserver: listen %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		ln.Close()
		return fmt.Errorf("localserver: chmod socket: %w", err)
	}

	s.listener = ln
	s.running.Store(true)
	s.logger.Info("local server listening", "path", s.path)
	return nil
}

// Serve accepts connections until Shutdown. It binds first if Listen was
// not called.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

// Shutdown stops accepting connections and waits for active ones to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	var closeErr error
	if s.listener != nil {
		closeErr = s.listener.Close()
		if errors.Is(closeErr, net.ErrClosed) {
			closeErr = nil
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return closeErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 256), maxLineLength)
	w := bufio.NewWriter(conn)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.timeout))
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				s.logger.Debug("local connection read error", "error", err)
			}
			return
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		s.logger.Info("local command", "command", fields[0])
		_ = conn.SetWriteDeadline(time.Now().Add(s.timeout))
		if err := s.handler.Execute(ctx, w, fields[0], fields[1:]); err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			return
		}
	}
}
