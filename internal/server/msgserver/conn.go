package msgserver

import (
	"bufio"
	"context"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/evant/instance-state/internal/core/domain"
	"github.com/evant/instance-state/internal/protocol/frame"
	"github.com/evant/instance-state/internal/telemetry/logger"
)

var errServerBusy = domain.ErrServiceUnavailable.WithDetails("connection limit reached")

// Conn is one client connection.
type Conn struct {
	ID      string
	netConn net.Conn
	br      *bufio.Reader
	bw      *bufio.Writer
	limiter *rate.Limiter

	requests atomic.Uint64
	closed   atomic.Bool
}

func newConn(nc net.Conn, rateLimit int) *Conn {
	c := &Conn{
		ID:      newConnID(),
		netConn: nc,
		br:      bufio.NewReader(nc),
		bw:      bufio.NewWriter(nc),
	}
	if rateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rateLimit), rateLimit)
	}
	return c
}

func newConnID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Close closes the connection once.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.netConn.Close()
}

// Requests returns the number of frames served on this connection.
func (c *Conn) Requests() uint64 {
	return c.requests.Load()
}

func (c *Conn) allow() bool {
	return c.limiter == nil || c.limiter.Allow()
}

func (s *Server) serveConn(ctx context.Context, c *Conn) {
	defer c.Close()

	if s.recorder != nil {
		s.recorder.IncConnections(Transport)
		defer s.recorder.DecConnections(Transport)
	}

	ctx = logger.WithConnID(ctx, c.ID)
	log := s.logger.With("conn_id", c.ID, "remote", remoteString(c.netConn))
	log.Debug("connection opened")
	defer func() {
		log.Debug("connection closed", "requests", c.Requests())
	}()

	for {
		// Wait for the next frame under the idle timeout.
		if err := c.netConn.SetReadDeadline(time.Now().Add(s.idleTimeout())); err != nil {
			return
		}
		if _, err := c.br.Peek(1); err != nil {
			s.logReadError(log, err)
			return
		}

		// Once a frame has started it must arrive within the read timeout.
		if err := c.netConn.SetReadDeadline(time.Now().Add(s.readTimeout())); err != nil {
			return
		}
		f, err := frame.Read(c.br, s.cfg.MaxPayload)
		if err != nil {
			if errors.Is(err, frame.ErrFrameTooLarge) || errors.Is(err, frame.ErrInvalidFlag) {
				log.Warn("protocol violation", "error", err)
				_ = s.writeFrame(c, frame.Error(domain.ErrMalformedMessage.WithDetails(err.Error())))
				return
			}
			s.logReadError(log, err)
			return
		}
		if f.Flag == frame.FlagError {
			log.Warn("client sent an error frame")
			return
		}

		seq := c.requests.Add(1)
		reqCtx := logger.WithRequestID(ctx, c.ID+"-"+strconv.FormatUint(seq, 10))

		if out, ok := s.handleFrame(reqCtx, c, f.Buffer()); ok {
			if err := s.writeFrame(c, out); err != nil {
				log.Debug("write failed", "error", err)
				return
			}
		}
	}
}

// handleFrame dispatches one request buffer and returns the frame to send,
// if any.
func (s *Server) handleFrame(ctx context.Context, c *Conn, buf []byte) (frame.Frame, bool) {
	start := time.Now()
	if s.recorder != nil {
		defer func() {
			s.recorder.ObserveMessageDuration(Transport, time.Since(start).Seconds())
		}()
	}

	wantsAnswer := s.expectsReply(buf)

	if !c.allow() {
		if s.recorder != nil {
			s.recorder.RecordRateLimited(Transport)
		}
		logger.L(ctx).Warn("request rate limited")
		return frame.Error(domain.ErrRateLimited), wantsAnswer
	}

	reply, err := s.dispatcher.Dispatch(ctx, buf)
	if err != nil {
		return frame.Error(err), wantsAnswer
	}
	if !reply.Send {
		return frame.Frame{}, false
	}
	return frame.Data(reply.Data), true
}

// expectsReply reports whether the client waits for an answer to buf:
// every Get does, mutations only when they are acknowledged.
func (s *Server) expectsReply(buf []byte) bool {
	if len(buf) == 0 {
		return false
	}
	if s.dispatcher.AckMutations() {
		return true
	}
	return domain.Kind(buf[0]) == domain.KindGet
}

func (s *Server) writeFrame(c *Conn, f frame.Frame) error {
	if err := c.netConn.SetWriteDeadline(time.Now().Add(s.writeTimeout())); err != nil {
		return err
	}
	if err := frame.Write(c.bw, f); err != nil {
		return err
	}
	return c.bw.Flush()
}

func (s *Server) logReadError(log logger.Logger, err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		log.Debug("connection timed out")
		return
	}
	log.Debug("connection read error", "error", err)
}
