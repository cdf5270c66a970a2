package connection

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/evant/instance-state/internal/core/domain"
	"github.com/evant/instance-state/internal/protocol/codec"
	"github.com/evant/instance-state/internal/protocol/frame"
)

// MessageClient speaks the framed message protocol to instancestate-server.
type MessageClient struct {
	conn    net.Conn
	br      *bufio.Reader
	timeout time.Duration
	ack     bool
}

// DialMessage connects to the message transport.
//
// ack must match the server's ack_mutations setting: when true, Set and
// Remove wait for the server's acknowledgement.
func DialMessage(ctx context.Context, network, addr string, timeout time.Duration, ack bool) (*MessageClient, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %w", network, addr, err)
	}
	return NewMessageClient(conn, timeout, ack), nil
}

// NewMessageClient wraps an established connection.
func NewMessageClient(conn net.Conn, timeout time.Duration, ack bool) *MessageClient {
	return &MessageClient{
		conn:    conn,
		br:      bufio.NewReader(conn),
		timeout: timeout,
		ack:     ack,
	}
}

// Close closes the connection.
func (c *MessageClient) Close() error {
	return c.conn.Close()
}

// Get requests key. present is false when the server has no value for it.
func (c *MessageClient) Get(key string) (value []byte, present bool, err error) {
	reply, err := c.roundTrip(domain.NewGet(key), true)
	if err != nil {
		return nil, false, err
	}
	value = codec.DecodeReply(reply)
	return value, value != nil, nil
}

// Set stores value under key.
func (c *MessageClient) Set(key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := c.roundTrip(domain.NewSet(key, value), c.ack)
	return err
}

// Remove deletes key.
func (c *MessageClient) Remove(key string) error {
	_, err := c.roundTrip(domain.NewRemove(key), c.ack)
	return err
}

// Send writes a raw request buffer and, when wait is set, returns the reply
// buffer. Server errors come back as *domain.DomainError.
func (c *MessageClient) Send(req []byte, wait bool) ([]byte, error) {
	if err := c.deadline(); err != nil {
		return nil, err
	}
	if err := frame.Write(c.conn, frame.Data(req)); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	if !wait {
		return nil, nil
	}

	f, err := frame.Read(c.br, frame.MaxPayload)
	if err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	if de := f.Err(); de != nil {
		return nil, de
	}
	return f.Buffer(), nil
}

func (c *MessageClient) roundTrip(op *domain.Operation, wait bool) ([]byte, error) {
	req, err := codec.Encode(op)
	if err != nil {
		return nil, err
	}
	return c.Send(req, wait)
}

func (c *MessageClient) deadline() error {
	if c.timeout <= 0 {
		return nil
	}
	return c.conn.SetDeadline(time.Now().Add(c.timeout))
}
