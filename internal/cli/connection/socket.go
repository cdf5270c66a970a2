package connection

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"
)

// Reply is one reply line from the local management socket.
type Reply struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *RemoteError    `json:"error,omitempty"`
}

// RemoteError is a command failure reported by the server.
type RemoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	return e.Message
}

// SocketClient talks to the local management socket.
type SocketClient struct {
	path    string
	timeout time.Duration
	conn    net.Conn
	reader  *bufio.Reader
}

// NewSocketClient creates a new socket client.
func NewSocketClient(socketPath string, timeout time.Duration) *SocketClient {
	return &SocketClient{path: socketPath, timeout: timeout}
}

// Connect connects to the local socket.
func (c *SocketClient) Connect() error {
	conn, err := net.DialTimeout("unix", c.path, c.timeout)
	if err != nil {
		return fmt.Errorf("connect %s: %w", c.path, err)
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// Close closes the socket connection.
func (c *SocketClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Execute sends one command and decodes its data into target, which may
// be nil. A failed command returns *RemoteError.
func (c *SocketClient) Execute(target any, cmd string, args ...string) error {
	if c.conn == nil {
		if err := c.Connect(); err != nil {
			return err
		}
	}
	if c.timeout > 0 {
		c.conn.SetDeadline(time.Now().Add(c.timeout))
	}

	line := strings.Join(append([]string{cmd}, args...), " ")
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		return err
	}

	raw, err := c.reader.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("read reply: %w", err)
	}

	var reply Reply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return fmt.Errorf("parse reply: %w", err)
	}
	if !reply.OK {
		if reply.Error == nil {
			return &RemoteError{Message: "command failed"}
		}
		return reply.Error
	}
	if target != nil && len(reply.Data) > 0 {
		if err := json.Unmarshal(reply.Data, target); err != nil {
			return fmt.Errorf("parse reply data: %w", err)
		}
	}
	return nil
}
