package ipc

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/kpcyrd/brchd/internal/status"
	"github.com/kpcyrd/brchd/internal/task"
)

// Client is a short-lived or long-lived connection to the daemon's IPC
// socket, depending on which method is used.
type Client struct {
	socketPath string
	dialer     net.Dialer
}

// NewClient creates a client that dials socketPath on demand.
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		dialer:     net.Dialer{Timeout: 5 * time.Second},
	}
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	conn, err := c.dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting to ipc socket %s: %w", c.socketPath, err)
	}
	return conn, nil
}

// PushQueue enqueues t on the daemon and returns once the message has been
// written; it does not wait for an acknowledgement (there is none).
func (c *Client) PushQueue(ctx context.Context, t task.Task) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return WriteMessage(conn, PushQueue(t))
}

// FetchQueue requests and returns a snapshot of the daemon's current queue.
func (c *Client) FetchQueue(ctx context.Context) ([]task.Task, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := WriteMessage(conn, QueueReq()); err != nil {
		return nil, err
	}

	r := bufio.NewReader(conn)
	msg, err := ReadMessage(r)
	if err != nil {
		return nil, err
	}
	if msg.Type != MsgQueueResp {
		return nil, fmt.Errorf("unexpected ipc response type %q to QueueReq", msg.Type)
	}
	return msg.Queue, nil
}

// Shutdown asks the daemon to begin a graceful shutdown.
func (c *Client) Shutdown(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return WriteMessage(conn, Shutdown())
}

// Subscribe opens a long-lived connection and streams status updates onto
// the returned channel until ctx is cancelled or the daemon disconnects.
// The channel is closed when the subscription ends.
func (c *Client) Subscribe(ctx context.Context) (<-chan status.Status, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	if err := WriteMessage(conn, Subscribe()); err != nil {
		conn.Close()
		return nil, err
	}

	out := make(chan status.Status, 1)
	go func() {
		defer conn.Close()
		defer close(out)

		r := bufio.NewReader(conn)
		for {
			msg, err := ReadMessage(r)
			if err != nil {
				return
			}
			if msg.Type != MsgStatusResp || msg.Status == nil {
				continue // tolerate keepalive-shaped messages silently
			}
			select {
			case out <- *msg.Status:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	return out, nil
}
