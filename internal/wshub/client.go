package wshub

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

var (
	ErrSocketClosed = errors.New("socket closed")
	ErrSlowConsumer = errors.New("send buffer full")
)

// Close codes sent to peers.
const (
	StatusRejected         websocket.StatusCode = 4000
	StatusIncorrectKey     websocket.StatusCode = 4030
	StatusRoomNotExists    websocket.StatusCode = 4040
	StatusSlowConsumer     websocket.StatusCode = 4080
	StatusAlreadyConnected websocket.StatusCode = 4090
	StatusRoomClosing      websocket.StatusCode = 4100
)

const sendBuffer = 1024

const writeTimeout = 10 * time.Second

// Socket is what the hub needs from a connection. Send must not block.
// Replay hands over the room history on admission; it is delivered before
// anything sent afterwards and is not subject to the send buffer.
type Socket interface {
	Replay(history [][]byte)
	Send(data []byte) error
	Close(code websocket.StatusCode, reason string)
}

// Client adapts a websocket connection to Socket. Messages are queued and
// written by WritePump; Close is asynchronous and flushes the queue first.
type Client struct {
	ID   string
	Conn *websocket.Conn

	mu      sync.Mutex
	backlog [][]byte

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	code      websocket.StatusCode
	reason    string
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		ID:   uuid.NewString(),
		Conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// Replay keeps history aside for WritePump. history must not be modified
// afterwards.
func (c *Client) Replay(history [][]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backlog = append(c.backlog, history...)
}

func (c *Client) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrSocketClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
		c.Close(StatusSlowConsumer, "status.slow_consumer")
		return ErrSlowConsumer
	}
}

func (c *Client) Close(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		c.code, c.reason = code, reason
		close(c.done)
	})
}

// Done is closed once Close has been called.
func (c *Client) Done() <-chan struct{} { return c.done }

// WritePump writes the replayed history, then queued messages until the
// context ends or the client is closed, in which case the remaining queue is
// flushed before the close frame.
func (c *Client) WritePump(ctx context.Context) {
	if err := c.writeBacklog(ctx); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			c.flush(ctx)
			c.Conn.Close(c.code, c.reason)
			return
		case msg := <-c.send:
			if err := c.write(ctx, msg); err != nil {
				return
			}
		}
	}
}

func (c *Client) writeBacklog(ctx context.Context) error {
	c.mu.Lock()
	backlog := c.backlog
	c.backlog = nil
	c.mu.Unlock()
	for _, msg := range backlog {
		if err := c.write(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) flush(ctx context.Context) {
	for {
		select {
		case msg := <-c.send:
			if err := c.write(ctx, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(ctx context.Context, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.Conn.Write(ctx, websocket.MessageText, msg)
}

// ReadPump feeds every inbound text message to handle until the connection
// fails or the context ends.
func (c *Client) ReadPump(ctx context.Context, handle func([]byte)) error {
	for {
		typ, data, err := c.Conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			continue
		}
		handle(data)
	}
}
