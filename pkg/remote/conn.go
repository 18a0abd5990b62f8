// Package remote implements the session collaborators that live in the
// browser page: the image tracker, the audio elements, the renderer and the
// model loader. They all talk through one websocket link.
package remote

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// DefaultQueueSize is the outbound queue capacity of a Conn.
const DefaultQueueSize = 256

// textMessage is the websocket text frame opcode shared by gorilla and fasthttp.
const textMessage = 1

// MessageWriter is the write side of a websocket connection.
type MessageWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// Sender queues an outbound message.
type Sender interface {
	Send(msg Encoder) error
}

// Encoder is anything that serializes to a wire message.
type Encoder interface {
	Bytes() ([]byte, error)
}

// Conn is the outbound half of a browser link. Send never blocks: when the
// queue is full the message is dropped and ErrQueueFull returned, so callers
// holding a session lock are never stalled by a slow socket.
type Conn struct {
	id     string
	logger *slog.Logger
	out    chan []byte
	done   chan struct{}
	once   sync.Once

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// NewConn creates a link with the given queue size.
func NewConn(id string, queueSize int, logger *slog.Logger) *Conn {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Conn{
		id:     id,
		logger: logger,
		out:    make(chan []byte, queueSize),
		done:   make(chan struct{}),
	}
}

// ID returns the link identifier.
func (c *Conn) ID() string {
	return c.id
}

// Send encodes and queues a message.
func (c *Conn) Send(msg Encoder) error {
	select {
	case <-c.done:
		return ErrNotConnected
	default:
	}

	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	select {
	case c.out <- data:
		c.sent.Add(1)
		return nil
	default:
		c.dropped.Add(1)
		return ErrQueueFull
	}
}

// Pump writes queued messages to w until the link is closed, ctx is done or
// a write fails.
func (c *Conn) Pump(ctx context.Context, w MessageWriter) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case data := <-c.out:
			if err := w.WriteMessage(textMessage, data); err != nil {
				c.logger.Warn("link write failed", "link", c.id, "error", err)
				c.Close()
				return err
			}
		}
	}
}

// Close shuts the link. Safe to call more than once.
func (c *Conn) Close() {
	c.once.Do(func() { close(c.done) })
}

// Done is closed when the link shuts.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Stats returns how many messages were queued and dropped.
func (c *Conn) Stats() (sent, dropped uint64) {
	return c.sent.Load(), c.dropped.Load()
}
