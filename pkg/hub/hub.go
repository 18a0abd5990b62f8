package hub

import (
	"context"
	"log/slog"
	"sync"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 64

// Subscriber receives broadcasts on C until it is unsubscribed or dropped.
type Subscriber struct {
	C <-chan Message

	send chan Message
}

// Hub maintains the set of subscribers and broadcasts messages to them.
type Hub struct {
	name   string
	logger *slog.Logger

	subscribers map[*Subscriber]bool
	broadcast   chan Message
	register    chan *Subscriber
	unregister  chan *Subscriber

	mu      sync.RWMutex
	count   int
	running bool
	dropped uint64
}

// New creates a hub. Call Run to start it.
func New(name string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		name:        name,
		logger:      logger.With("hub", name),
		subscribers: make(map[*Subscriber]bool),
		broadcast:   make(chan Message, 256),
		register:    make(chan *Subscriber),
		unregister:  make(chan *Subscriber),
	}
}

// Run is the hub's main loop. It returns when ctx is done, closing every
// subscriber.
func (h *Hub) Run(ctx context.Context) {
	h.setRunning(true)
	defer h.setRunning(false)

	for {
		select {
		case <-ctx.Done():
			for s := range h.subscribers {
				h.remove(s)
			}
			return

		case s := <-h.register:
			h.subscribers[s] = true
			h.setCount()
			h.logger.Debug("subscriber connected", "total", len(h.subscribers))

		case s := <-h.unregister:
			if h.subscribers[s] {
				h.remove(s)
				h.logger.Debug("subscriber disconnected", "remaining", len(h.subscribers))
			}

		case msg := <-h.broadcast:
			for s := range h.subscribers {
				select {
				case s.send <- msg:
				default:
					// Too slow. Drop it; the client reconnects.
					h.remove(s)
					h.logger.Warn("dropped slow subscriber")
				}
			}
		}
	}
}

// remove closes and forgets s. Only called from Run.
func (h *Hub) remove(s *Subscriber) {
	delete(h.subscribers, s)
	h.setCount()
	close(s.send)
}

func (h *Hub) setCount() {
	h.mu.Lock()
	h.count = len(h.subscribers)
	h.mu.Unlock()
}

func (h *Hub) setRunning(r bool) {
	h.mu.Lock()
	h.running = r
	h.mu.Unlock()
}

// Subscribe registers a new subscriber. Run must be running.
func (h *Hub) Subscribe(ctx context.Context, buffer int) (*Subscriber, error) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan Message, buffer)
	s := &Subscriber{C: ch, send: ch}

	select {
	case h.register <- s:
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Unsubscribe removes s. Safe to call after the hub dropped it.
func (h *Hub) Unsubscribe(ctx context.Context, s *Subscriber) {
	select {
	case h.unregister <- s:
	case <-ctx.Done():
	}
}

// Broadcast queues msg for every subscriber. It never blocks; when the
// broadcast queue is full the message is dropped.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.mu.Lock()
		h.dropped++
		h.mu.Unlock()
		h.logger.Warn("broadcast queue full, dropping message", "topic", msg.Topic)
	}
}

// BroadcastJSON encodes v under topic and broadcasts it.
func (h *Hub) BroadcastJSON(topic string, v any) error {
	msg, err := NewJSONMessage(topic, v)
	if err != nil {
		return err
	}
	h.Broadcast(msg)
	return nil
}

// ClientCount returns the number of subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// IsRunning returns whether Run is active.
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

// Dropped returns how many broadcasts were discarded.
func (h *Hub) Dropped() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}
