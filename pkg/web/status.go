package web

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-arstage/pkg/hub"
	"github.com/teslashibe/go-arstage/pkg/session"
)

// Status feed topics.
const (
	TopicStatus  = "status"
	TopicSession = "session"
)

// SessionEvent is a lifecycle notice on the status feed.
type SessionEvent struct {
	Event string    `json:"event"` // created, started, fatal, deleted
	ID    string    `json:"id"`
	At    time.Time `json:"at"`
}

// StatusSnapshot is the periodic status broadcast.
type StatusSnapshot struct {
	Sessions []session.Status `json:"sessions"`
	At       time.Time        `json:"at"`
}

func statusHandler(s *Server) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		client, err := hub.NewClient(s.ctx, s.statusHub, c)
		if err != nil {
			return
		}
		client.Run(s.ctx)
	})
}

func (s *Server) snapshot() StatusSnapshot {
	list := s.sessions.List()
	snap := StatusSnapshot{Sessions: make([]session.Status, len(list)), At: time.Now()}
	for i, sess := range list {
		snap.Sessions[i] = sess.Status()
	}
	return snap
}

// publishStatus pushes a snapshot every StatusInterval while anyone listens.
func (s *Server) publishStatus(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.statusHub.ClientCount() == 0 {
				continue
			}
			if err := s.statusHub.BroadcastJSON(TopicStatus, s.snapshot()); err != nil {
				s.logger.Warn("status broadcast failed", "error", err)
			}
		}
	}
}

func (s *Server) broadcastEvent(event, id string) {
	if s.statusHub.ClientCount() == 0 {
		return
	}
	ev := SessionEvent{Event: event, ID: id, At: time.Now()}
	if err := s.statusHub.BroadcastJSON(TopicSession, ev); err != nil {
		s.logger.Warn("session event broadcast failed", "error", err)
	}
}
