package web

import (
	"context"

	"github.com/gofiber/contrib/websocket"

	"github.com/teslashibe/go-arstage/pkg/remote"
)

// handleSessionWS is the page link of one session. One page per session:
// a second connection is refused, and when the page goes away the session
// ends with it, since a reloaded page creates a new session.
func (s *Server) handleSessionWS(c *websocket.Conn) {
	id := c.Params("id")
	e, err := s.lookup(id)
	if err != nil {
		s.logger.Warn("page link for unknown session", "session", id)
		return
	}

	if !e.attach() {
		s.logger.Warn("page link already attached", "session", id)
		return
	}

	s.logger.Info("page connected", "session", id)

	stop := s.startPump(e, c)
	defer func() {
		// Fails a write stuck on a dead peer so stop can return.
		c.Close()
		stop()
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			break
		}
		if err := e.link.Handle(data); err != nil {
			s.logger.Warn("page message rejected", "session", id, "error", err)
		}
	}

	s.logger.Info("page disconnected", "session", id)
	if err := s.deleteSession(id); err != nil {
		s.logger.Debug("session already gone", "session", id)
	}
}

// startPump runs the link's write loop on w. The returned stop cancels it and
// waits for the loop to exit; fiber recycles the connection once the handler
// returns, so no write may still be in flight by then.
func (s *Server) startPump(e *entry, w remote.MessageWriter) (stop func()) {
	id := e.s.ID()
	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := e.link.Conn().Pump(ctx, w); err != nil && ctx.Err() == nil {
			s.logger.Warn("page link write loop ended", "session", id, "error", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
