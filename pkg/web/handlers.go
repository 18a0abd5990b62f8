package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-arstage/pkg/controls"
	"github.com/teslashibe/go-arstage/pkg/session"
)

// CreateSessionResponse is returned by POST /api/sessions.
type CreateSessionResponse struct {
	ID        string         `json:"id"`
	WebSocket string         `json:"ws"`
	ModelPath string         `json:"model_path,omitempty"`
	Status    session.Status `json:"status"`
}

// ControlResponse is returned by POST /api/sessions/:id/controls/:action.
type ControlResponse struct {
	Action  controls.Action `json:"action"`
	Applied bool            `json:"applied"`
	Offset  controls.Offset `json:"offset"`
}

func isFatal(err error) bool {
	return errors.Is(err, session.ErrStartFailed)
}

// errorStatus maps session errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, session.ErrAlreadyStarted):
		return fiber.StatusConflict
	case errors.Is(err, session.ErrClosed):
		return fiber.StatusGone
	case errors.Is(err, controls.ErrUnknownAction):
		return fiber.StatusBadRequest
	case isFatal(err):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func errorJSON(c *fiber.Ctx, err error) error {
	msg := err.Error()
	if isFatal(err) {
		msg = session.ReloadMessage
	}
	return c.Status(errorStatus(err)).JSON(fiber.Map{"error": msg})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"ok":       true,
		"sessions": s.sessions.Count(),
		"status":   s.statusHub.ClientCount(),
	})
}

func (s *Server) handleListControls(c *fiber.Ctx) error {
	return c.JSON(controls.Actions)
}

func (s *Server) handleCreateSession(c *fiber.Ctx) error {
	e, err := s.createSession()
	if err != nil {
		return errorJSON(c, err)
	}
	id := e.s.ID()
	return c.Status(fiber.StatusCreated).JSON(CreateSessionResponse{
		ID:        id,
		WebSocket: "/ws/session/" + id,
		ModelPath: s.cfg.ModelPath,
		Status:    e.s.Status(),
	})
}

func (s *Server) handleListSessions(c *fiber.Ctx) error {
	list := s.sessions.List()
	out := make([]session.Status, len(list))
	for i, sess := range list {
		out[i] = sess.Status()
	}
	return c.JSON(fiber.Map{
		"sessions": out,
		"count":    len(out),
	})
}

func (s *Server) handleGetSession(c *fiber.Ctx) error {
	e, err := s.lookup(c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(e.s.Status())
}

func (s *Server) handleDeleteSession(c *fiber.Ctx) error {
	if err := s.deleteSession(c.Params("id")); err != nil {
		return errorJSON(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleStartSession(c *fiber.Ctx) error {
	e, err := s.lookup(c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	if err := s.start(e); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(e.s.Status())
}

func (s *Server) handleControl(c *fiber.Ctx) error {
	e, err := s.lookup(c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	action, err := controls.ParseAction(c.Params("action"))
	if err != nil {
		return errorJSON(c, err)
	}
	applied, err := e.s.Control(action)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(ControlResponse{
		Action:  action,
		Applied: applied,
		Offset:  e.s.Status().Offset,
	})
}
