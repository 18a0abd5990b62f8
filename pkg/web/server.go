// Package web serves the go-arstage HTTP API, the browser session link and
// the status feed.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/teslashibe/go-arstage/pkg/hub"
	"github.com/teslashibe/go-arstage/pkg/playback"
	"github.com/teslashibe/go-arstage/pkg/remote"
	"github.com/teslashibe/go-arstage/pkg/session"
)

// AudioFactory builds a host-side audio element for a track. When set, the
// session plays audio locally instead of on the page.
type AudioFactory func(track playback.TrackConfig) (playback.Audio, error)

// Config configures the server.
type Config struct {
	// Port is the TCP port to listen on.
	Port int

	// StaticDir is served at / when set.
	StaticDir string

	// Session is the per-session configuration.
	Session session.Config

	// Tracks is the audio track layout of every session.
	Tracks []playback.TrackConfig

	// ModelPath is the asset the page loads for each session.
	ModelPath string

	// StartTimeout bounds how long a start waits for the page tracker.
	StartTimeout time.Duration

	// AttachTimeout is how long a new session waits for its page to connect
	// before it is deleted. Zero disables the deadline.
	AttachTimeout time.Duration

	// QueueSize is the outbound queue length of each page link.
	QueueSize int

	// StatusInterval is how often session status is pushed to /ws/status.
	StatusInterval time.Duration

	// Audio optionally replaces page audio with host audio.
	Audio AudioFactory

	// Debug enables request logging.
	Debug bool

	Logger *slog.Logger
}

// DefaultConfig returns a server configuration on port 8080.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		Session:        session.DefaultConfig(),
		Tracks:         playback.DefaultTracks(),
		StartTimeout:   30 * time.Second,
		AttachTimeout:  time.Minute,
		QueueSize:      remote.DefaultQueueSize,
		StatusInterval: time.Second,
		Logger:         slog.Default(),
	}
}

// entry is a live session and its page link.
type entry struct {
	s    *session.Session
	link *remote.Link

	mu       sync.Mutex
	attached bool
	deadline *time.Timer
}

// attach marks the page link as connected. It reports false if a page is
// already attached.
func (e *entry) attach() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.attached {
		return false
	}
	e.attached = true
	if e.deadline != nil {
		e.deadline.Stop()
	}
	return true
}

func (e *entry) stopDeadline() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deadline != nil {
		e.deadline.Stop()
	}
}

// Server hosts sessions over HTTP and websockets.
type Server struct {
	cfg       Config
	app       *fiber.App
	logger    *slog.Logger
	sessions  *session.Manager
	statusHub *hub.Hub

	// ctx scopes background work started by requests; cancelled by Shutdown.
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.RWMutex
	links map[string]*entry
}

// NewServer creates the server and its routes.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Session.Logger == nil {
		cfg.Session.Logger = cfg.Logger
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:       cfg,
		logger:    cfg.Logger.With("component", "web"),
		sessions:  session.NewManager(),
		statusHub: hub.New("status", cfg.Logger),
		ctx:       ctx,
		cancel:    cancel,
		links:     make(map[string]*entry),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-arstage",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New())
	if cfg.Debug {
		app.Use(logger.New())
	}

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/controls", s.handleListControls)
	api.Post("/sessions", s.handleCreateSession)
	api.Get("/sessions", s.handleListSessions)
	api.Get("/sessions/:id", s.handleGetSession)
	api.Delete("/sessions/:id", s.handleDeleteSession)
	api.Post("/sessions/:id/start", s.handleStartSession)
	api.Post("/sessions/:id/controls/:action", s.handleControl)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/session/:id", websocket.New(s.handleSessionWS))
	app.Get("/ws/status", statusHandler(s))

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Sessions returns the session registry.
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

// StatusHub returns the status broadcast hub.
func (s *Server) StatusHub() *hub.Hub {
	return s.statusHub
}

// Run starts the hub and the status publisher, then serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	go s.statusHub.Run(s.ctx)
	go s.publishStatus(s.ctx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", fmt.Sprintf("http://localhost:%d", s.cfg.Port))
		errc <- s.app.Listen(fmt.Sprintf(":%d", s.cfg.Port))
	}()

	select {
	case err := <-errc:
		s.cancel()
		return err
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown closes every session and stops the server.
func (s *Server) Shutdown() error {
	s.cancel()
	s.sessions.CloseAll()

	s.mu.Lock()
	for id, e := range s.links {
		e.link.Close()
		delete(s.links, id)
	}
	s.mu.Unlock()

	return s.app.Shutdown()
}

// createSession builds a session with a page link and starts its model load.
func (s *Server) createSession() (*entry, error) {
	var e *entry
	_, err := s.sessions.Create(s.ctx, func(id string) (*session.Session, error) {
		link := remote.NewLink(remote.LinkConfig{
			SessionID: id,
			Tracks:    s.cfg.Tracks,
			QueueSize: s.cfg.QueueSize,
			Clock:     s.cfg.Session.Clock,
			Logger:    s.cfg.Logger,
		})

		deps := link.Deps()
		if s.cfg.Audio != nil {
			tracks, err := s.localTracks()
			if err != nil {
				link.Close()
				return nil, err
			}
			deps.Tracks = tracks
		}

		sess := session.New(id, s.cfg.Session, deps)
		e = &entry{s: sess, link: link}
		link.Bind(sess, func() { s.startFromPage(e) })
		return sess, nil
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.links[e.s.ID()] = e
	s.mu.Unlock()

	if d := s.cfg.AttachTimeout; d > 0 {
		id := e.s.ID()
		e.mu.Lock()
		e.deadline = time.AfterFunc(d, func() { s.expire(e, id) })
		e.mu.Unlock()
	}

	e.s.LoadModel(s.ctx, e.link.Loader(), s.cfg.ModelPath)
	s.broadcastEvent("created", e.s.ID())
	return e, nil
}

// expire deletes a session whose page never connected.
func (s *Server) expire(e *entry, id string) {
	e.mu.Lock()
	attached := e.attached
	e.mu.Unlock()
	if attached {
		return
	}
	s.logger.Info("no page connected, deleting session", "session", id)
	if err := s.deleteSession(id); err != nil {
		s.logger.Debug("session already gone", "session", id)
	}
}

func (s *Server) localTracks() ([]session.TrackBinding, error) {
	out := make([]session.TrackBinding, 0, len(s.cfg.Tracks))
	for _, tc := range s.cfg.Tracks {
		a, err := s.cfg.Audio(tc)
		if err != nil {
			return nil, fmt.Errorf("audio track %s: %w", tc.Name, err)
		}
		out = append(out, session.TrackBinding{Config: tc, Audio: a})
	}
	return out, nil
}

func (s *Server) lookup(id string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.links[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return e, nil
}

func (s *Server) deleteSession(id string) error {
	s.mu.Lock()
	e, ok := s.links[id]
	delete(s.links, id)
	s.mu.Unlock()
	if !ok {
		return session.ErrNotFound
	}

	e.stopDeadline()
	e.link.Close()
	if err := s.sessions.Delete(id); err != nil {
		return err
	}
	s.broadcastEvent("deleted", id)
	return nil
}

// start runs the session start sequence with the configured timeout and
// tells the page when it is fatal.
func (s *Server) start(e *entry) error {
	ctx := s.ctx
	if s.cfg.StartTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.StartTimeout)
		defer cancel()
	}

	err := e.s.Start(ctx)
	switch {
	case err == nil:
		s.broadcastEvent("started", e.s.ID())
	case isFatal(err):
		if ferr := e.link.SendFatal(session.ReloadMessage); ferr != nil {
			s.logger.Warn("fatal notice not sent", "session", e.s.ID(), "error", ferr)
		}
		s.broadcastEvent("fatal", e.s.ID())
	}
	return err
}

// startFromPage handles a start pressed on the page itself.
func (s *Server) startFromPage(e *entry) {
	if err := s.start(e); err != nil {
		s.logger.Warn("start from page failed", "session", e.s.ID(), "error", err)
	}
}
