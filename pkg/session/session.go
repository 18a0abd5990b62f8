package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-arstage/pkg/animation"
	"github.com/teslashibe/go-arstage/pkg/controls"
	"github.com/teslashibe/go-arstage/pkg/frame"
	"github.com/teslashibe/go-arstage/pkg/playback"
	"github.com/teslashibe/go-arstage/pkg/pose"
	"github.com/teslashibe/go-arstage/pkg/presence"
)

// Config holds per-session tuning.
type Config struct {
	// Smoothing is the pose smoothing factor in (0, 1].
	Smoothing float64

	// FrameRate is the frame loop refresh rate in Hz.
	FrameRate float64

	// Limits configures the manual transform controller.
	Limits controls.Limits

	// Clock supplies frame timestamps. Defaults to the wall clock.
	Clock frame.Clock

	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the stock session configuration.
func DefaultConfig() Config {
	return Config{
		Smoothing: pose.DefaultSmoothing,
		FrameRate: frame.DefaultFrameRate,
		Limits:    controls.DefaultLimits(),
		Clock:     frame.SystemClock{},
		Logger:    slog.Default(),
	}
}

// Deps are the external collaborators of a session.
type Deps struct {
	Tracker  Tracker
	Renderer frame.Renderer
	Tracks   []TrackBinding
}

// Session is one AR presentation.
type Session struct {
	id        string
	createdAt time.Time
	logger    *slog.Logger
	tracker   Tracker
	loop      *frame.Loop

	mu          sync.Mutex
	presence    *presence.Machine
	coordinator *playback.Coordinator
	controls    *controls.Controller
	driver      *frame.Driver
	mixer       *animation.Mixer
	model       *Model

	starting bool
	started  bool
	closed   bool
	fatal    error
	unlocked int
}

// New creates a session. Nothing runs until Start and Run are called.
func New(id string, cfg Config, deps Deps) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = frame.SystemClock{}
	}
	logger := cfg.Logger.With("session", id)

	coord := playback.NewCoordinator(logger)
	for _, b := range deps.Tracks {
		coord.AddTrack(b.Config, b.Audio)
	}
	ctrl := controls.NewController(cfg.Limits)

	s := &Session{
		id:          id,
		createdAt:   cfg.Clock.Now(),
		logger:      logger,
		tracker:     deps.Tracker,
		loop:        frame.NewLoop(cfg.FrameRate),
		presence:    presence.NewMachine(coord),
		coordinator: coord,
		controls:    ctrl,
	}
	s.driver = frame.NewDriver(cfg.Clock, deps.Tracker, pose.NewSmoother(cfg.Smoothing), ctrl, deps.Renderer)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Start runs the user-gesture start sequence: unlock audio synchronously,
// start the tracker, open the presence gate and arm the frame loop.
// A tracker failure is fatal and returned as a *StartError; the session must
// be recreated (the user reloads).
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrClosed
	case s.fatal != nil:
		err := s.fatal
		s.mu.Unlock()
		return err
	case s.started || s.starting:
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.starting = true
	s.unlocked = s.coordinator.PrimeAudioUnlock()
	s.mu.Unlock()

	s.logger.Info("starting tracker", "audio_unlocked", s.unlocked)
	err := s.tracker.Start(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.starting = false

	if err != nil {
		serr := &StartError{SessionID: s.id, Err: err}
		s.fatal = serr
		s.logger.Error("session start failed", "error", err)
		return serr
	}
	if s.closed {
		return ErrClosed
	}

	s.presence.Open()
	s.loop.SetAnimationLoop(s.tick)
	s.started = true
	s.logger.Info("session started")
	return nil
}

// tick is the frame callback registered with the loop.
func (s *Session) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.driver.Tick()
}

// Step runs one frame immediately if the loop is armed.
func (s *Session) Step() bool {
	return s.loop.Step()
}

// Run drives the frame loop until ctx is done.
func (s *Session) Run(ctx context.Context) {
	s.loop.Run(ctx)
}

// Dispatch delivers an external event.
func (s *Session) Dispatch(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	switch ev.Kind {
	case EventTargetFound:
		if s.presence.Handle(presence.SignalFound) {
			s.logger.Info("target found", "gated", !s.presence.IsOpen())
		}
	case EventTargetLost:
		if s.presence.Handle(presence.SignalLost) {
			s.logger.Info("target lost")
		}
	case EventControl:
		if !s.controls.Apply(ev.Action) {
			s.logger.Debug("control ignored", "action", ev.Action, "model_loaded", s.controls.ModelLoaded())
		}
	case EventModelLoaded:
		s.attachModel(ev.Model)
	case EventModelFailed:
		s.logger.Error("model load failed, continuing without model", "error", ev.Err)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownEvent, ev.Kind)
	}
	return nil
}

// Control applies a manual transform action and reports whether it changed
// anything.
func (s *Session) Control(action controls.Action) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	return s.controls.Apply(action), nil
}

// attachModel enables controls and, when the model has clips, creates the
// mixer. The first clip is the primary one whose loops resync audio.
// Must hold s.mu.
func (s *Session) attachModel(m *Model) {
	if m == nil {
		return
	}
	if s.model != nil {
		s.logger.Warn("model already attached, ignoring", "path", m.Path)
		return
	}
	s.model = m
	s.controls.SetModelLoaded(true)

	if len(m.Clips) > 0 {
		mixer := animation.NewMixer()
		var primary *animation.Action
		for _, clip := range m.Clips {
			a := mixer.ClipAction(clip.Name, clip.Duration)
			if primary == nil {
				primary = a
			}
			s.coordinator.AddAction(a)
		}
		mixer.OnLoop(func(a *animation.Action) {
			if a == primary {
				s.coordinator.OnAnimationLoop()
			}
		})
		s.mixer = mixer
		s.driver.SetMixer(mixer)
	}

	s.logger.Info("model loaded", "path", m.Path, "clips", len(m.Clips))
}

// LoadModel loads a model in the background. Failure is recoverable: the
// session keeps tracking with no visible model.
func (s *Session) LoadModel(ctx context.Context, loader ModelLoader, path string) {
	go func() {
		m, err := loader.Load(ctx, path)
		if err != nil {
			_ = s.Dispatch(Event{Kind: EventModelFailed, Err: fmt.Errorf("load %s: %w", path, err)})
			return
		}
		_ = s.Dispatch(Event{Kind: EventModelLoaded, Model: m})
	}()
}

// Started reports whether Start succeeded.
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		ID:              s.id,
		CreatedAt:       s.createdAt,
		Started:         s.started,
		ShowStart:       !s.started && s.fatal == nil,
		Presence:        s.presence.State(),
		PresenceName:    s.presence.State().String(),
		PresenceStats:   s.presence.Stats(),
		ModelLoaded:     s.model != nil,
		Tracks:          s.coordinator.Tracks(),
		AnimationLoops:  s.coordinator.Loops(),
		Offset:          s.controls.Offset(),
		Jitter:          s.driver.Jitter(),
		FramesRendered:  s.driver.Frames(),
		AudioUnlocked:   s.unlocked,
		FirstActivation: s.coordinator.FirstActivationPending(),
	}
	if s.fatal != nil {
		st.Fatal = ReloadMessage
	}
	if s.mixer != nil {
		st.Clips = s.mixer.States()
	}
	if p, ok := s.driver.Content(); ok {
		st.Content = &p
	}
	return st
}

// Close disarms the frame loop and stops the tracker.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.loop.SetAnimationLoop(nil)
	if s.tracker != nil {
		s.tracker.Stop()
	}
	s.logger.Info("session closed")
}
