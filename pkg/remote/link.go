package remote

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-arstage/pkg/controls"
	"github.com/teslashibe/go-arstage/pkg/frame"
	"github.com/teslashibe/go-arstage/pkg/playback"
	"github.com/teslashibe/go-arstage/pkg/protocol"
	"github.com/teslashibe/go-arstage/pkg/session"
)

// Dispatcher receives session events decoded from the page.
type Dispatcher interface {
	Dispatch(ev session.Event) error
}

// Link bundles the page-backed collaborators of one session and routes
// inbound page messages to them.
type Link struct {
	conn     *Conn
	tracker  *Tracker
	renderer *Renderer
	loader   *Loader
	audio    map[string]*Audio
	tracks   []session.TrackBinding
	logger   *slog.Logger

	sink    Dispatcher
	onStart func()
}

// LinkConfig configures a Link.
type LinkConfig struct {
	SessionID string
	Tracks    []playback.TrackConfig
	QueueSize int
	Clock     frame.Clock
	Logger    *slog.Logger
}

// NewLink creates the link and its collaborators.
func NewLink(cfg LinkConfig) *Link {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger.With("session", cfg.SessionID)
	conn := NewConn(cfg.SessionID, cfg.QueueSize, logger)

	l := &Link{
		conn:     conn,
		tracker:  NewTracker(cfg.SessionID, conn),
		renderer: NewRenderer(conn),
		loader:   NewLoader(),
		audio:    make(map[string]*Audio, len(cfg.Tracks)),
		logger:   logger,
	}
	for _, tc := range cfg.Tracks {
		a := NewAudio(tc.Name, conn, cfg.Clock, logger)
		l.audio[tc.Name] = a
		l.tracks = append(l.tracks, session.TrackBinding{Config: tc, Audio: a})
	}
	return l
}

// Conn returns the outbound link.
func (l *Link) Conn() *Conn { return l.conn }

// Tracker returns the page tracker.
func (l *Link) Tracker() *Tracker { return l.tracker }

// Renderer returns the page renderer.
func (l *Link) Renderer() *Renderer { return l.renderer }

// Loader returns the page model loader.
func (l *Link) Loader() *Loader { return l.loader }

// Audio returns the element for a track, or nil.
func (l *Link) Audio(track string) *Audio { return l.audio[track] }

// Deps returns the session collaborators backed by this link.
func (l *Link) Deps() session.Deps {
	return session.Deps{
		Tracker:  l.tracker,
		Renderer: l.renderer,
		Tracks:   l.tracks,
	}
}

// Bind sets where decoded events go. onStart runs, in its own goroutine, when
// the page reports the user pressed start; it may be nil.
func (l *Link) Bind(sink Dispatcher, onStart func()) {
	l.sink = sink
	l.onStart = onStart
}

// SendFatal tells the page the session cannot continue.
func (l *Link) SendFatal(message string) error {
	msg, err := protocol.NewFatalMessage(message)
	if err != nil {
		return err
	}
	return l.conn.Send(msg)
}

// Handle decodes one inbound page message. Malformed or unexpected messages
// return an error; the caller logs it and keeps reading.
func (l *Link) Handle(data []byte) error {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return err
	}

	switch msg.Type {
	case protocol.TypeTargetFound:
		return l.dispatch(session.Event{Kind: session.EventTargetFound})

	case protocol.TypeTargetLost:
		return l.dispatch(session.Event{Kind: session.EventTargetLost})

	case protocol.TypePose:
		p, err := msg.GetPoseData()
		if err != nil {
			return fmt.Errorf("pose: %w", err)
		}
		raw, err := p.ToPose()
		if err != nil {
			return fmt.Errorf("pose: %w", err)
		}
		l.tracker.setPose(raw)

	case protocol.TypeTrackerStarted:
		l.tracker.resolve(nil)

	case protocol.TypeTrackerError:
		e, err := msg.GetErrorData()
		if err != nil {
			return fmt.Errorf("tracker_error: %w", err)
		}
		l.tracker.resolve(fmt.Errorf("%w: %s", ErrTrackerStart, e.Message))

	case protocol.TypeModelLoaded:
		m, err := msg.GetModelData()
		if err != nil {
			return fmt.Errorf("model_loaded: %w", err)
		}
		l.loader.loaded(m)

	case protocol.TypeModelError:
		e, err := msg.GetErrorData()
		if err != nil {
			return fmt.Errorf("model_error: %w", err)
		}
		l.loader.failed(e.Message)

	case protocol.TypeAudioError:
		e, err := msg.GetErrorData()
		if err != nil {
			return fmt.Errorf("audio_error: %w", err)
		}
		a, ok := l.audio[e.Track]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownTrack, e.Track)
		}
		a.reject(e.Message)

	case protocol.TypeControl:
		c, err := msg.GetControlData()
		if err != nil {
			return fmt.Errorf("control: %w", err)
		}
		action, err := controls.ParseAction(c.Action)
		if err != nil {
			return err
		}
		return l.dispatch(session.Event{Kind: session.EventControl, Action: action})

	case protocol.TypeStart:
		if l.onStart != nil {
			go l.onStart()
		}

	case protocol.TypePing:
		pong, err := protocol.NewPongMessage("", msg.Timestamp, time.Now().UnixMilli())
		if err != nil {
			return err
		}
		return l.conn.Send(pong)

	default:
		return fmt.Errorf("unexpected message type %q", msg.Type)
	}
	return nil
}

func (l *Link) dispatch(ev session.Event) error {
	if l.sink == nil {
		return nil
	}
	return l.sink.Dispatch(ev)
}

// Close shuts the outbound link.
func (l *Link) Close() {
	l.conn.Close()
}
