package remote

import (
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-arstage/pkg/frame"
	"github.com/teslashibe/go-arstage/pkg/protocol"
)

// Audio is an audio element on the page. The playhead is estimated locally
// from the clock while playing, since the page only reports failures.
type Audio struct {
	track  string
	conn   Sender
	clock  frame.Clock
	logger *slog.Logger

	mu      sync.Mutex
	base    time.Duration
	since   time.Time
	playing bool
	errors  uint64
}

// NewAudio creates the element for one named track.
func NewAudio(track string, conn Sender, clock frame.Clock, logger *slog.Logger) *Audio {
	if clock == nil {
		clock = frame.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Audio{track: track, conn: conn, clock: clock, logger: logger}
}

// Track returns the track name.
func (a *Audio) Track() string {
	return a.track
}

// Play asks the page to play.
func (a *Audio) Play() error {
	if err := a.send(protocol.AudioPlay, 0); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.playing {
		a.playing = true
		a.since = a.clock.Now()
	}
	return nil
}

// Pause asks the page to pause and freezes the playhead.
func (a *Audio) Pause() {
	a.mu.Lock()
	a.freeze()
	a.mu.Unlock()

	if err := a.send(protocol.AudioPause, 0); err != nil {
		a.logger.Warn("audio pause not sent", "track", a.track, "error", err)
	}
}

// SetCurrentTime asks the page to seek.
func (a *Audio) SetCurrentTime(t time.Duration) error {
	if err := a.send(protocol.AudioSeek, t); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.base = t
	a.since = a.clock.Now()
	return nil
}

// CurrentTime returns the estimated playhead.
func (a *Audio) CurrentTime() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.playing {
		return a.base
	}
	return a.base + a.clock.Now().Sub(a.since)
}

// Playing reports whether the element is believed to be playing.
func (a *Audio) Playing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.playing
}

// Errors returns how many failures the page reported for this element.
func (a *Audio) Errors() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.errors
}

// reject records a page-side playback failure, such as an autoplay block.
func (a *Audio) reject(message string) {
	a.mu.Lock()
	a.freeze()
	a.errors++
	a.mu.Unlock()

	a.logger.Warn("audio playback rejected by page", "track", a.track, "error", message)
}

// freeze stops the playhead. Must hold a.mu.
func (a *Audio) freeze() {
	if a.playing {
		a.base += a.clock.Now().Sub(a.since)
		a.playing = false
	}
}

func (a *Audio) send(op string, at time.Duration) error {
	msg, err := protocol.NewAudioMessage(a.track, op, at)
	if err != nil {
		return err
	}
	return a.conn.Send(msg)
}
