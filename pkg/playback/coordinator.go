package playback

import (
	"log/slog"
	"time"
)

// Track binds a TrackConfig to its audio element.
type Track struct {
	config TrackConfig
	audio  Audio
	state  TrackState
}

// Name returns the track name.
func (t *Track) Name() string {
	return t.config.Name
}

// State returns the track's policy state.
func (t *Track) State() TrackState {
	return t.state
}

// Coordinator owns the animation actions and audio tracks of one session.
//
// Audio failures are logged and swallowed: presence tracking must keep
// working when sound is blocked. Coordinator is not safe for concurrent use;
// the owning session serializes calls.
type Coordinator struct {
	logger  *slog.Logger
	actions []AnimationAction
	tracks  []*Track

	active          bool
	firstActivation bool
	loops           uint64
}

// NewCoordinator creates an empty coordinator.
func NewCoordinator(logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		logger:          logger,
		firstActivation: true,
	}
}

// AddTrack registers an audio track.
func (c *Coordinator) AddTrack(cfg TrackConfig, audio Audio) *Track {
	t := &Track{config: cfg, audio: audio}
	c.tracks = append(c.tracks, t)
	return t
}

// AddAction registers an animation action. The action is paused unless the
// target is currently active, so a model that finishes loading mid-view
// starts moving right away.
func (c *Coordinator) AddAction(a AnimationAction) {
	a.SetPaused(!c.active)
	c.actions = append(c.actions, a)
}

// OnFound resumes animation and audio. On the session's first activation
// each track is first seeked to its resume offset; later activations resume
// from wherever the track was paused.
func (c *Coordinator) OnFound() {
	c.active = true

	for _, a := range c.actions {
		a.SetPaused(false)
	}

	for _, t := range c.tracks {
		if c.firstActivation && t.state == NeverStarted {
			c.seek(t, t.config.ResumeOffset)
			t.state = Seeked
		}
		c.play(t)
	}

	c.firstActivation = false
}

// OnLost pauses animation and audio, preserving their positions.
func (c *Coordinator) OnLost() {
	c.active = false

	for _, a := range c.actions {
		a.SetPaused(true)
	}
	for _, t := range c.tracks {
		t.audio.Pause()
	}
}

// OnAnimationLoop hard-resyncs every track to its loop offset and plays it,
// whatever the presence state. After the first loop the loop boundaries own
// the resync point, so the first-activation seek no longer applies.
func (c *Coordinator) OnAnimationLoop() {
	c.loops++
	c.firstActivation = false

	c.logger.Debug("animation loop, resyncing audio", "loop", c.loops)

	for _, t := range c.tracks {
		c.seek(t, t.config.LoopOffset)
		if t.state == NeverStarted {
			t.state = Seeked
		}
		c.play(t)
	}
}

// PrimeAudioUnlock plays, pauses and rewinds every track once. It must run
// inside the user gesture that starts the session, before anything
// asynchronous, or restrictive platforms will not treat later playback as
// user initiated. It returns how many tracks unlocked.
func (c *Coordinator) PrimeAudioUnlock() int {
	unlocked := 0
	for _, t := range c.tracks {
		err := t.audio.Play()
		t.audio.Pause()
		if serr := t.audio.SetCurrentTime(0); serr != nil {
			c.logger.Warn("audio rewind failed", "track", t.config.Name, "error", serr)
		}
		if err != nil {
			c.logger.Warn("audio unlock failed", "track", t.config.Name, "error", err)
			continue
		}
		unlocked++
	}
	return unlocked
}

// Active reports whether the last presence transition was a found.
func (c *Coordinator) Active() bool {
	return c.active
}

// FirstActivationPending reports whether the one-time resume seek is still due.
func (c *Coordinator) FirstActivationPending() bool {
	return c.firstActivation
}

// Loops returns how many animation loops have been handled.
func (c *Coordinator) Loops() uint64 {
	return c.loops
}

// Tracks returns a snapshot of every track.
func (c *Coordinator) Tracks() []TrackStatus {
	out := make([]TrackStatus, len(c.tracks))
	for i, t := range c.tracks {
		out[i] = TrackStatus{
			Name:        t.config.Name,
			State:       t.state,
			CurrentTime: t.audio.CurrentTime(),
		}
	}
	return out
}

func (c *Coordinator) seek(t *Track, offset time.Duration) {
	if err := t.audio.SetCurrentTime(offset); err != nil {
		c.logger.Warn("audio seek failed", "track", t.config.Name, "offset", offset, "error", err)
	}
}

func (c *Coordinator) play(t *Track) {
	if err := t.audio.Play(); err != nil {
		c.logger.Warn("audio play failed", "track", t.config.Name, "error", err)
		return
	}
	t.state = Running
}
