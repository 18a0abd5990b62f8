// Package playback keeps animation actions and audio tracks in step with
// target presence and with the animation clock.
package playback

import (
	"fmt"
	"time"
)

// Audio is an audio element. Play and SetCurrentTime may fail, for example
// when the platform's autoplay policy rejects playback.
type Audio interface {
	Play() error
	Pause()
	SetCurrentTime(t time.Duration) error
	CurrentTime() time.Duration
}

// AnimationAction is a pausable animation clip.
type AnimationAction interface {
	SetPaused(paused bool)
}

// TrackState is where a track is in its one-time-seek-then-resume policy.
type TrackState int

const (
	// NeverStarted means the track has not been activated in this session.
	NeverStarted TrackState = iota

	// Seeked means the track was moved to its resume offset but is not playing.
	Seeked

	// Running means the track has been played at least once and owns its own time.
	Running
)

// String returns a human-readable state name.
func (s TrackState) String() string {
	switch s {
	case NeverStarted:
		return "never_started"
	case Seeked:
		return "seeked"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON status payloads.
func (s TrackState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *TrackState) UnmarshalText(text []byte) error {
	for _, st := range []TrackState{NeverStarted, Seeked, Running} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("playback: unknown track state %q", text)
}

// TrackConfig describes an audio track.
type TrackConfig struct {
	// Name identifies the track (e.g. "primary", "secondary").
	Name string

	// ResumeOffset is where the track starts on the session's first activation.
	ResumeOffset time.Duration

	// LoopOffset is where the track restarts at every animation loop boundary.
	LoopOffset time.Duration
}

// DefaultTracks returns the dual-track layout: a primary track from zero and
// a secondary track held two seconds in to line up with an animation cue.
func DefaultTracks() []TrackConfig {
	return []TrackConfig{
		{Name: "primary"},
		{Name: "secondary", ResumeOffset: 2 * time.Second, LoopOffset: 2 * time.Second},
	}
}

// TrackStatus is a snapshot of one track.
type TrackStatus struct {
	Name        string        `json:"name"`
	State       TrackState    `json:"state"`
	CurrentTime time.Duration `json:"current_time"`
}
