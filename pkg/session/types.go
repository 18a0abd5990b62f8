// Package session composes the pose smoother, presence machine, playback
// coordinator, manual controls and frame driver into one AR presentation.
//
// Every external event enters a session through Dispatch, and the frame
// callback takes the same lock, so tracker, user and frame handlers never
// observe each other half-way.
package session

import (
	"context"
	"time"

	"github.com/teslashibe/go-arstage/pkg/animation"
	"github.com/teslashibe/go-arstage/pkg/controls"
	"github.com/teslashibe/go-arstage/pkg/frame"
	"github.com/teslashibe/go-arstage/pkg/playback"
	"github.com/teslashibe/go-arstage/pkg/pose"
	"github.com/teslashibe/go-arstage/pkg/presence"
)

// Tracker is the image-tracking engine.
type Tracker interface {
	frame.Anchor

	// Start starts the camera and target detection. Failures are fatal.
	Start(ctx context.Context) error

	// Stop releases the tracker.
	Stop()
}

// Clip is one animation clip of a model.
type Clip struct {
	Name     string
	Duration time.Duration
}

// Model is a loaded 3D asset.
type Model struct {
	Path  string
	Clips []Clip
}

// ModelLoader loads a 3D asset by path.
type ModelLoader interface {
	Load(ctx context.Context, path string) (*Model, error)
}

// TrackBinding pairs a track configuration with its audio element.
type TrackBinding struct {
	Config playback.TrackConfig
	Audio  playback.Audio
}

// EventKind identifies an event delivered to Dispatch.
type EventKind int

const (
	EventTargetFound EventKind = iota + 1
	EventTargetLost
	EventControl
	EventModelLoaded
	EventModelFailed
)

// String returns a human-readable event name.
func (k EventKind) String() string {
	switch k {
	case EventTargetFound:
		return "target_found"
	case EventTargetLost:
		return "target_lost"
	case EventControl:
		return "control"
	case EventModelLoaded:
		return "model_loaded"
	case EventModelFailed:
		return "model_failed"
	default:
		return "unknown"
	}
}

// Event is an external input to a session.
type Event struct {
	Kind   EventKind
	Action controls.Action // EventControl
	Model  *Model          // EventModelLoaded
	Err    error           // EventModelFailed
}

// Status is a point-in-time snapshot of a session.
type Status struct {
	ID              string                  `json:"id"`
	CreatedAt       time.Time               `json:"created_at"`
	Started         bool                    `json:"started"`
	ShowStart       bool                    `json:"show_start"`
	Fatal           string                  `json:"fatal,omitempty"`
	Presence        presence.State          `json:"-"`
	PresenceName    string                  `json:"presence"`
	PresenceStats   presence.Stats          `json:"presence_stats"`
	ModelLoaded     bool                    `json:"model_loaded"`
	Tracks          []playback.TrackStatus  `json:"tracks"`
	Clips           []animation.ActionState `json:"clips,omitempty"`
	AnimationLoops  uint64                  `json:"animation_loops"`
	Offset          controls.Offset         `json:"offset"`
	Content         *pose.Pose              `json:"content,omitempty"`
	Jitter          pose.JitterSummary      `json:"jitter"`
	FramesRendered  uint64                  `json:"frames_rendered"`
	AudioUnlocked   int                     `json:"audio_unlocked"`
	FirstActivation bool                    `json:"first_activation_pending"`
}
