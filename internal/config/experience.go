package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-arstage/pkg/controls"
	"github.com/teslashibe/go-arstage/pkg/frame"
	"github.com/teslashibe/go-arstage/pkg/playback"
	"github.com/teslashibe/go-arstage/pkg/pose"
)

// ErrInvalidConfig is returned when an experience file fails validation.
var ErrInvalidConfig = errors.New("config: invalid experience")

// Experience describes one AR presentation and the server that hosts it.
type Experience struct {
	Server   ServerConfig   `yaml:"server"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	Model    ModelConfig    `yaml:"model"`
	Controls ControlsConfig `yaml:"controls"`
	Tracks   []TrackConfig  `yaml:"tracks" validate:"dive"`

	// FrameRate is the frame loop refresh rate in Hz.
	FrameRate float64 `yaml:"frame_rate" validate:"gt=0,lte=240"`

	// Smoothing is the pose smoothing factor.
	Smoothing float64 `yaml:"smoothing" validate:"gt=0,lte=1"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port      int    `yaml:"port" validate:"gt=0,lte=65535"`
	StaticDir string `yaml:"static_dir"`
	QueueSize int    `yaml:"queue_size" validate:"gte=0"`

	// AttachTimeout deletes a session whose page has not connected in time.
	AttachTimeout time.Duration `yaml:"attach_timeout" validate:"gte=0"`
}

// TrackerConfig configures the page tracker.
type TrackerConfig struct {
	// Target is the compiled image-target file the page loads.
	Target string `yaml:"target"`

	// StartTimeout bounds how long start waits for the page's tracker.
	StartTimeout time.Duration `yaml:"start_timeout" validate:"gte=0"`
}

// ModelConfig names the 3D asset.
type ModelConfig struct {
	Path string `yaml:"path"`
}

// ControlsConfig configures manual transform controls.
type ControlsConfig struct {
	MinScale      float64    `yaml:"min_scale" validate:"gt=0"`
	MaxScale      float64    `yaml:"max_scale" validate:"gtfield=MinScale"`
	ScaleStep     float64    `yaml:"scale_step" validate:"gt=0"`
	InitialScale  float64    `yaml:"initial_scale" validate:"gtefield=MinScale,ltefield=MaxScale"`
	RotationStep  float64    `yaml:"rotation_step" validate:"gt=0"`
	BaseRotationX float64    `yaml:"base_rotation_x"`
	BasePosition  [3]float64 `yaml:"base_position"`
}

// TrackConfig is one audio track.
type TrackConfig struct {
	Name         string        `yaml:"name" validate:"required"`
	Src          string        `yaml:"src"`
	ResumeOffset time.Duration `yaml:"resume_offset" validate:"gte=0"`
	LoopOffset   time.Duration `yaml:"loop_offset" validate:"gte=0"`
}

// DefaultExperience returns the dual-audio layout with manual controls.
func DefaultExperience() Experience {
	limits := controls.DefaultLimits()
	exp := Experience{
		Server: ServerConfig{
			Port:          DefaultPort,
			StaticDir:     "./web",
			AttachTimeout: time.Minute,
		},
		Tracker: TrackerConfig{
			Target:       "assets/targets.mind",
			StartTimeout: 30 * time.Second,
		},
		Model: ModelConfig{Path: "assets/scene.glb"},
		Controls: ControlsConfig{
			MinScale:      limits.MinScale,
			MaxScale:      limits.MaxScale,
			ScaleStep:     limits.ScaleStep,
			InitialScale:  limits.InitialScale,
			RotationStep:  limits.RotationStep,
			BaseRotationX: limits.BaseRotationX,
			BasePosition:  [3]float64(limits.BasePosition),
		},
		FrameRate: frame.DefaultFrameRate,
		Smoothing: pose.DefaultSmoothing,
	}
	for _, t := range playback.DefaultTracks() {
		exp.Tracks = append(exp.Tracks, TrackConfig{
			Name:         t.Name,
			Src:          "assets/" + t.Name + ".mp3",
			ResumeOffset: t.ResumeOffset,
			LoopOffset:   t.LoopOffset,
		})
	}
	return exp
}

// Load reads an experience file on top of DefaultExperience, applies
// environment overrides and validates the result.
func Load(path string) (Experience, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Experience{}, fmt.Errorf("read experience: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of DefaultExperience, applies environment
// overrides and validates the result.
func Parse(data []byte) (Experience, error) {
	exp := DefaultExperience()
	if err := yaml.Unmarshal(data, &exp); err != nil {
		return Experience{}, fmt.Errorf("parse experience: %w", err)
	}
	exp.applyEnv()
	if err := exp.Validate(); err != nil {
		return Experience{}, err
	}
	return exp, nil
}

func (e *Experience) applyEnv() {
	if p, ok := portOverride(); ok {
		e.Server.Port = p
	}
}

// Validate checks struct constraints and that track names are unique.
func (e Experience) Validate() error {
	if err := validator.New().Struct(e); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	seen := make(map[string]bool, len(e.Tracks))
	for _, t := range e.Tracks {
		if seen[t.Name] {
			return fmt.Errorf("%w: duplicate track %q", ErrInvalidConfig, t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

// Limits returns the controller limits.
func (e Experience) Limits() controls.Limits {
	c := e.Controls
	return controls.Limits{
		MinScale:      c.MinScale,
		MaxScale:      c.MaxScale,
		ScaleStep:     c.ScaleStep,
		InitialScale:  c.InitialScale,
		RotationStep:  c.RotationStep,
		BaseRotationX: c.BaseRotationX,
		BasePosition:  mgl64.Vec3(c.BasePosition),
	}
}

// PlaybackTracks returns the track layout for the playback coordinator.
func (e Experience) PlaybackTracks() []playback.TrackConfig {
	out := make([]playback.TrackConfig, len(e.Tracks))
	for i, t := range e.Tracks {
		out[i] = playback.TrackConfig{
			Name:         t.Name,
			ResumeOffset: t.ResumeOffset,
			LoopOffset:   t.LoopOffset,
		}
	}
	return out
}
