// Package frame drives the per-frame tick: advance animation, smooth the
// anchor pose, compose the content transform and hand it to the renderer.
package frame

import (
	"time"

	"github.com/teslashibe/go-arstage/pkg/animation"
	"github.com/teslashibe/go-arstage/pkg/controls"
	"github.com/teslashibe/go-arstage/pkg/pose"
)

// Anchor exposes the tracker's current raw pose. ok is false until the
// tracker has reported one.
type Anchor interface {
	Pose() (p pose.Pose, ok bool)
}

// Mixer is the animation clock advanced each frame.
type Mixer interface {
	Update(dt time.Duration)
	States() []animation.ActionState
}

// ModelSource supplies the model-local transform (base plus manual offset).
type ModelSource interface {
	Transform() controls.ModelTransform
}

// Renderer consumes finished frames. Render must not block.
type Renderer interface {
	Render(f Frame)
}

// Frame is everything the renderer needs for one display refresh.
type Frame struct {
	Seq     uint64                  `json:"seq"`
	Delta   time.Duration           `json:"delta"`
	Visible bool                    `json:"visible"`
	Content pose.Pose               `json:"content"`
	Model   controls.ModelTransform `json:"model"`
	Clips   []animation.ActionState `json:"clips,omitempty"`
}

// Driver performs one frame of work per Tick. The content transform is only
// ever written from the smoothed pose, never from the raw anchor pose.
// Driver is not safe for concurrent use; the owning session serializes calls.
type Driver struct {
	clock    Clock
	anchor   Anchor
	smoother *pose.Smoother
	model    ModelSource
	renderer Renderer
	mixer    Mixer
	jitter   *pose.JitterStats

	last    time.Time
	content pose.Pose
	visible bool
	frames  uint64
}

// NewDriver wires a driver. model and renderer may be nil.
func NewDriver(clock Clock, anchor Anchor, smoother *pose.Smoother, model ModelSource, renderer Renderer) *Driver {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Driver{
		clock:    clock,
		anchor:   anchor,
		smoother: smoother,
		model:    model,
		renderer: renderer,
		jitter:   pose.NewJitterStats(pose.DefaultJitterWindow),
		content:  pose.Identity(),
	}
}

// SetMixer installs the animation mixer once a model with clips has loaded.
func (d *Driver) SetMixer(m Mixer) {
	d.mixer = m
}

// Tick runs one frame and returns what was rendered.
func (d *Driver) Tick() Frame {
	now := d.clock.Now()
	var delta time.Duration
	if !d.last.IsZero() {
		delta = now.Sub(d.last)
	}
	d.last = now

	var clips []animation.ActionState
	if d.mixer != nil {
		d.mixer.Update(delta)
		clips = d.mixer.States()
	}

	if raw, ok := d.anchor.Pose(); ok {
		smoothed := d.smoother.Update(raw)
		d.jitter.Observe(raw, smoothed)
		d.content = smoothed
		d.visible = true
	}

	d.frames++
	f := Frame{
		Seq:     d.frames,
		Delta:   delta,
		Visible: d.visible,
		Content: d.content,
		Clips:   clips,
	}
	if d.model != nil {
		f.Model = d.model.Transform()
	}

	if d.renderer != nil {
		d.renderer.Render(f)
	}
	return f
}

// Content returns the current content transform and whether it is defined.
func (d *Driver) Content() (pose.Pose, bool) {
	return d.content, d.visible
}

// Frames returns the number of frames rendered.
func (d *Driver) Frames() uint64 {
	return d.frames
}

// Jitter returns pose jitter statistics.
func (d *Driver) Jitter() pose.JitterSummary {
	return d.jitter.Summary()
}
