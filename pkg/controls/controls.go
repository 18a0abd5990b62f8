// Package controls applies user-driven rotation and zoom on top of the
// model's fixed base transform.
package controls

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Default limits for the manual transform.
const (
	RotationStep         = math.Pi / 4
	DefaultScaleStep     = 0.5
	DefaultMinScale      = 2.0
	DefaultMaxScale      = 8.0
	DefaultInitialScale  = 4.0
	DefaultBaseRotationX = 0.9
)

// ErrUnknownAction is returned by ParseAction for unrecognised names.
var ErrUnknownAction = errors.New("controls: unknown action")

// Action is a discrete user action.
type Action string

const (
	RotateUp    Action = "rotate-up"
	RotateDown  Action = "rotate-down"
	RotateLeft  Action = "rotate-left"
	RotateRight Action = "rotate-right"
	ZoomIn      Action = "zoom-in"
	ZoomOut     Action = "zoom-out"
)

// Actions lists every action in display order.
var Actions = []Action{RotateUp, RotateDown, RotateLeft, RotateRight, ZoomIn, ZoomOut}

// ParseAction maps a wire name to an Action.
func ParseAction(name string) (Action, error) {
	for _, a := range Actions {
		if string(a) == name {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

// clamp restricts v to the range [min, max].
func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Limits configures the controller.
type Limits struct {
	MinScale      float64
	MaxScale      float64
	ScaleStep     float64
	InitialScale  float64
	RotationStep  float64
	BaseRotationX float64
	BasePosition  mgl64.Vec3
}

// DefaultLimits returns the stock layout: scale 4 in [2, 8] by 0.5,
// rotation by 45 degrees, model tilted 0.9 rad on X and lowered slightly.
func DefaultLimits() Limits {
	return Limits{
		MinScale:      DefaultMinScale,
		MaxScale:      DefaultMaxScale,
		ScaleStep:     DefaultScaleStep,
		InitialScale:  DefaultInitialScale,
		RotationStep:  RotationStep,
		BaseRotationX: DefaultBaseRotationX,
		BasePosition:  mgl64.Vec3{0, -0.1, 0},
	}
}

// withDefaults fills zero fields from DefaultLimits.
func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MinScale <= 0 {
		l.MinScale = d.MinScale
	}
	if l.MaxScale <= 0 {
		l.MaxScale = d.MaxScale
	}
	if l.MaxScale < l.MinScale {
		l.MinScale, l.MaxScale = l.MaxScale, l.MinScale
	}
	if l.ScaleStep <= 0 {
		l.ScaleStep = d.ScaleStep
	}
	if l.InitialScale <= 0 {
		l.InitialScale = d.InitialScale
	}
	l.InitialScale = clamp(l.InitialScale, l.MinScale, l.MaxScale)
	if l.RotationStep == 0 {
		l.RotationStep = d.RotationStep
	}
	return l
}

// Offset is the accumulated user adjustment.
// Rotations accumulate without bound; scale stays within the limits.
type Offset struct {
	RotationX float64 `json:"rotation_x"`
	RotationY float64 `json:"rotation_y"`
	Scale     float64 `json:"scale"`
}

// ModelTransform is the final model-local transform: base plus offset.
type ModelTransform struct {
	Position  mgl64.Vec3 `json:"position"`
	RotationX float64    `json:"rotation_x"`
	RotationY float64    `json:"rotation_y"`
	Scale     float64    `json:"scale"`
}

// Controller applies discrete user actions to the model transform.
// Every action is a no-op until the model has loaded.
// Controller is not safe for concurrent use; the owning session serializes calls.
type Controller struct {
	limits Limits
	offset Offset
	loaded bool
}

// NewController creates a controller at the initial scale with no rotation.
func NewController(limits Limits) *Controller {
	limits = limits.withDefaults()
	return &Controller{
		limits: limits,
		offset: Offset{Scale: limits.InitialScale},
	}
}

// SetModelLoaded enables or disables the controller.
func (c *Controller) SetModelLoaded(loaded bool) {
	c.loaded = loaded
}

// ModelLoaded reports whether the model is present.
func (c *Controller) ModelLoaded() bool {
	return c.loaded
}

// Apply performs an action and reports whether anything changed.
func (c *Controller) Apply(a Action) bool {
	switch a {
	case RotateUp:
		return c.rotate(c.limits.RotationStep, 0)
	case RotateDown:
		return c.rotate(-c.limits.RotationStep, 0)
	case RotateLeft:
		return c.rotate(0, c.limits.RotationStep)
	case RotateRight:
		return c.rotate(0, -c.limits.RotationStep)
	case ZoomIn:
		return c.zoom(c.limits.ScaleStep)
	case ZoomOut:
		return c.zoom(-c.limits.ScaleStep)
	default:
		return false
	}
}

func (c *Controller) rotate(dx, dy float64) bool {
	if !c.loaded {
		return false
	}
	c.offset.RotationX += dx
	c.offset.RotationY += dy
	return true
}

func (c *Controller) zoom(delta float64) bool {
	if !c.loaded {
		return false
	}
	next := clamp(c.offset.Scale+delta, c.limits.MinScale, c.limits.MaxScale)
	if next == c.offset.Scale {
		return false
	}
	c.offset.Scale = next
	return true
}

// Offset returns the accumulated adjustment.
func (c *Controller) Offset() Offset {
	return c.offset
}

// Limits returns the configured limits.
func (c *Controller) Limits() Limits {
	return c.limits
}

// Transform composes the base transform with the offset. The X rotation is
// added to the base tilt; the base model has no Y rotation of its own.
func (c *Controller) Transform() ModelTransform {
	return ModelTransform{
		Position:  c.limits.BasePosition,
		RotationX: c.limits.BaseRotationX + c.offset.RotationX,
		RotationY: c.offset.RotationY,
		Scale:     c.offset.Scale,
	}
}
