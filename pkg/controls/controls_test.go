package controls

import (
	"errors"
	"math"
	"testing"
)

const floatTolerance = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

func loadedController() *Controller {
	c := NewController(DefaultLimits())
	c.SetModelLoaded(true)
	return c
}

func TestController_NoopBeforeLoad(t *testing.T) {
	c := NewController(DefaultLimits())

	for _, a := range Actions {
		if c.Apply(a) {
			t.Errorf("%s applied before model load", a)
		}
	}

	off := c.Offset()
	if off.RotationX != 0 || off.RotationY != 0 || off.Scale != DefaultInitialScale {
		t.Errorf("offset changed before load: %+v", off)
	}
}

func TestController_ZoomClampsHigh(t *testing.T) {
	c := loadedController()

	for i := 0; i < 20; i++ {
		c.Apply(ZoomIn)
	}

	if got := c.Offset().Scale; got != 8 {
		t.Errorf("scale after 20 zoom-ins = %v, want exactly 8", got)
	}
}

func TestController_ZoomClampsLow(t *testing.T) {
	c := loadedController()

	for i := 0; i < 20; i++ {
		c.Apply(ZoomOut)
	}

	if got := c.Offset().Scale; got != 2 {
		t.Errorf("scale after 20 zoom-outs = %v, want exactly 2", got)
	}
}

func TestController_ZoomAtLimitReportsNoChange(t *testing.T) {
	c := loadedController()
	for i := 0; i < 8; i++ {
		c.Apply(ZoomIn)
	}
	if c.Apply(ZoomIn) {
		t.Error("zoom-in at max should report no change")
	}
	if !c.Apply(ZoomOut) {
		t.Error("zoom-out below max should apply")
	}
	if got := c.Offset().Scale; got != 7.5 {
		t.Errorf("scale = %v, want 7.5", got)
	}
}

func TestController_RotationAccumulatesUnbounded(t *testing.T) {
	c := loadedController()

	for i := 0; i < 12; i++ {
		c.Apply(RotateUp)
	}
	c.Apply(RotateLeft)
	c.Apply(RotateRight)
	c.Apply(RotateRight)

	off := c.Offset()
	if !floatEquals(off.RotationX, 3*math.Pi) {
		t.Errorf("RotationX = %v, want 3π", off.RotationX)
	}
	if !floatEquals(off.RotationY, -math.Pi/4) {
		t.Errorf("RotationY = %v, want -π/4", off.RotationY)
	}
}

func TestController_TransformAddsBase(t *testing.T) {
	c := loadedController()
	c.Apply(RotateDown)
	c.Apply(RotateLeft)
	c.Apply(ZoomIn)

	tr := c.Transform()
	if !floatEquals(tr.RotationX, DefaultBaseRotationX-math.Pi/4) {
		t.Errorf("RotationX = %v, want base - π/4", tr.RotationX)
	}
	if !floatEquals(tr.RotationY, math.Pi/4) {
		t.Errorf("RotationY = %v, want π/4", tr.RotationY)
	}
	if tr.Scale != 4.5 {
		t.Errorf("Scale = %v, want 4.5", tr.Scale)
	}
	if !floatEquals(tr.Position[1], -0.1) {
		t.Errorf("Position = %v, want base (0,-0.1,0)", tr.Position)
	}
}

func TestParseAction(t *testing.T) {
	for _, a := range Actions {
		got, err := ParseAction(string(a))
		if err != nil || got != a {
			t.Errorf("ParseAction(%q) = %q, %v", a, got, err)
		}
	}

	if _, err := ParseAction("spin"); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("ParseAction(spin) error = %v, want ErrUnknownAction", err)
	}
}

func TestLimits_WithDefaults(t *testing.T) {
	c := NewController(Limits{MinScale: 6, MaxScale: 3, InitialScale: 10})
	l := c.Limits()

	if l.MinScale != 3 || l.MaxScale != 6 {
		t.Errorf("min/max should be swapped into order, got %v/%v", l.MinScale, l.MaxScale)
	}
	if c.Offset().Scale != 6 {
		t.Errorf("initial scale should clamp to max, got %v", c.Offset().Scale)
	}
	if l.ScaleStep != DefaultScaleStep || l.RotationStep != RotationStep {
		t.Errorf("zero steps should take defaults: %+v", l)
	}
}
