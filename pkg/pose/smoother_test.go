package pose

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

const floatTolerance = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

func vecEquals(a, b mgl64.Vec3) bool {
	return floatEquals(a[0], b[0]) && floatEquals(a[1], b[1]) && floatEquals(a[2], b[2])
}

func TestSmoother_FirstSampleVerbatim(t *testing.T) {
	s := NewSmoother(DefaultSmoothing)

	raw := Pose{
		Position:    mgl64.Vec3{1.5, -2, 0.25},
		Orientation: mgl64.QuatRotate(0.7, mgl64.Vec3{0, 1, 0}),
	}

	got := s.Update(raw)
	if got != raw {
		t.Errorf("first sample: got %+v, want %+v", got, raw)
	}

	if _, ok := s.Current(); !ok {
		t.Error("Current should report initialized after first sample")
	}
}

func TestSmoother_ConvexCombination(t *testing.T) {
	s := NewSmoother(DefaultSmoothing)
	alpha := s.Alpha()

	samples := []mgl64.Vec3{
		{0, 0, 0},
		{1, 0, 0},
		{1, 2, 0},
		{-3, 0.5, 4},
		{0.01, 0.02, -0.03},
		{10, 10, 10},
	}

	var prev mgl64.Vec3
	for i, p := range samples {
		got := s.Update(Pose{Position: p, Orientation: mgl64.QuatIdent()})
		want := p
		if i > 0 {
			want = prev.Mul(1 - alpha).Add(p.Mul(alpha))
		}
		if !vecEquals(got.Position, want) {
			t.Errorf("sample %d: got %v, want %v", i, got.Position, want)
		}
		prev = got.Position
	}
}

func TestSmoother_SlerpOrientation(t *testing.T) {
	s := NewSmoother(DefaultSmoothing)
	yAxis := mgl64.Vec3{0, 1, 0}

	s.Update(Identity())
	got := s.Update(Pose{Orientation: mgl64.QuatRotate(math.Pi/2, yAxis)})

	want := mgl64.QuatRotate(DefaultSmoothing*math.Pi/2, yAxis)
	if !got.Orientation.ApproxEqualThreshold(want, 1e-9) {
		t.Errorf("orientation: got %v, want %v", got.Orientation, want)
	}
}

func TestSlerp_ShortestArc(t *testing.T) {
	a := mgl64.QuatIdent()
	b := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})

	direct := Slerp(a, b, 0.5)
	flipped := Slerp(a, b.Scale(-1), 0.5)

	if !direct.ApproxEqualThreshold(flipped, 1e-9) {
		t.Errorf("q and -q should interpolate identically: %v vs %v", direct, flipped)
	}
}

func TestNewSmoother_FactorBounds(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, DefaultSmoothing},
		{-1, DefaultSmoothing},
		{0.5, 0.5},
		{1, 1},
		{3, 1},
	}

	for _, tt := range tests {
		if got := NewSmoother(tt.in).Alpha(); got != tt.want {
			t.Errorf("NewSmoother(%v).Alpha() = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSmoother_Reset(t *testing.T) {
	s := NewSmoother(0.5)
	s.Update(Pose{Position: mgl64.Vec3{1, 1, 1}, Orientation: mgl64.QuatIdent()})
	s.Reset()

	if _, ok := s.Current(); ok {
		t.Fatal("Current should be uninitialized after Reset")
	}

	raw := Pose{Position: mgl64.Vec3{5, 5, 5}, Orientation: mgl64.QuatIdent()}
	if got := s.Update(raw); got != raw {
		t.Errorf("after reset first sample should be verbatim, got %v", got.Position)
	}
}
