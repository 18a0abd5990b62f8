// Package pose turns the jittery anchor pose reported by an image tracker
// into a stable transform for rendering.
package pose

import "github.com/go-gl/mathgl/mgl64"

// DefaultSmoothing is the interpolation weight applied to each new raw sample.
// Lower is smoother but laggier.
const DefaultSmoothing = 0.15

// Pose is a rigid transform: a position and a unit quaternion orientation.
type Pose struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
}

// Identity returns the pose at the origin with no rotation.
func Identity() Pose {
	return Pose{Orientation: mgl64.QuatIdent()}
}

// Lerp linearly interpolates between two positions.
func Lerp(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Mul(1 - t).Add(b.Mul(t))
}

// Slerp spherically interpolates between two orientations along the shortest arc.
// mgl64.QuatSlerp does not flip hemispheres on its own, so q and -q would
// otherwise take the long way around.
func Slerp(a, b mgl64.Quat, t float64) mgl64.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl64.QuatSlerp(a, b, t)
}
