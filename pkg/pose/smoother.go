package pose

// Smoother applies exponential smoothing to a stream of raw poses.
//
// The smoothed pose is owned by the Smoother and updated in place. The first
// sample is taken verbatim so content does not slide in from the origin.
// Smoother is not safe for concurrent use; the owning session serializes calls.
type Smoother struct {
	alpha       float64
	current     Pose
	initialized bool
}

// NewSmoother creates a smoother with the given factor.
// Factors outside (0, 1] fall back to DefaultSmoothing (<= 0) or 1 (> 1).
func NewSmoother(alpha float64) *Smoother {
	switch {
	case alpha <= 0:
		alpha = DefaultSmoothing
	case alpha > 1:
		alpha = 1
	}
	return &Smoother{alpha: alpha}
}

// Alpha returns the smoothing factor in use.
func (s *Smoother) Alpha() float64 {
	return s.alpha
}

// Update folds a raw pose into the smoothed pose and returns the result.
func (s *Smoother) Update(raw Pose) Pose {
	if !s.initialized {
		s.current = raw
		s.initialized = true
		return s.current
	}

	s.current.Position = Lerp(s.current.Position, raw.Position, s.alpha)
	s.current.Orientation = Slerp(s.current.Orientation, raw.Orientation, s.alpha)
	return s.current
}

// Current returns the smoothed pose and whether any sample has arrived yet.
func (s *Smoother) Current() (Pose, bool) {
	return s.current, s.initialized
}

// Reset forgets all samples. The next Update is taken verbatim.
func (s *Smoother) Reset() {
	s.current = Pose{}
	s.initialized = false
}
