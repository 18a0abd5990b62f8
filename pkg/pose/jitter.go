package pose

import (
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/stat"
)

// DefaultJitterWindow is the number of frames kept for jitter statistics.
const DefaultJitterWindow = 120

// JitterSummary describes per-frame displacement of the raw and smoothed poses.
type JitterSummary struct {
	Samples        int     `json:"samples"`
	RawMean        float64 `json:"raw_mean"`
	RawStdDev      float64 `json:"raw_std_dev"`
	SmoothedMean   float64 `json:"smoothed_mean"`
	SmoothedStdDev float64 `json:"smoothed_std_dev"`
}

// JitterStats keeps a sliding window of frame-to-frame position deltas.
type JitterStats struct {
	window   int
	raw      []float64
	smoothed []float64

	lastRaw      mgl64.Vec3
	lastSmoothed mgl64.Vec3
	primed       bool
}

// NewJitterStats creates a tracker over the last window frames.
func NewJitterStats(window int) *JitterStats {
	if window <= 1 {
		window = DefaultJitterWindow
	}
	return &JitterStats{
		window:   window,
		raw:      make([]float64, 0, window),
		smoothed: make([]float64, 0, window),
	}
}

// Observe records one frame.
func (j *JitterStats) Observe(raw, smoothed Pose) {
	if j.primed {
		j.raw = push(j.raw, raw.Position.Sub(j.lastRaw).Len(), j.window)
		j.smoothed = push(j.smoothed, smoothed.Position.Sub(j.lastSmoothed).Len(), j.window)
	}
	j.lastRaw = raw.Position
	j.lastSmoothed = smoothed.Position
	j.primed = true
}

// Summary returns mean and standard deviation of both delta series.
func (j *JitterStats) Summary() JitterSummary {
	sum := JitterSummary{Samples: len(j.raw)}
	if len(j.raw) < 2 {
		return sum
	}
	sum.RawMean, sum.RawStdDev = stat.MeanStdDev(j.raw, nil)
	sum.SmoothedMean, sum.SmoothedStdDev = stat.MeanStdDev(j.smoothed, nil)
	return sum
}

func push(s []float64, v float64, limit int) []float64 {
	if len(s) == limit {
		copy(s, s[1:])
		s = s[:limit-1]
	}
	return append(s, v)
}
