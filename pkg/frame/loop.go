package frame

import (
	"context"
	"sync"
	"time"
)

// DefaultFrameRate is the refresh rate of the frame loop in Hz.
const DefaultFrameRate = 60.0

// Loop hosts a single frame callback and invokes it once per refresh.
// The callback is registered once and reused, not re-armed per frame.
type Loop struct {
	interval time.Duration

	mu sync.Mutex
	fn func()
}

// NewLoop creates a loop at the given rate in Hz.
func NewLoop(rate float64) *Loop {
	if rate <= 0 {
		rate = DefaultFrameRate
	}
	return &Loop{interval: time.Duration(float64(time.Second) / rate)}
}

// SetAnimationLoop installs fn as the frame callback. nil disarms the loop.
func (l *Loop) SetAnimationLoop(fn func()) {
	l.mu.Lock()
	l.fn = fn
	l.mu.Unlock()
}

// Armed reports whether a callback is installed.
func (l *Loop) Armed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fn != nil
}

// Interval returns the time between refreshes.
func (l *Loop) Interval() time.Duration {
	return l.interval
}

// Step invokes the callback once if armed and reports whether it ran.
func (l *Loop) Step() bool {
	l.mu.Lock()
	fn := l.fn
	l.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

// Run invokes the callback on every refresh until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Step()
		}
	}
}
