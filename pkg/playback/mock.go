package playback

import (
	"sync"
	"time"
)

// MockAudio implements Audio for testing.
// Time only moves when Advance is called while playing.
type MockAudio struct {
	// PlayFunc is called when Play is invoked. If nil, Play succeeds.
	PlayFunc func() error

	// SeekFunc is called when SetCurrentTime is invoked. If nil, seeking succeeds.
	SeekFunc func(t time.Duration) error

	mu      sync.Mutex
	current time.Duration
	playing bool
	calls   []string
	seeks   []time.Duration
}

// NewMockAudio creates a mock audio element at time zero, paused.
func NewMockAudio() *MockAudio {
	return &MockAudio{}
}

// Play starts the mock unless PlayFunc rejects.
func (m *MockAudio) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "play")
	if m.PlayFunc != nil {
		if err := m.PlayFunc(); err != nil {
			return err
		}
	}
	m.playing = true
	return nil
}

// Pause stops the mock.
func (m *MockAudio) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "pause")
	m.playing = false
}

// SetCurrentTime seeks the mock unless SeekFunc rejects.
func (m *MockAudio) SetCurrentTime(t time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "seek")
	if m.SeekFunc != nil {
		if err := m.SeekFunc(t); err != nil {
			return err
		}
	}
	m.current = t
	m.seeks = append(m.seeks, t)
	return nil
}

// CurrentTime returns the playhead.
func (m *MockAudio) CurrentTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Advance moves the playhead by d if playing.
func (m *MockAudio) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playing {
		m.current += d
	}
}

// Playing reports whether the mock is playing.
func (m *MockAudio) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// Calls returns the recorded method names in order.
func (m *MockAudio) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Seeks returns every successful seek target in order.
func (m *MockAudio) Seeks() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.seeks...)
}

// Reset clears recorded calls and seeks.
func (m *MockAudio) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.seeks = nil
}

// MockAction implements AnimationAction for testing.
type MockAction struct {
	mu     sync.Mutex
	paused bool
	sets   int
}

// SetPaused records the paused flag.
func (m *MockAction) SetPaused(paused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = paused
	m.sets++
}

// Paused returns the last paused flag.
func (m *MockAction) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}
