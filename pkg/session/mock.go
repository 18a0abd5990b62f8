package session

import (
	"context"
	"sync"

	"github.com/teslashibe/go-arstage/pkg/pose"
)

// MockTracker implements Tracker for testing.
type MockTracker struct {
	// StartFunc is called when Start is invoked. If nil, Start succeeds.
	StartFunc func(ctx context.Context) error

	mu      sync.Mutex
	pose    pose.Pose
	hasPose bool
	starts  int
	stopped bool
}

// Start records the call and defers to StartFunc.
func (m *MockTracker) Start(ctx context.Context) error {
	m.mu.Lock()
	m.starts++
	fn := m.StartFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return nil
}

// Stop records the call.
func (m *MockTracker) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

// Pose returns the last pose set with SetPose.
func (m *MockTracker) Pose() (pose.Pose, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pose, m.hasPose
}

// SetPose sets the raw anchor pose.
func (m *MockTracker) SetPose(p pose.Pose) {
	m.mu.Lock()
	m.pose = p
	m.hasPose = true
	m.mu.Unlock()
}

// Starts returns how many times Start was called.
func (m *MockTracker) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

// Stopped reports whether Stop was called.
func (m *MockTracker) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// MockLoader implements ModelLoader for testing.
type MockLoader struct {
	// LoadFunc is called when Load is invoked. If nil, Load returns a model
	// with no clips.
	LoadFunc func(ctx context.Context, path string) (*Model, error)
}

// Load defers to LoadFunc.
func (m *MockLoader) Load(ctx context.Context, path string) (*Model, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, path)
	}
	return &Model{Path: path}, nil
}
