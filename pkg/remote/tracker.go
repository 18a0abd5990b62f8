package remote

import (
	"context"
	"fmt"
	"sync"

	"github.com/teslashibe/go-arstage/pkg/pose"
	"github.com/teslashibe/go-arstage/pkg/protocol"
)

// Tracker is the page's image tracker. Start asks the page to start it and
// waits for the outcome; poses arrive through the link as the page reports them.
type Tracker struct {
	sessionID string
	conn      Sender

	mu      sync.Mutex
	pose    pose.Pose
	hasPose bool
	stopped bool
	result  chan error
	done    chan struct{}
}

// NewTracker creates a tracker for the given session.
func NewTracker(sessionID string, conn Sender) *Tracker {
	return &Tracker{
		sessionID: sessionID,
		conn:      conn,
		result:    make(chan error, 1),
		done:      make(chan struct{}),
	}
}

// Start sends start_tracker and blocks until the page reports success or
// failure, ctx is done or the tracker is stopped.
func (t *Tracker) Start(ctx context.Context) error {
	msg, err := protocol.NewStartTrackerMessage(t.sessionID)
	if err != nil {
		return err
	}
	if err := t.conn.Send(msg); err != nil {
		return fmt.Errorf("send start_tracker: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return ErrNotConnected
	case err := <-t.result:
		return err
	}
}

// Stop discards the pose and aborts a pending Start. Later reports are ignored.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	t.hasPose = false
	close(t.done)
}

// Pose returns the last raw pose reported by the page.
func (t *Tracker) Pose() (pose.Pose, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pose, t.hasPose
}

// setPose records a raw pose report.
func (t *Tracker) setPose(p pose.Pose) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.pose = p
	t.hasPose = true
}

// resolve delivers the start outcome. Only the first one counts.
func (t *Tracker) resolve(err error) {
	select {
	case t.result <- err:
	default:
	}
}
