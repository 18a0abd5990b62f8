package remote

import (
	"sync/atomic"

	"github.com/teslashibe/go-arstage/pkg/frame"
	"github.com/teslashibe/go-arstage/pkg/protocol"
)

// Renderer forwards frames to the page. Frames that do not fit in the
// outbound queue are dropped; the next one supersedes them anyway.
type Renderer struct {
	conn    Sender
	dropped atomic.Uint64
}

// NewRenderer creates a renderer on conn.
func NewRenderer(conn Sender) *Renderer {
	return &Renderer{conn: conn}
}

// Render implements frame.Renderer.
func (r *Renderer) Render(f frame.Frame) {
	msg, err := protocol.NewFrameMessage(f)
	if err != nil {
		r.dropped.Add(1)
		return
	}
	if err := r.conn.Send(msg); err != nil {
		r.dropped.Add(1)
	}
}

// Dropped returns how many frames were not delivered.
func (r *Renderer) Dropped() uint64 {
	return r.dropped.Load()
}
