package remote

import (
	"context"
	"fmt"
	"sync"

	"github.com/teslashibe/go-arstage/pkg/protocol"
	"github.com/teslashibe/go-arstage/pkg/session"
)

// Loader waits for the page to report its model. The page starts loading on
// its own; Load only collects the outcome, which may already be in.
type Loader struct {
	once  sync.Once
	ready chan struct{}

	model *session.Model
	err   error
}

// NewLoader creates a loader with no outcome yet.
func NewLoader() *Loader {
	return &Loader{ready: make(chan struct{})}
}

// Load implements session.ModelLoader.
func (l *Loader) Load(ctx context.Context, path string) (*session.Model, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.ready:
	}
	if l.err != nil {
		return nil, l.err
	}
	m := *l.model
	if m.Path == "" {
		m.Path = path
	}
	return &m, nil
}

// loaded records a successful model report. Only the first report counts.
func (l *Loader) loaded(data *protocol.ModelData) {
	l.once.Do(func() {
		m := &session.Model{Path: data.Path}
		for _, c := range data.Clips {
			m.Clips = append(m.Clips, session.Clip{Name: c.Name, Duration: protocol.Seconds(c.Duration)})
		}
		l.model = m
		close(l.ready)
	})
}

// failed records a model load failure.
func (l *Loader) failed(message string) {
	l.once.Do(func() {
		l.err = fmt.Errorf("%w: %s", ErrModelLoad, message)
		close(l.ready)
	})
}
