package session

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Factory builds a session for a freshly minted ID.
type Factory func(id string) (*Session, error)

// Manager keeps the live sessions of a process, each driven by its own frame
// loop goroutine.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*managed
}

type managed struct {
	s      *Session
	cancel context.CancelFunc
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*managed)}
}

// Create builds a session with a new UUID and starts its frame loop.
func (m *Manager) Create(ctx context.Context, factory Factory) (*Session, error) {
	id := uuid.New().String()
	s, err := factory(id)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.sessions[id] = &managed{s: s, cancel: cancel}
	m.mu.Unlock()

	go s.Run(runCtx)
	return s, nil
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ms, ok := m.sessions[id]; ok {
		return ms.s, nil
	}
	return nil, ErrNotFound
}

// Delete closes and forgets a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	ms, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	ms.cancel()
	ms.s.Close()
	return nil
}

// List returns every session ordered by creation time.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, ms := range m.sessions {
		out = append(out, ms.s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].createdAt.Before(out[j].createdAt)
	})
	return out
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll closes every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*managed)
	m.mu.Unlock()

	for _, ms := range all {
		ms.cancel()
		ms.s.Close()
	}
}
