// internal/store/memory.go
//
// In-memory implementation of the Store interface.
// Live sessions hold strategies with private generator state, so they stay
// in process; finished games are durable through the records package.
//
// Characteristics:
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.
//   - Get returns ErrNotFound for unknown ids.

package store

import (
	"context"
	"errors"
	"sync"

	"github.com/robalobadob/quarto/internal/auth"
)

var ErrNotFound = errors.New("session not found")

// Store defines the persistence interface for live sessions.
type Store interface {
	// Save persists or replaces a session.
	Save(ctx context.Context, s *Session) error

	// Get retrieves a session by ID.
	Get(ctx context.Context, id string) (*Session, error)

	// Reassign hands every live session owned by from to to and returns how
	// many changed.
	Reassign(ctx context.Context, from, to auth.Owner) int
}

type memory struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]*Session)}
}

func (m *memory) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, ErrNotFound
}

func (m *memory) Reassign(ctx context.Context, from, to auth.Owner) int {
	m.mu.RLock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()

	n := 0
	for _, s := range all {
		s.Lock()
		if s.Owner == from {
			s.Owner = to
			n++
		}
		s.Unlock()
	}
	return n
}
