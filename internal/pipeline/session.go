package pipeline

import (
	"context"
	"maps"
	"sync"

	"github.com/couchcryptid/siting-explorer/internal/domain"
)

// SessionStore holds the latest minimum score per score column for each
// session. SetThreshold overwrites; it never merges with an earlier value.
type SessionStore interface {
	Thresholds(ctx context.Context, session string) (domain.Thresholds, error)
	SetThreshold(ctx context.Context, session, column string, minScore float64) error
}

// MemorySessionStore is a process-local SessionStore.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Thresholds
}

// NewMemorySessionStore creates an empty store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]domain.Thresholds)}
}

// Thresholds returns a copy of the session's thresholds. An unknown session
// has none.
func (s *MemorySessionStore) Thresholds(_ context.Context, session string) (domain.Thresholds, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(domain.Thresholds, len(s.sessions[session]))
	maps.Copy(out, s.sessions[session])
	return out, nil
}

func (s *MemorySessionStore) SetThreshold(_ context.Context, session, column string, minScore float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	th, ok := s.sessions[session]
	if !ok {
		th = make(domain.Thresholds)
		s.sessions[session] = th
	}
	th[column] = minScore
	return nil
}
