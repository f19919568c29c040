// Package memory keeps recent competition rounds in process memory.
package memory

import (
	"context"
	"sync"

	"github.com/fd1az/autopilot/business/competition/domain"
)

// DefaultCapacity is used when NewStore gets a non-positive capacity.
const DefaultCapacity = 256

// Store is a fixed-size ring of round summaries. It implements app.Store.
type Store struct {
	mu     sync.RWMutex
	rounds []domain.RoundSummary
	next   int
	full   bool
}

// NewStore creates a store holding at most capacity rounds.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{rounds: make([]domain.RoundSummary, capacity)}
}

// SaveRound records r, evicting the oldest round when full.
func (s *Store) SaveRound(_ context.Context, r domain.RoundSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rounds[s.next] = r
	s.next = (s.next + 1) % len(s.rounds)
	if s.next == 0 {
		s.full = true
	}
	return nil
}

// RecentRounds returns up to limit rounds, newest first.
func (s *Store) RecentRounds(_ context.Context, limit int) ([]domain.RoundSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.next
	if s.full {
		n = len(s.rounds)
	}
	if limit > n {
		limit = n
	}
	if limit <= 0 {
		return nil, nil
	}

	out := make([]domain.RoundSummary, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (s.next - i + len(s.rounds)) % len(s.rounds)
		out = append(out, s.rounds[idx])
	}
	return out, nil
}

// Len returns the number of stored rounds.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.full {
		return len(s.rounds)
	}
	return s.next
}
