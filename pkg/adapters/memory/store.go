package memory

import (
	"context"
	"sync"

	"github.com/aretw0/storychain/pkg/domain"
)

// Store implements ports.RunStore in memory.
// Safe for concurrent use. Intended for tests and the HTTP server's
// default (non-durable) mode.
type Store struct {
	data map[string]*domain.Run
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Run),
	}
}

// Save persists the run in memory.
func (s *Store) Save(ctx context.Context, run *domain.Run) error {
	if run == nil || run.ID == "" {
		return domain.ErrPersistenceFailure
	}

	// Deep copy to ensure isolation, similar to serialization
	copied := *run
	copied.Chain = run.Chain.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[run.ID] = &copied
	return nil
}

// Load retrieves the run from memory.
func (s *Store) Load(ctx context.Context, id string) (*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.data[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}

	// Copy on read so the caller can't mutate stored data by pointer
	ret := *run
	ret.Chain = run.Chain.Clone()
	return &ret, nil
}

// Delete removes the run.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns archived run IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]string, 0, len(s.data))
	for id := range s.data {
		runs = append(runs, id)
	}
	return runs, nil
}
