package history

import (
	"context"
	"sync"
)

// MemoryStore keeps every history in a map for the lifetime of the process.
type MemoryStore struct {
	mu        sync.RWMutex
	histories map[int64][]Turn
	maxLength int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an unbounded in-memory store.
func NewMemoryStore(maxLength int) *MemoryStore {
	return &MemoryStore{
		histories: make(map[int64][]Turn),
		maxLength: maxLength,
	}
}

func (s *MemoryStore) GetOrCreate(_ context.Context, userID int64) ([]Turn, error) {
	if userID == 0 {
		return nil, ErrInvalidUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	turns, ok := s.histories[userID]
	if !ok {
		turns = make([]Turn, 0, 8)
		s.histories[userID] = turns
	}
	return clone(turns), nil
}

func (s *MemoryStore) Clear(_ context.Context, userID int64) error {
	if userID == 0 {
		return ErrInvalidUser
	}

	s.mu.Lock()
	s.histories[userID] = make([]Turn, 0, 8)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Append(_ context.Context, userID int64, turn Turn) error {
	if userID == 0 {
		return ErrInvalidUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Trim never reorders, so the re-sliced history stays a suffix of what was stored.
	s.histories[userID] = Trim(append(s.histories[userID], turn), s.maxLength)
	return nil
}

func (s *MemoryStore) Snapshot(_ context.Context, userID int64) ([]Turn, error) {
	if userID == 0 {
		return nil, ErrInvalidUser
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.histories[userID]), nil
}

func (s *MemoryStore) Exists(_ context.Context, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.histories[userID]
	return ok, nil
}
