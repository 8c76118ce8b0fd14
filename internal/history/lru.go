package history

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultLRUSize = 10000
	DefaultLRUTTL  = 24 * time.Hour
)

// LRUStore bounds the number of live sessions. The least recently used
// history is dropped when the cache is full and idle histories expire after
// the configured TTL; the affected user starts a fresh session next time.
type LRUStore struct {
	// mu serialises read-modify-write sequences; the cache itself is already
	// safe for concurrent single operations.
	mu        sync.Mutex
	cache     *expirable.LRU[int64, []Turn]
	maxLength int
}

var _ Store = (*LRUStore)(nil)

// NewLRUStore creates a store holding at most size histories, each expiring
// after ttl without activity. onEvict may be nil.
func NewLRUStore(maxLength, size int, ttl time.Duration, onEvict func(userID int64)) *LRUStore {
	if size <= 0 {
		size = DefaultLRUSize
	}
	if ttl <= 0 {
		ttl = DefaultLRUTTL
	}

	var cb expirable.EvictCallback[int64, []Turn]
	if onEvict != nil {
		cb = func(key int64, _ []Turn) { onEvict(key) }
	}

	return &LRUStore{
		cache:     expirable.NewLRU[int64, []Turn](size, cb, ttl),
		maxLength: maxLength,
	}
}

func (s *LRUStore) GetOrCreate(_ context.Context, userID int64) ([]Turn, error) {
	if userID == 0 {
		return nil, ErrInvalidUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	turns, ok := s.cache.Get(userID)
	if !ok {
		turns = []Turn{}
		s.cache.Add(userID, turns)
	}
	return clone(turns), nil
}

func (s *LRUStore) Clear(_ context.Context, userID int64) error {
	if userID == 0 {
		return ErrInvalidUser
	}

	s.mu.Lock()
	s.cache.Add(userID, []Turn{})
	s.mu.Unlock()
	return nil
}

func (s *LRUStore) Append(_ context.Context, userID int64, turn Turn) error {
	if userID == 0 {
		return ErrInvalidUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	turns, _ := s.cache.Get(userID)
	// Stored slices are never handed out, so a fresh copy keeps callers of
	// Snapshot isolated from later appends.
	next := make([]Turn, 0, len(turns)+1)
	next = append(next, turns...)
	next = append(next, turn)
	s.cache.Add(userID, Trim(next, s.maxLength))
	return nil
}

func (s *LRUStore) Snapshot(_ context.Context, userID int64) ([]Turn, error) {
	if userID == 0 {
		return nil, ErrInvalidUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	turns, _ := s.cache.Peek(userID)
	return clone(turns), nil
}

func (s *LRUStore) Exists(_ context.Context, userID int64) (bool, error) {
	return s.cache.Contains(userID), nil
}

// Len reports how many histories are currently cached.
func (s *LRUStore) Len() int {
	return s.cache.Len()
}
