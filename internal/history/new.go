package history

import (
	"fmt"
	"time"
)

const (
	BackendMemory = "memory"
	BackendLRU    = "lru"
)

// Config selects and sizes a Store backend.
type Config struct {
	Backend   string
	MaxLength int
	LRUSize   int
	LRUTTL    time.Duration
	// OnEvict is called for histories dropped by the lru backend.
	OnEvict func(userID int64)
}

// New builds the Store named by cfg.Backend. An empty backend means memory.
func New(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(cfg.MaxLength), nil
	case BackendLRU:
		return NewLRUStore(cfg.MaxLength, cfg.LRUSize, cfg.LRUTTL, cfg.OnEvict), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
