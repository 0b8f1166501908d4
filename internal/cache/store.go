package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Store holds serialized responses by key. Retention is the store's own
// business.
type Store interface {
	Get(ctx context.Context, key []byte) ([]byte, bool, error)
	Set(ctx context.Context, key, value []byte) error
}

// MemoryStore is a concurrent in-memory store with expiring entries.
type MemoryStore struct {
	c *gocache.Cache
}

// NewMemoryStore creates a store whose entries expire after ttl and are
// purged every cleanup. A ttl of zero keeps entries until restart.
func NewMemoryStore(ttl, cleanup time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &MemoryStore{c: gocache.New(ttl, cleanup)}
}

func (s *MemoryStore) Get(_ context.Context, key []byte) ([]byte, bool, error) {
	v, ok := s.c.Get(string(key))
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	return b, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value []byte) error {
	s.c.Set(string(key), value, gocache.DefaultExpiration)
	return nil
}

// Len returns the number of stored entries, expired ones included until the
// next cleanup.
func (s *MemoryStore) Len() int {
	return s.c.ItemCount()
}
