package seen

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// MemoryStore is a fixed-capacity set that evicts the oldest id when full.
// With a non-zero ttl an id older than ttl counts as unseen again.
type MemoryStore struct {
	// mu makes check-then-insert atomic; the cache alone only guards single calls.
	mu    sync.Mutex
	cache *lru.Cache
	ttl   time.Duration
	now   func() time.Time
}

var (
	_ Store       = (*MemoryStore)(nil)
	_ Snapshotter = (*MemoryStore)(nil)
)

// NewMemoryStore creates a store holding at most capacity ids.
func NewMemoryStore(capacity int, ttl time.Duration) (*MemoryStore, error) {
	cache, err := lru.New(capacity)
	if err != nil {
		return nil, fmt.Errorf("create seen cache: %w", err)
	}

	return &MemoryStore{
		cache: cache,
		ttl:   ttl,
		now:   time.Now,
	}, nil
}

// MarkSeen implements Store.
func (s *MemoryStore) MarkSeen(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fresh(id) {
		return false, nil
	}

	s.cache.Add(id, s.now())

	return true, nil
}

// Contains implements Store.
func (s *MemoryStore) Contains(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.fresh(id), nil
}

// Len returns the number of remembered ids, including expired ones not yet evicted.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}

// Snapshot implements Snapshotter.
func (s *MemoryStore) Snapshot() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.cache.Keys()
	ids := make([]int64, 0, len(keys))

	for _, key := range keys {
		if id, ok := key.(int64); ok && s.fresh(id) {
			ids = append(ids, id)
		}
	}

	return ids
}

// Restore implements Snapshotter. Restored ids start a new ttl window.
func (s *MemoryStore) Restore(ids []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, id := range ids {
		s.cache.Add(id, now)
	}
}

// fresh reports whether id is present and inside the ttl window.
// Peek is used so lookups do not refresh the eviction order.
func (s *MemoryStore) fresh(id int64) bool {
	value, ok := s.cache.Peek(id)
	if !ok {
		return false
	}

	if s.ttl <= 0 {
		return true
	}

	seenAt, ok := value.(time.Time)

	return ok && s.now().Sub(seenAt) < s.ttl
}
