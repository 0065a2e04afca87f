package store

import (
	"context"
	"sync"
	"time"
)

// IdempotencyStore records the outcome of a keyed mutating request so a
// replay (the PATCH→PUT fallback pair, or a client retry) returns the
// recorded outcome instead of re-applying the transition.
type IdempotencyStore interface {
	// Get returns the recorded payload for key, or nil if none.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

type idempotencyEntry struct {
	payload   []byte
	expiresAt time.Time
}

type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]idempotencyEntry
	now     func() time.Time
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		entries: make(map[string]idempotencyEntry),
		now:     time.Now,
	}
}

func (s *MemoryIdempotencyStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return nil, nil
	}
	return entry.payload, nil
}

func (s *MemoryIdempotencyStore) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = idempotencyEntry{payload: payload, expiresAt: s.now().Add(ttl)}
	return nil
}

var _ IdempotencyStore = (*MemoryIdempotencyStore)(nil)
