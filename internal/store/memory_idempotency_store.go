package store

import (
	"context"
	"sync"
	"time"
)

// MemoryIdempotencyStore implements IdempotencyStore with an in-memory
// map. Used when Redis is disabled; entries expire lazily on read.
type MemoryIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string]idempotencyEntry
}

type idempotencyEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryIdempotencyStore creates an empty in-memory idempotency store
func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		data: make(map[string]idempotencyEntry),
	}
}

// Get retrieves a cached response
func (s *MemoryIdempotencyStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.data[key]
	if !exists || time.Now().After(entry.expiresAt) {
		return nil, ErrNotFound
	}
	return entry.value, nil
}

// Set stores a response with TTL
func (s *MemoryIdempotencyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = idempotencyEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Delete removes an idempotency key
func (s *MemoryIdempotencyStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// Ping always succeeds for the in-memory store
func (s *MemoryIdempotencyStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store
func (s *MemoryIdempotencyStore) Close() error {
	return nil
}
