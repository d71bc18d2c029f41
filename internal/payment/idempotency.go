package payment

import (
	"sync"
	"time"
)

// IdempotencyStore is a best-effort short-circuit for at-least-once gateway
// redelivery. It is explicitly not the correctness boundary: the conditional
// status update resolves races, so an implementation may lose or expire keys
// at any time without affecting behavior beyond duplicate validation work.
type IdempotencyStore interface {
	Seen(key string) bool
	Record(key string)
}

// MemoryIdempotencyStore keeps processed keys in process memory with a TTL.
// Suitable for a single instance and for tests; multi-instance deployments
// should inject the shared postgres-backed store instead.
type MemoryIdempotencyStore struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]time.Time
}

func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryIdempotencyStore{
		ttl:     ttl,
		entries: make(map[string]time.Time),
	}
}

func (s *MemoryIdempotencyStore) Seen(key string) bool {
	s.mu.RLock()
	expiry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return false
	}
	return true
}

func (s *MemoryIdempotencyStore) Record(key string) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	// prune expired entries opportunistically to bound the map
	for k, expiry := range s.entries {
		if now.After(expiry) {
			delete(s.entries, k)
		}
	}
	s.entries[key] = now.Add(s.ttl)
}
