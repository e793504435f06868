// internal/kv/memory.go
package kv

import (
	"context"
	"sync"
	"time"
)

// sweepInterval bounds how often a write scans for expired entries.
const sweepInterval = time.Minute

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore is a process-local Store. Expired entries are dropped when
// their key is touched and by a sweep run from SetNX at most once per
// sweepInterval, so keys that are never looked up again do not accumulate.
type MemoryStore struct {
	mu        sync.Mutex
	items     map[string]entry
	now       func() time.Time
	nextSweep time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]entry), now: time.Now}
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *MemoryStore) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweep(now)

	if e, ok := s.items[key]; ok && !e.expired(now) {
		return false, nil
	}
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	s.items[key] = e
	return true, nil
}

func (s *MemoryStore) Close() error { return nil }

// sweep drops every expired entry once the interval has passed. Caller holds mu.
func (s *MemoryStore) sweep(now time.Time) {
	if now.Before(s.nextSweep) {
		return
	}
	for k, e := range s.items {
		if e.expired(now) {
			delete(s.items, k)
		}
	}
	s.nextSweep = now.Add(sweepInterval)
}

var _ Store = (*MemoryStore)(nil)
