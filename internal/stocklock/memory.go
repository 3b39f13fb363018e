package stocklock

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the single-node backend. Locks live in process memory, so
// a crash drops every lock at once instead of waiting for the TTL.
type MemoryStore struct {
	mu    sync.Mutex
	locks map[string]memoryLock
	now   func() time.Time
}

type memoryLock struct {
	holder    string
	expiresAt time.Time
}

// NewMemoryStore returns an empty store; now may be nil to use time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{locks: make(map[string]memoryLock), now: now}
}

func (s *MemoryStore) TryAcquire(_ context.Context, key, holder string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if cur, ok := s.locks[key]; ok && now.Before(cur.expiresAt) {
		return false, nil
	}
	s.locks[key] = memoryLock{holder: holder, expiresAt: now.Add(ttl)}
	return true, nil
}

func (s *MemoryStore) Release(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.locks, k)
	}
	return nil
}

// Holder reports the live holder of key, if any.
func (s *MemoryStore) Holder(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.locks[key]
	if !ok || !s.now().Before(cur.expiresAt) {
		return "", false
	}
	return cur.holder, true
}
