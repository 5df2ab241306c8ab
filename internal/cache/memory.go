package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. Expired entries are deleted on lookup;
// a periodic sweep removes entries nothing reads anymore.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]*Entry
	lastSweep  time.Time
	sweepEvery time.Duration
	clock      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:    make(map[string]*Entry),
		sweepEvery: 5 * time.Minute,
		clock:      time.Now,
	}
}

// Get returns the cached data for key, or ok=false when absent or expired.
func (s *MemoryStore) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	now := s.clock()

	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if entry.Expired(now) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false, nil
	}
	return entry.Data, true, nil
}

// Put stores data under key with the given TTL.
func (s *MemoryStore) Put(_ context.Context, key string, data json.RawMessage, ttl time.Duration, service string) error {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = &Entry{
		Key:       key,
		Data:      data,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Service:   service,
	}
	s.sweepLocked(now)
	return nil
}

// Len returns the number of entries, expired included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	if now.Sub(s.lastSweep) < s.sweepEvery {
		return
	}
	s.lastSweep = now
	for key, entry := range s.entries {
		if entry.Expired(now) {
			delete(s.entries, key)
		}
	}
}
