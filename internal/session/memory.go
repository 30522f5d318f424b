package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	data    Data
	expires time.Time
}

// MemoryStore is a process-local Store used when Redis is unavailable and
// in tests. Expired entries are dropped lazily on access.
type MemoryStore struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]memoryEntry
	now func() time.Time
}

// NewMemoryStore builds an empty in-memory store with the given TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl: ttl,
		m:   make(map[string]memoryEntry),
		now: time.Now,
	}
}

// Get returns the session state for id, or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, id string) (Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[id]
	if !ok || s.now().After(e.expires) {
		delete(s.m, id)
		return Data{}, ErrNotFound
	}
	return e.data, nil
}

// Save writes the session state and resets its TTL.
func (s *MemoryStore) Save(_ context.Context, id string, d Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[id] = memoryEntry{data: d, expires: s.now().Add(s.ttl)}
	return nil
}

// Delete destroys the session.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}
