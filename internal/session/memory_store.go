package session

import (
	"context"
	"sync"
)

// MemoryStore keeps paid-sets in a process-wide map. Sessions live for the
// process lifetime and vanish on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memoryPaidSet
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memoryPaidSet),
	}
}

// PaidSet implements Store. It never fails.
func (s *MemoryStore) PaidSet(_ context.Context, sessionID string) (PaidSet, error) {
	s.mu.RLock()
	set, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return set, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check under the write lock; a racing request may have created it.
	if set, ok := s.sessions[sessionID]; ok {
		return set, nil
	}

	set = &memoryPaidSet{segments: make(map[string]struct{})}
	s.sessions[sessionID] = set
	return set, nil
}

type memoryPaidSet struct {
	mu       sync.RWMutex
	segments map[string]struct{}
}

func (p *memoryPaidSet) Add(_ context.Context, segmentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.segments[segmentID] = struct{}{}
	return nil
}

func (p *memoryPaidSet) Contains(_ context.Context, segmentID string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.segments[segmentID]
	return ok, nil
}
