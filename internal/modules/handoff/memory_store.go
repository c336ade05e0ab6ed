package handoff

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store used when Redis is not configured.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	pending map[string]Handoff
}

func NewMemoryStore(ttl time.Duration, now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{ttl: ttl, now: now, pending: make(map[string]Handoff)}
}

func (s *MemoryStore) Put(_ context.Context, uid string, h Handoff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.CreatedAt.IsZero() {
		h.CreatedAt = s.now()
	}
	s.pending[uid] = h
	return nil
}

func (s *MemoryStore) Take(_ context.Context, uid string) (*Handoff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.pending[uid]
	if !ok {
		return nil, nil
	}
	delete(s.pending, uid)
	if s.ttl > 0 && s.now().Sub(h.CreatedAt) > s.ttl {
		return nil, nil
	}
	return &h, nil
}
