package pending

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the fallback used when Redis is not reachable at
// startup.  Contexts live only in this process.
type MemoryStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]memoryItem
}

type memoryItem struct {
	c       Checkout
	expires time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, now: time.Now, items: make(map[string]memoryItem)}
}

func (s *MemoryStore) Save(_ context.Context, c Checkout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, it := range s.items {
		if !it.expires.After(now) {
			delete(s.items, id)
		}
	}
	s.items[c.BookingID] = memoryItem{c: c, expires: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Consume(_ context.Context, bookingID string) (Checkout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[bookingID]
	if !ok {
		return Checkout{}, ErrNotFound
	}
	delete(s.items, bookingID)
	if !it.expires.After(s.now()) {
		return Checkout{}, ErrNotFound
	}
	return it.c, nil
}
