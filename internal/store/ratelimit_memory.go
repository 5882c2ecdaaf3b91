package store

import (
	"context"
	"sync"
	"time"

	"github.com/serroba/sports-gateway/internal/ratelimit"
)

// RateLimitMemoryStore is an in-memory implementation of ratelimit.Store.
type RateLimitMemoryStore struct {
	mu      sync.Mutex
	windows map[string]*ratelimit.Window
}

// NewRateLimitMemoryStore creates a new in-memory rate limit store.
func NewRateLimitMemoryStore() *RateLimitMemoryStore {
	return &RateLimitMemoryStore{
		windows: make(map[string]*ratelimit.Window),
	}
}

func (s *RateLimitMemoryStore) Hit(_ context.Context, key string, window time.Duration, now time.Time) (ratelimit.Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || !now.Before(w.ResetAt) {
		w = &ratelimit.Window{ResetAt: now.Add(window)}
		s.windows[key] = w
	}

	w.Count++

	return *w, nil
}

// Sweep deletes every window that has already reset and returns how many were removed.
func (s *RateLimitMemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0

	for key, w := range s.windows {
		if !now.Before(w.ResetAt) {
			delete(s.windows, key)
			removed++
		}
	}

	return removed
}

// Len returns the number of tracked windows.
func (s *RateLimitMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.windows)
}
