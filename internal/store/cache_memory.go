package store

import (
	"context"
	"sync"
	"time"

	"github.com/serroba/sports-gateway/internal/cache"
)

// CacheMemoryStore is an in-memory implementation of cache.Store.
type CacheMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]cache.Entry
}

// NewCacheMemoryStore creates a new in-memory cache store.
func NewCacheMemoryStore() *CacheMemoryStore {
	return &CacheMemoryStore{
		entries: make(map[string]cache.Entry),
	}
}

func (m *CacheMemoryStore) Get(_ context.Context, key string) (*cache.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, cache.ErrNotFound
	}

	return &entry, nil
}

func (m *CacheMemoryStore) Upsert(_ context.Context, entry *cache.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[entry.Key] = *entry

	return nil
}

func (m *CacheMemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)

	return nil
}

func (m *CacheMemoryStore) DeleteBySport(_ context.Context, sport string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64

	for key, entry := range m.entries {
		if entry.Sport == sport {
			delete(m.entries, key)
			n++
		}
	}

	return n, nil
}

func (m *CacheMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64

	for key, entry := range m.entries {
		if entry.Expired(now) {
			delete(m.entries, key)
			n++
		}
	}

	return n, nil
}

// Compile-time check.
var _ cache.Store = (*CacheMemoryStore)(nil)
