package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by a Store when no entry exists for a key.
var ErrNotFound = errors.New("cache entry not found")

// Entry is a cached upstream payload.
type Entry struct {
	Key       string
	Sport     string
	Endpoint  string
	Value     []byte
	ExpiresAt time.Time
}

// Expired reports whether the entry is logically absent at now.
func (e *Entry) Expired(now time.Time) bool {
	return e.ExpiresAt.Before(now)
}

// Store persists cache entries. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Upsert(ctx context.Context, entry *Entry) error
	Delete(ctx context.Context, key string) error
	DeleteBySport(ctx context.Context, sport string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
