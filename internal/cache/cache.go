// Package cache implements the cache-aside layer in front of the upstream provider.
package cache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Loader fetches a fresh payload on a cache miss.
type Loader func(ctx context.Context) ([]byte, error)

// Result is a payload together with where it came from.
type Result struct {
	Payload   []byte
	Hit       bool
	ExpiresAt time.Time
}

// ResponseCache serves payloads from a Store and fills it from a Loader on a miss.
// Store failures are logged and treated as misses.
type ResponseCache struct {
	store  Store
	policy *Policy
	logger *zap.Logger
	now    func() time.Time
	group  *singleflight.Group
}

// Option configures a ResponseCache.
type Option func(*ResponseCache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *ResponseCache) {
		c.now = now
	}
}

// WithSingleFlight collapses concurrent misses for the same key into one load.
func WithSingleFlight(enabled bool) Option {
	return func(c *ResponseCache) {
		if enabled {
			c.group = &singleflight.Group{}
		} else {
			c.group = nil
		}
	}
}

// New creates a new response cache. Single-flight is enabled by default.
func New(store Store, policy *Policy, logger *zap.Logger, opts ...Option) *ResponseCache {
	c := &ResponseCache{
		store:  store,
		policy: policy,
		logger: logger,
		now:    time.Now,
		group:  &singleflight.Group{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Fetch returns the cached payload for key, or loads, stores and returns a fresh one.
// Loader errors are returned as is and leave the cache untouched.
func (c *ResponseCache) Fetch(ctx context.Context, key Key, load Loader) (Result, error) {
	storageKey := key.String()

	if entry, ok := c.Lookup(ctx, storageKey); ok {
		return Result{Payload: entry.Value, Hit: true, ExpiresAt: entry.ExpiresAt}, nil
	}

	if c.group == nil {
		return c.fill(ctx, key, storageKey, load)
	}

	v, err, _ := c.group.Do(storageKey, func() (any, error) {
		return c.fill(ctx, key, storageKey, load)
	})
	if err != nil {
		return Result{}, err
	}

	return v.(Result), nil
}

// Lookup returns a live entry for storageKey. Expired entries are deleted and reported as misses.
func (c *ResponseCache) Lookup(ctx context.Context, storageKey string) (*Entry, bool) {
	entry, err := c.store.Get(ctx, storageKey)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("cache read failed", zap.String("key", storageKey), zap.Error(err))
		}

		return nil, false
	}

	if entry.Expired(c.now()) {
		if err := c.store.Delete(ctx, storageKey); err != nil {
			c.logger.Warn("failed to evict stale cache entry", zap.String("key", storageKey), zap.Error(err))
		}

		return nil, false
	}

	return entry, true
}

func (c *ResponseCache) fill(ctx context.Context, key Key, storageKey string, load Loader) (Result, error) {
	// A client disconnect must not abort a fill other callers may be waiting on.
	ctx = context.WithoutCancel(ctx)

	payload, err := load(ctx)
	if err != nil {
		return Result{}, err
	}

	entry := &Entry{
		Key:       storageKey,
		Sport:     key.Sport,
		Endpoint:  key.Endpoint,
		Value:     payload,
		ExpiresAt: c.now().Add(c.policy.TTL(key.Endpoint, payload)),
	}

	if err := c.store.Upsert(ctx, entry); err != nil {
		c.logger.Warn("cache write failed",
			zap.String("key", storageKey),
			zap.String("endpoint", key.Endpoint),
			zap.Error(err),
		)
	}

	return Result{Payload: payload, ExpiresAt: entry.ExpiresAt}, nil
}

// FlushSport deletes every entry for sport.
func (c *ResponseCache) FlushSport(ctx context.Context, sport string) (int64, error) {
	n, err := c.store.DeleteBySport(ctx, sport)
	if err != nil {
		return 0, err
	}

	c.logger.Info("cache flushed", zap.String("sport", sport), zap.Int64("deleted", n))

	return n, nil
}

// Sweep deletes every expired entry.
func (c *ResponseCache) Sweep(ctx context.Context) (int64, error) {
	n, err := c.store.DeleteExpired(ctx, c.now())
	if err != nil {
		return 0, err
	}

	if n > 0 {
		c.logger.Info("expired cache entries swept", zap.Int64("deleted", n))
	}

	return n, nil
}
