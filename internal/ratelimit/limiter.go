// Package ratelimit provides per-client fixed-window request throttling.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of admitting one request.
type Decision struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter decides whether a request from identity is admitted.
type Limiter interface {
	Admit(ctx context.Context, identity string) (Decision, error)
}

// FixedWindowLimiter admits at most limit requests per identity per window.
type FixedWindowLimiter struct {
	store  Store
	limit  int64
	window time.Duration
	now    func() time.Time
}

// Option configures a FixedWindowLimiter.
type Option func(*FixedWindowLimiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *FixedWindowLimiter) {
		l.now = now
	}
}

// NewFixedWindowLimiter creates a new fixed window rate limiter.
func NewFixedWindowLimiter(store Store, limit int64, window time.Duration, opts ...Option) *FixedWindowLimiter {
	l := &FixedWindowLimiter{
		store:  store,
		limit:  limit,
		window: window,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

func (l *FixedWindowLimiter) Admit(ctx context.Context, identity string) (Decision, error) {
	now := l.now()

	w, err := l.store.Hit(ctx, identity, l.window, now)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{
		Allowed:   w.Count <= l.limit,
		Limit:     l.limit,
		Remaining: max(l.limit-w.Count, 0),
		ResetAt:   w.ResetAt,
	}

	if !d.Allowed {
		d.RetryAfter = max(w.ResetAt.Sub(now), 0)
	}

	return d, nil
}
