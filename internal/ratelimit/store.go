package ratelimit

import (
	"context"
	"time"
)

// Window is the state of one client's fixed window after a hit.
type Window struct {
	Count   int64
	ResetAt time.Time
}

// Store defines the interface for rate limit data storage.
type Store interface {
	// Hit counts one request for key. A fresh window starting at now is opened
	// when none exists or the current one has reset.
	Hit(ctx context.Context, key string, window time.Duration, now time.Time) (Window, error)
}
