package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/sports-gateway/internal/ratelimit"
)

// hitScript increments the window counter, arms its expiry on the first hit
// and returns the count together with the remaining time to live.
var hitScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RateLimitRedisStore is a Redis implementation of ratelimit.Store shared by all gateway instances.
type RateLimitRedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRateLimitRedisStore creates a new Redis-backed rate limit store.
func NewRateLimitRedisStore(client redis.UniversalClient) *RateLimitRedisStore {
	return &RateLimitRedisStore{
		client: client,
		prefix: "ratelimit:",
	}
}

func (s *RateLimitRedisStore) Hit(ctx context.Context, key string, window time.Duration, now time.Time) (ratelimit.Window, error) {
	res, err := hitScript.Run(ctx, s.client, []string{s.prefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return ratelimit.Window{}, fmt.Errorf("rate limit hit: %w", err)
	}

	if len(res) != 2 {
		return ratelimit.Window{}, fmt.Errorf("rate limit hit: unexpected reply length %d", len(res))
	}

	return ratelimit.Window{
		Count:   res[0],
		ResetAt: now.Add(time.Duration(res[1]) * time.Millisecond),
	}, nil
}
