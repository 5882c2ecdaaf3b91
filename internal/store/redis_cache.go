package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/sports-gateway/internal/cache"
)

// expiryGrace keeps entries in Redis a little past their logical expiry so
// lazy eviction and the sweep, not Redis, decide when they disappear.
const expiryGrace = time.Hour

// CacheRedisStore is a Redis implementation of cache.Store.
//
// Each entry is a hash. A per-sport set and a sorted set scored by expiry
// index the entries for the bulk deletes.
type CacheRedisStore struct {
	client    redis.UniversalClient
	prefix    string
	expiryKey string
	now       func() time.Time
}

// NewCacheRedisStore creates a new Redis-backed cache store.
func NewCacheRedisStore(client redis.UniversalClient) *CacheRedisStore {
	return &CacheRedisStore{
		client:    client,
		prefix:    "cache:",
		expiryKey: "cache:expiry",
		now:       time.Now,
	}
}

func (r *CacheRedisStore) entryKey(key string) string {
	return r.prefix + "entry:" + key
}

func (r *CacheRedisStore) sportKey(sport string) string {
	return r.prefix + "sport:" + sport
}

func (r *CacheRedisStore) Get(ctx context.Context, key string) (*cache.Entry, error) {
	result, err := r.client.HGetAll(ctx, r.entryKey(key)).Result()
	if err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return nil, cache.ErrNotFound
	}

	nanos, err := strconv.ParseInt(result["expires_at"], 10, 64)
	if err != nil {
		return nil, errors.New("cache entry has malformed expires_at")
	}

	return &cache.Entry{
		Key:       key,
		Sport:     result["sport"],
		Endpoint:  result["endpoint"],
		Value:     []byte(result["value"]),
		ExpiresAt: time.Unix(0, nanos),
	}, nil
}

func (r *CacheRedisStore) Upsert(ctx context.Context, entry *cache.Entry) error {
	key := r.entryKey(entry.Key)
	pipe := r.client.TxPipeline()

	pipe.HSet(ctx, key, map[string]interface{}{
		"sport":      entry.Sport,
		"endpoint":   entry.Endpoint,
		"value":      entry.Value,
		"expires_at": entry.ExpiresAt.UnixNano(),
	})

	if entry.ExpiresAt.After(r.now()) {
		pipe.PExpireAt(ctx, key, entry.ExpiresAt.Add(expiryGrace))
	}

	pipe.SAdd(ctx, r.sportKey(entry.Sport), entry.Key)
	pipe.ZAdd(ctx, r.expiryKey, redis.Z{
		Score:  float64(entry.ExpiresAt.UnixNano()),
		Member: entry.Key,
	})

	_, err := pipe.Exec(ctx)

	return err
}

func (r *CacheRedisStore) Delete(ctx context.Context, key string) error {
	sport, err := r.client.HGet(ctx, r.entryKey(key), "sport").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.entryKey(key))
	pipe.ZRem(ctx, r.expiryKey, key)

	if sport != "" {
		pipe.SRem(ctx, r.sportKey(sport), key)
	}

	_, err = pipe.Exec(ctx)

	return err
}

func (r *CacheRedisStore) DeleteBySport(ctx context.Context, sport string) (int64, error) {
	keys, err := r.client.SMembers(ctx, r.sportKey(sport)).Result()
	if err != nil {
		return 0, err
	}

	if len(keys) == 0 {
		return 0, nil
	}

	return r.deleteEntries(ctx, keys, func(pipe redis.Pipeliner) {
		pipe.SRem(ctx, r.sportKey(sport), toMembers(keys)...)
	})
}

func (r *CacheRedisStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	keys, err := r.client.ZRangeByScore(ctx, r.expiryKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(now.UnixNano(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}

	if len(keys) == 0 {
		return 0, nil
	}

	sports := make(map[string][]string)

	for _, key := range keys {
		sport, err := r.client.HGet(ctx, r.entryKey(key), "sport").Result()
		if err == nil {
			sports[sport] = append(sports[sport], key)
		}
	}

	return r.deleteEntries(ctx, keys, func(pipe redis.Pipeliner) {
		for sport, members := range sports {
			pipe.SRem(ctx, r.sportKey(sport), toMembers(members)...)
		}
	})
}

// deleteEntries removes keys and their expiry index members and returns how many entries existed.
func (r *CacheRedisStore) deleteEntries(ctx context.Context, keys []string, extra func(redis.Pipeliner)) (int64, error) {
	entryKeys := make([]string, len(keys))
	for i, key := range keys {
		entryKeys[i] = r.entryKey(key)
	}

	pipe := r.client.TxPipeline()
	del := pipe.Del(ctx, entryKeys...)
	pipe.ZRem(ctx, r.expiryKey, toMembers(keys)...)
	extra(pipe)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	return del.Val(), nil
}

func toMembers(keys []string) []interface{} {
	members := make([]interface{}, len(keys))
	for i, key := range keys {
		members[i] = key
	}

	return members
}

// Compile-time check.
var _ cache.Store = (*CacheRedisStore)(nil)
