package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/sports-gateway/internal/cache"
)

// CachePostgresStore is a PostgreSQL implementation of cache.Store.
type CachePostgresStore struct {
	pool *pgxpool.Pool
}

// NewCachePostgresStore creates a new PostgreSQL-backed cache store.
func NewCachePostgresStore(pool *pgxpool.Pool) *CachePostgresStore {
	return &CachePostgresStore{pool: pool}
}

func (p *CachePostgresStore) Get(ctx context.Context, key string) (*cache.Entry, error) {
	query := `
		SELECT key, sport, endpoint, value, expires_at
		FROM cache_entries
		WHERE key = $1
	`

	var entry cache.Entry

	err := p.pool.QueryRow(ctx, query, key).Scan(
		&entry.Key,
		&entry.Sport,
		&entry.Endpoint,
		&entry.Value,
		&entry.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cache.ErrNotFound
		}

		return nil, err
	}

	return &entry, nil
}

func (p *CachePostgresStore) Upsert(ctx context.Context, entry *cache.Entry) error {
	query := `
		INSERT INTO cache_entries (key, sport, endpoint, value, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
	`

	_, err := p.pool.Exec(ctx, query,
		entry.Key,
		entry.Sport,
		entry.Endpoint,
		entry.Value,
		entry.ExpiresAt,
	)

	return err
}

func (p *CachePostgresStore) Delete(ctx context.Context, key string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM cache_entries WHERE key = $1`, key)

	return err
}

func (p *CachePostgresStore) DeleteBySport(ctx context.Context, sport string) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM cache_entries WHERE sport = $1`, sport)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func (p *CachePostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM cache_entries WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

// Compile-time check.
var _ cache.Store = (*CachePostgresStore)(nil)
