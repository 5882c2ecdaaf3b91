package store

import (
	"context"
	"database/sql"

	"github.com/serroba/sports-gateway/internal/telemetry"
)

// Postgres persists request events to the request_logs table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a new request log store. db is usually opened with
// stdlib.OpenDBFromPool so it shares the gateway's pgx pool.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) SaveRequest(ctx context.Context, event *telemetry.RequestEvent) error {
	query := `
		INSERT INTO request_logs
			(id, request_id, subscription_id, user_id, sport, endpoint, status_code, cache_hit, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := p.db.ExecContext(ctx, query,
		event.ID.String(),
		nullableString(event.RequestID),
		event.SubscriptionID.String(),
		event.UserID.String(),
		event.Sport,
		event.Endpoint,
		event.StatusCode,
		event.CacheHit,
		event.LatencyMs,
		event.RecordedAt,
	)

	return err
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

// Compile-time check.
var _ telemetry.Store = (*Postgres)(nil)
