package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/sports-gateway/internal/subscription"
)

// CredentialPostgresStore is a PostgreSQL implementation of subscription.Repository.
type CredentialPostgresStore struct {
	pool *pgxpool.Pool
}

// NewCredentialPostgresStore creates a new PostgreSQL-backed credential store.
func NewCredentialPostgresStore(pool *pgxpool.Pool) *CredentialPostgresStore {
	return &CredentialPostgresStore{pool: pool}
}

func (p *CredentialPostgresStore) LookupCredential(ctx context.Context, key string) (*subscription.Credential, error) {
	query := `
		SELECT id, key, subscription_id, active, last_used_at
		FROM api_credentials
		WHERE key = $1
	`

	var cred subscription.Credential

	err := p.pool.QueryRow(ctx, query, key).Scan(
		&cred.ID,
		&cred.Key,
		&cred.SubscriptionID,
		&cred.Active,
		&cred.LastUsedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, subscription.ErrNotFound
		}

		return nil, err
	}

	return &cred, nil
}

func (p *CredentialPostgresStore) TouchLastUsed(ctx context.Context, credentialID uuid.UUID, at time.Time) error {
	query := `UPDATE api_credentials SET last_used_at = $2 WHERE id = $1`

	_, err := p.pool.Exec(ctx, query, credentialID, at)

	return err
}

func (p *CredentialPostgresStore) GetSubscription(ctx context.Context, id uuid.UUID) (*subscription.Subscription, error) {
	query := `
		SELECT id, user_id, sport, active, cycle_start_date, cycle_quota, current_usage
		FROM subscriptions
		WHERE id = $1
	`

	var (
		sub   subscription.Subscription
		sport string
	)

	err := p.pool.QueryRow(ctx, query, id).Scan(
		&sub.ID,
		&sub.UserID,
		&sport,
		&sub.Active,
		&sub.CycleStartDate,
		&sub.CycleQuota,
		&sub.CurrentUsage,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, subscription.ErrNotFound
		}

		return nil, err
	}

	sub.Sport = subscription.Sport(sport)

	return &sub, nil
}

func (p *CredentialPostgresStore) ResetCycle(
	ctx context.Context, id uuid.UUID, previousStart, now time.Time,
) (bool, error) {
	query := `
		UPDATE subscriptions
		SET current_usage = 0, cycle_start_date = $3
		WHERE id = $1 AND cycle_start_date = $2
	`

	tag, err := p.pool.Exec(ctx, query, id, previousStart, now)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

func (p *CredentialPostgresStore) IncrementUsage(ctx context.Context, id uuid.UUID) (int64, error) {
	query := `
		UPDATE subscriptions
		SET current_usage = current_usage + 1
		WHERE id = $1
		RETURNING current_usage
	`

	var usage int64

	if err := p.pool.QueryRow(ctx, query, id).Scan(&usage); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, subscription.ErrNotFound
		}

		return 0, err
	}

	return usage, nil
}

// Compile-time check.
var _ subscription.Repository = (*CredentialPostgresStore)(nil)
