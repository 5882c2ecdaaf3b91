package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the credential store used by the authenticator and the ledger.
type Repository interface {
	// LookupCredential returns the credential for key or ErrNotFound.
	LookupCredential(ctx context.Context, key string) (*Credential, error)
	// TouchLastUsed stamps the credential's last use.
	TouchLastUsed(ctx context.Context, credentialID uuid.UUID, at time.Time) error
	// GetSubscription returns the subscription for id or ErrNotFound.
	GetSubscription(ctx context.Context, id uuid.UUID) (*Subscription, error)
	// ResetCycle zeroes usage and moves the cycle start to now, only if the
	// stored cycle start still equals previousStart. It reports whether the
	// reset was applied.
	ResetCycle(ctx context.Context, id uuid.UUID, previousStart, now time.Time) (bool, error)
	// IncrementUsage atomically adds one to current usage and returns the new value.
	IncrementUsage(ctx context.Context, id uuid.UUID) (int64, error)
}
