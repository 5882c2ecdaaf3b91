package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Authenticator validates API keys against subscriptions and enforces the cycle quota.
type Authenticator struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		a.now = now
	}
}

// NewAuthenticator creates a new quota authenticator.
func NewAuthenticator(repo Repository, logger *zap.Logger, opts ...Option) *Authenticator {
	a := &Authenticator{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Authenticate resolves key into an AuthContext. An empty sport skips the entitlement check.
//
// Checks run in a fixed order: credential, subscription state, sport, cycle rollover, quota.
func (a *Authenticator) Authenticate(ctx context.Context, key string, sport Sport) (*AuthContext, error) {
	if key == "" {
		return nil, ErrMissingCredential
	}

	cred, err := a.repo.LookupCredential(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredential
		}

		return nil, fmt.Errorf("lookup credential: %w", err)
	}

	if !cred.Active {
		return nil, ErrInvalidCredential
	}

	sub, err := a.repo.GetSubscription(ctx, cred.SubscriptionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredential
		}

		return nil, fmt.Errorf("get subscription: %w", err)
	}

	if !sub.Active {
		return nil, ErrSubscriptionInactive
	}

	if sport != "" && sport != sub.Sport {
		return nil, &SportNotEntitledError{Requested: sport, Entitled: sub.Sport}
	}

	now := a.now()

	if sub.CycleExpired(now) {
		sub, err = a.rollover(ctx, sub, now)
		if err != nil {
			return nil, err
		}
	}

	if sub.CurrentUsage >= sub.CycleQuota {
		return nil, &QuotaExhaustedError{Quota: sub.CycleQuota, ResetAt: sub.NextReset()}
	}

	if err := a.repo.TouchLastUsed(ctx, cred.ID, now); err != nil {
		a.logger.Warn("failed to stamp credential last use",
			zap.String("credential_id", cred.ID.String()),
			zap.Error(err),
		)
	}

	return &AuthContext{
		CredentialID:   cred.ID,
		UserID:         sub.UserID,
		SubscriptionID: sub.ID,
		Sport:          sub.Sport,
		RemainingQuota: sub.Remaining(),
		ResetAt:        sub.NextReset(),
	}, nil
}

// rollover starts a fresh cycle. If another request reset it first, the stored state is reloaded.
func (a *Authenticator) rollover(ctx context.Context, sub *Subscription, now time.Time) (*Subscription, error) {
	applied, err := a.repo.ResetCycle(ctx, sub.ID, sub.CycleStartDate, now)
	if err != nil {
		return nil, fmt.Errorf("reset cycle: %w", err)
	}

	if applied {
		a.logger.Info("subscription cycle reset",
			zap.String("subscription_id", sub.ID.String()),
			zap.Int("days_elapsed", sub.DaysElapsed(now)),
		)

		fresh := *sub
		fresh.CurrentUsage = 0
		fresh.CycleStartDate = now

		return &fresh, nil
	}

	reloaded, err := a.repo.GetSubscription(ctx, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("reload subscription: %w", err)
	}

	return reloaded, nil
}
