package subscription

import (
	"context"

	"go.uber.org/zap"
)

// Ledger charges successfully served requests against the subscription quota.
type Ledger struct {
	repo   Repository
	logger *zap.Logger
}

// NewLedger creates a new quota ledger.
func NewLedger(repo Repository, logger *zap.Logger) *Ledger {
	return &Ledger{repo: repo, logger: logger}
}

// Record increments usage by one when status is 2xx and reports whether it did.
func (l *Ledger) Record(ctx context.Context, auth *AuthContext, status int) (bool, error) {
	if auth == nil || status < 200 || status > 299 {
		return false, nil
	}

	usage, err := l.repo.IncrementUsage(ctx, auth.SubscriptionID)
	if err != nil {
		l.logger.Error("failed to increment usage",
			zap.String("subscription_id", auth.SubscriptionID.String()),
			zap.Error(err),
		)

		return false, err
	}

	l.logger.Debug("usage recorded",
		zap.String("subscription_id", auth.SubscriptionID.String()),
		zap.Int64("usage", usage),
	)

	return true, nil
}
