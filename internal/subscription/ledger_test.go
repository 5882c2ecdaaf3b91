package subscription_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/serroba/sports-gateway/internal/subscription"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// failingRepo fails every usage increment.
type failingRepo struct {
	subscription.Repository
}

func (failingRepo) IncrementUsage(context.Context, uuid.UUID) (int64, error) {
	return 0, errors.New("disk full")
}

func TestLedger_Record(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		status  int
		charged bool
	}{
		{http.StatusOK, true},
		{http.StatusCreated, true},
		{http.StatusNoContent, true},
		{http.StatusNotModified, false},
		{http.StatusBadRequest, false},
		{http.StatusNotFound, false},
		{http.StatusTooManyRequests, false},
		{http.StatusInternalServerError, false},
		{http.StatusBadGateway, false},
		{http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			f := newFixture(nil)
			ledger := subscription.NewLedger(f.repo, zap.NewNop())

			charged, err := ledger.Record(ctx, &subscription.AuthContext{SubscriptionID: f.sub.ID}, tt.status)

			require.NoError(t, err)
			assert.Equal(t, tt.charged, charged)

			sub, err := f.repo.GetSubscription(ctx, f.sub.ID)
			require.NoError(t, err)

			want := f.sub.CurrentUsage
			if tt.charged {
				want++
			}

			assert.Equal(t, want, sub.CurrentUsage)
		})
	}
}

func TestLedger_NoAuth(t *testing.T) {
	ledger := subscription.NewLedger(failingRepo{}, zap.NewNop())

	charged, err := ledger.Record(context.Background(), nil, http.StatusOK)

	require.NoError(t, err)
	assert.False(t, charged)
}

func TestLedger_IncrementFailure(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	ledger := subscription.NewLedger(failingRepo{}, zap.New(core))

	charged, err := ledger.Record(context.Background(), &subscription.AuthContext{SubscriptionID: uuid.New()}, http.StatusOK)

	require.Error(t, err)
	assert.False(t, charged)
	assert.Equal(t, 1, logs.FilterMessage("failed to increment usage").Len())
}

func TestLedger_ConcurrentCharges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(func(s *subscription.Subscription, _ *subscription.Credential) { s.CurrentUsage = 0 })
	ledger := subscription.NewLedger(f.repo, zap.NewNop())
	auth := &subscription.AuthContext{SubscriptionID: f.sub.ID}

	var wg sync.WaitGroup
	for range 100 {
		wg.Go(func() {
			_, err := ledger.Record(ctx, auth, http.StatusOK)
			assert.NoError(t, err)
		})
	}

	wg.Wait()

	sub, err := f.repo.GetSubscription(ctx, f.sub.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), sub.CurrentUsage)
}
