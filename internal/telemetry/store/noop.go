package store

import (
	"context"

	"github.com/serroba/sports-gateway/internal/telemetry"
	"go.uber.org/zap"
)

// Noop is a no-op implementation of telemetry.Store that logs events.
type Noop struct {
	logger *zap.Logger
}

// NewNoop creates a new no-op telemetry store.
func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) SaveRequest(_ context.Context, event *telemetry.RequestEvent) error {
	n.logger.Info("request event received",
		zap.String("subscription_id", event.SubscriptionID.String()),
		zap.String("sport", event.Sport),
		zap.String("endpoint", event.Endpoint),
		zap.Int("status", event.StatusCode),
		zap.Bool("cache_hit", event.CacheHit),
		zap.Int64("latency_ms", event.LatencyMs),
	)

	return nil
}
