package telemetry

import (
	"context"

	"go.uber.org/zap"
)

// Store defines the interface for persisting request events.
type Store interface {
	SaveRequest(ctx context.Context, event *RequestEvent) error
}

// NewHandler returns a consumer handler that persists events to store.
// Write failures are logged and the event is dropped, never retried.
func NewHandler(store Store, logger *zap.Logger) func(ctx context.Context, event *RequestEvent) error {
	return func(ctx context.Context, event *RequestEvent) error {
		if err := store.SaveRequest(ctx, event); err != nil {
			logger.Warn("failed to persist request event",
				zap.String("event_id", event.ID.String()),
				zap.String("endpoint", event.Endpoint),
				zap.Error(err),
			)
		}

		return nil
	}
}
