package middleware

import (
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/serroba/sports-gateway/internal/telemetry"
)

// EventRecorder accepts request events without blocking.
type EventRecorder interface {
	Record(event *telemetry.RequestEvent) bool
}

// Telemetry returns a Huma middleware that reports every authenticated
// request after its response was written. Requests rejected before
// authentication are not reported.
func Telemetry(recorder EventRecorder, metrics Metrics, now func() time.Time) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		ctx, meta := requestMeta(ctx)

		next(ctx)

		if meta.Auth == nil {
			return
		}

		finished := now()
		latency := finished.Sub(meta.StartedAt)
		endpoint := operationID(ctx)
		status := ctx.Status()

		metrics.ObserveRequest(endpoint, status, meta.CacheHit, latency)

		recorder.Record(&telemetry.RequestEvent{
			ID:             uuid.New(),
			RequestID:      meta.RequestID,
			SubscriptionID: meta.Auth.SubscriptionID,
			UserID:         meta.Auth.UserID,
			Sport:          string(meta.Auth.Sport),
			Endpoint:       endpoint,
			StatusCode:     status,
			CacheHit:       meta.CacheHit,
			LatencyMs:      latency.Milliseconds(),
			RecordedAt:     finished,
		})
	}
}

func operationID(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil {
		if op.OperationID != "" {
			return op.OperationID
		}

		return op.Path
	}

	return ""
}
