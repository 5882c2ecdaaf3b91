// Package telemetry records per-request metrics off the request path.
package telemetry

import (
	"time"

	"github.com/google/uuid"
)

// TopicRequestRecorded is the topic request events are published to.
const TopicRequestRecorded = "gateway.request.recorded"

// RequestEvent describes one authenticated request after its response was sent.
type RequestEvent struct {
	ID             uuid.UUID `json:"id"`
	RequestID      string    `json:"requestId,omitempty"`
	SubscriptionID uuid.UUID `json:"subscriptionId"`
	UserID         uuid.UUID `json:"userId"`
	Sport          string    `json:"sport"`
	Endpoint       string    `json:"endpoint"`
	StatusCode     int       `json:"statusCode"`
	CacheHit       bool      `json:"cacheHit"`
	LatencyMs      int64     `json:"latencyMs"`
	RecordedAt     time.Time `json:"recordedAt"`
}
