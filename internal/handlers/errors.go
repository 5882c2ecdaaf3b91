package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/sports-gateway/internal/ratelimit"
	"github.com/serroba/sports-gateway/internal/subscription"
	"github.com/serroba/sports-gateway/internal/upstream"
)

// ErrorMeta carries machine-readable back-off hints on rejections.
type ErrorMeta struct {
	RemainingQuota *int64     `json:"remainingQuota,omitempty"`
	ResetAt        *time.Time `json:"resetAt,omitempty"`
	RetryAfter     *int64     `json:"retryAfter,omitempty" doc:"Seconds to wait before retrying"`
	Limit          *int64     `json:"limit,omitempty"`
}

// APIError is the error envelope returned by every endpoint.
type APIError struct {
	status  int
	Success bool       `json:"success"`
	Message string     `json:"error"`
	Details []string   `json:"details,omitempty"`
	Meta    *ErrorMeta `json:"meta,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// GetStatus returns the HTTP status code.
func (e *APIError) GetStatus() int {
	return e.status
}

// NewAPIError matches huma.NewError so it can replace the default error model.
// Request validation failures are reported as 400.
func NewAPIError(status int, msg string, errs ...error) huma.StatusError {
	if status == http.StatusUnprocessableEntity {
		status = http.StatusBadRequest
	}

	e := &APIError{status: status, Message: msg}

	for _, err := range errs {
		if err != nil {
			e.Details = append(e.Details, err.Error())
		}
	}

	return e
}

// UseEnvelopeErrors makes huma render its own errors, such as validation failures, in the envelope.
func UseEnvelopeErrors() {
	huma.NewError = NewAPIError
}

// FromError maps a domain error to its user-facing envelope.
func FromError(err error) *APIError {
	var (
		apiErr      *APIError
		sportErr    *subscription.SportNotEntitledError
		quotaErr    *subscription.QuotaExhaustedError
		upstreamErr *upstream.UnavailableError
	)

	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, subscription.ErrMissingCredential):
		return &APIError{status: http.StatusUnauthorized, Message: "API key is required"}
	case errors.Is(err, subscription.ErrInvalidCredential):
		return &APIError{status: http.StatusUnauthorized, Message: "Invalid API key"}
	case errors.Is(err, subscription.ErrSubscriptionInactive):
		return &APIError{status: http.StatusForbidden, Message: "Subscription is inactive"}
	case errors.As(err, &sportErr):
		return &APIError{status: http.StatusForbidden, Message: sportErr.Error()}
	case errors.As(err, &quotaErr):
		remaining := int64(0)
		resetAt := quotaErr.ResetAt

		return &APIError{
			status:  http.StatusTooManyRequests,
			Message: "Quota exhausted for the current cycle",
			Meta:    &ErrorMeta{RemainingQuota: &remaining, ResetAt: &resetAt},
		}
	case errors.Is(err, upstream.ErrNotFound):
		return &APIError{status: http.StatusNotFound, Message: "Resource not found"}
	case errors.Is(err, upstream.ErrRejected):
		return &APIError{status: http.StatusBadRequest, Message: "Invalid request parameters"}
	case errors.As(err, &upstreamErr) && upstreamErr.Timeout:
		return &APIError{status: http.StatusGatewayTimeout, Message: "Upstream provider timed out"}
	case errors.Is(err, upstream.ErrUnavailable):
		return &APIError{status: http.StatusBadGateway, Message: "Upstream provider unavailable"}
	default:
		return &APIError{status: http.StatusInternalServerError, Message: "Internal server error"}
	}
}

// RateLimited builds the rejection for a throttled request.
func RateLimited(d ratelimit.Decision) *APIError {
	retryAfter := RetryAfterSeconds(d.RetryAfter)
	limit := d.Limit
	resetAt := d.ResetAt

	return &APIError{
		status:  http.StatusTooManyRequests,
		Message: "Rate limit exceeded, retry in " + strconv.FormatInt(retryAfter, 10) + "s",
		Meta:    &ErrorMeta{RetryAfter: &retryAfter, Limit: &limit, ResetAt: &resetAt},
	}
}

// RetryAfterSeconds rounds d up to whole seconds, never below one.
func RetryAfterSeconds(d time.Duration) int64 {
	secs := int64((d + time.Second - 1) / time.Second)

	return max(secs, 1)
}

// WriteError renders e on ctx. Headers set on ctx beforehand are kept.
func WriteError(api huma.API, ctx huma.Context, e *APIError) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.SetStatus(e.status)

	return api.Marshal(ctx.BodyWriter(), "application/json", e)
}
