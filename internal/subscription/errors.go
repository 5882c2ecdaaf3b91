package subscription

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrMissingCredential    = errors.New("missing API key")
	ErrInvalidCredential    = errors.New("invalid API key")
	ErrSubscriptionInactive = errors.New("subscription is inactive")
	ErrSportNotEntitled     = errors.New("sport not entitled")
	ErrQuotaExhausted       = errors.New("quota exhausted")
)

// SportNotEntitledError is returned when a key is used for a sport its subscription does not cover.
type SportNotEntitledError struct {
	Requested Sport
	Entitled  Sport
}

func (e *SportNotEntitledError) Error() string {
	return fmt.Sprintf("subscription does not cover %s (entitled sport: %s)", e.Requested, e.Entitled)
}

func (e *SportNotEntitledError) Unwrap() error {
	return ErrSportNotEntitled
}

// QuotaExhaustedError is returned when the cycle quota has been consumed.
type QuotaExhaustedError struct {
	Quota   int64
	ResetAt time.Time
}

func (e *QuotaExhaustedError) Error() string {
	return fmt.Sprintf("quota of %d requests exhausted, resets at %s", e.Quota, e.ResetAt.UTC().Format(time.RFC3339))
}

func (e *QuotaExhaustedError) Unwrap() error {
	return ErrQuotaExhausted
}
