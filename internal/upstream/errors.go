package upstream

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the provider has no data for the request.
	ErrNotFound = errors.New("upstream: not found")
	// ErrUnavailable means the provider could not be reached or failed.
	ErrUnavailable = errors.New("upstream: unavailable")
)

// UnavailableError describes why the provider could not serve a request.
type UnavailableError struct {
	Timeout bool
	Status  int
	Err     error
}

func (e *UnavailableError) Error() string {
	switch {
	case e.Timeout:
		return "upstream: timed out"
	case e.Status != 0:
		return fmt.Sprintf("upstream: unexpected status %d", e.Status)
	case e.Err != nil:
		return "upstream: " + e.Err.Error()
	default:
		return ErrUnavailable.Error()
	}
}

// Is makes errors.Is(err, ErrUnavailable) match.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}
