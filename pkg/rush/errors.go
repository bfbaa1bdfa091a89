package rush

import (
	"errors"
	"fmt"
)

var (
	// ErrDeliveryLocked is returned by structural mutators once the backend
	// has assigned a delivery id; an in-progress delivery cannot be edited.
	ErrDeliveryLocked = errors.New("delivery in progress; no changes possible")

	// ErrPickupMissing is returned by Quote when neither the delivery nor the
	// overrides supply a pickup location.
	ErrPickupMissing = errors.New("pickup location missing")

	// ErrDropoffMissing is returned by Quote when neither the delivery nor
	// the overrides supply a dropoff location.
	ErrDropoffMissing = errors.New("dropoff location missing")

	// ErrNotCompleted is returned by Rate and Ratings when the delivery did
	// not finish with the completed status.
	ErrNotCompleted = errors.New("delivery was not successfully completed")

	// ErrNotConfirmed is returned by operations that need a delivery id
	// before one has been assigned.
	ErrNotConfirmed = errors.New("delivery has not been confirmed")
)

// APIError carries a non-2xx API response so callers can inspect the payload
// the backend rejected with.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("api responded with status %d", e.StatusCode)
	}
	return fmt.Sprintf("api responded with status %d: %s", e.StatusCode, e.Body)
}
