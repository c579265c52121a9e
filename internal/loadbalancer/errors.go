package loadbalancer

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrCapacityExceeded is returned when every healthy provider already
	// carries its full allowance of in-flight requests.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrNoProviderAvailable is returned when the strategy finds no provider.
	ErrNoProviderAvailable = errors.New("no provider available")

	// ErrClosed is returned by dispatches made after Close.
	ErrClosed = errors.New("load balancer closed")
)

// ProviderError reports a failed call to the selected provider.
type ProviderError struct {
	ProviderID uuid.UUID
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.ProviderID, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
