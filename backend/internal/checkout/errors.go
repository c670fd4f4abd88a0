package checkout

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned by Submit before the embedded payment UI has
	// signalled readiness or while no client secret is held.
	ErrNotReady = errors.New("checkout: payment form is not ready")
	// ErrNotCancellable is returned by Cancel while a confirmation is in flight.
	ErrNotCancellable = errors.New("checkout: payment cannot be cancelled while submitting")
	// ErrInvalidState is returned when an operation does not apply to the
	// processor's current state.
	ErrInvalidState = errors.New("checkout: operation not allowed in current state")
	// ErrClosed is returned once the processor has been torn down.
	ErrClosed = errors.New("checkout: processor closed")
	// ErrNoIntent is returned when the provider answers without an intent.
	ErrNoIntent = errors.New("checkout: no payment intent returned")
)

// RelayError is a non-2xx answer from the payment intent relay.
type RelayError struct {
	StatusCode int
	Message    string
	Type       string
	Code       string
}

func (e *RelayError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("relay error (status %d)", e.StatusCode)
	}
	return e.Message
}

// UnexpectedStateError reports an intent status the processor does not know
// how to continue from.
type UnexpectedStateError struct {
	Status string
}

func (e *UnexpectedStateError) Error() string {
	return "unexpected payment status: " + e.Status
}

// ProviderError wraps a failure reported by the payment provider during
// confirmation or card action handling.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
