package wallet

import (
	"errors"
	"fmt"
)

var (
	// Local validation failures; reported before any network call.
	ErrInvalidPhoneNumber  = errors.New("phone number must be exactly 10 digits")
	ErrInvalidAmount       = errors.New("amount must be a positive integer of megabytes")
	ErrInvalidNote         = errors.New("note exceeds 200 characters")
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNetworkUnavailable means no response was received (transport failure,
	// timeout or cancellation). Recoverable by retrying.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrUnauthorized means the backend rejected the credential; the session
	// has been cleared by the time the caller sees this.
	ErrUnauthorized = errors.New("authentication rejected")

	// ErrInvariantViolation signals a contract breach between submit and
	// reconcile; there is no recovery path.
	ErrInvariantViolation = errors.New("invariant violation: unsuccessful result reached reconcile")
)

// RejectedError carries the backend's refusal of a request: the HTTP status
// and the message extracted from its error envelope.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("rejected (%d): %s", e.Status, e.Message)
}

// EnvelopeError reports a response body that did not match the documented
// envelope for its endpoint. The client fails fast on these instead of
// guessing among alternative shapes.
type EnvelopeError struct {
	Endpoint string
	Reason   string
}

func (e *EnvelopeError) Error() string {
	return fmt.Sprintf("unexpected response envelope from %s: %s", e.Endpoint, e.Reason)
}
