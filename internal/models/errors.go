package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions that are control flow rather than
// failures. Handlers translate these into HTTP statuses in one place
// (pkg/utils); everything else in the gateway only wraps and inspects
// them with errors.Is.
var (
	// ErrNotInitialized is returned while the identity client has not
	// finished OpenID discovery. Login attempts fail with 503 instead of
	// crashing on a half-built client.
	ErrNotInitialized = errors.New("identity client not initialized")

	// ErrUnauthorized is returned when a request carries no valid
	// session.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUserNotRegistered marks the "valid identity, no application
	// user yet" condition: the user service answered 404 for the
	// provider subject. It is a distinct branch in the auth flow, not a
	// generic failure.
	ErrUserNotRegistered = errors.New("user not registered")

	// ErrCallbackSecurity marks a state or nonce mismatch during the
	// login callback. The flow must abort without writing any identity;
	// details are logged server-side and never shown to the client.
	ErrCallbackSecurity = errors.New("callback security check failed")

	// ErrSessionNotFound is returned by the session store for absent,
	// expired, or tampered sessions.
	ErrSessionNotFound = errors.New("session not found")
)

// ValidationError reports malformed input rejected by the gateway
// before any downstream call is made. Maps to 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// UpstreamError reports a 4xx/5xx answer from a downstream service. The
// gateway relays the downstream status code and a best-effort message
// extracted from the downstream body; it never swallows the failure and
// never retries.
type UpstreamError struct {
	Service    string // which downstream: "user", "post", "stream"
	Operation  string // logical operation, e.g. "create-post"
	StatusCode int    // downstream HTTP status, relayed as-is
	Message    string // extracted from the downstream body, or a generic fallback
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s service: %s returned %d: %s", e.Service, e.Operation, e.StatusCode, e.Message)
}

// UpstreamUnavailableError reports a transport-level failure reaching a
// downstream service (no HTTP response at all). Distinguishable from an
// application-level UpstreamError; maps to 502.
type UpstreamUnavailableError struct {
	Service   string
	Operation string
	Err       error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("%s service unavailable during %s: %v", e.Service, e.Operation, e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error {
	return e.Err
}
