package ticket

import (
	"errors"
	"regexp"

	httpx "github.com/randalmurphal/alertflow/http"
)

// Request validation errors. These are permanent: the same request will
// never succeed without being changed.
var (
	ErrProjectRequired = errors.New("ticket project is required")
	ErrTitleRequired   = errors.New("ticket title is required")
	ErrKeyInvalid      = errors.New("invalid ticket key format")
)

// Tracker errors.
var (
	// ErrNotFound indicates the ticket does not exist in the tracker.
	ErrNotFound = errors.New("ticket not found")

	// ErrUnavailable indicates the tracker could not be reached or
	// responded with a server-side failure. Eligible for retry.
	ErrUnavailable = errors.New("ticket system temporarily unavailable")
)

// keyPattern matches tracker keys like "MOBILE-1001".
var keyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]*-\d+$`)

// ValidateKey checks that a ticket key has the PROJECT-NUMBER shape.
func ValidateKey(key string) error {
	if key == "" {
		return ErrKeyInvalid
	}
	if !keyPattern.MatchString(key) {
		return ErrKeyInvalid
	}
	return nil
}

// IsTransient reports whether a ticket operation failed in a way that may
// clear on retry: tracker unavailable, rate limits, 5xx responses,
// network errors, timeouts.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrUnavailable) || httpx.IsRetryable(err)
}

// IsNotFound reports whether the error means the ticket does not exist.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrNotFound) || httpx.IsNotFound(err)
}
