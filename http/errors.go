// Package http provides the shared HTTP client base used by ticket-system
// backends: sentinel errors, typed API errors, and bounded retry for
// transient failures.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Sentinel errors shared by all integration clients.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized indicates invalid or missing authentication.
	ErrUnauthorized = errors.New("authentication failed")

	// ErrForbidden indicates the caller lacks permission for the operation.
	ErrForbidden = errors.New("permission denied")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrBadRequest indicates the request was malformed or rejected by
	// validation.
	ErrBadRequest = errors.New("bad request")

	// ErrServerError indicates a server-side failure.
	ErrServerError = errors.New("server error")
)

// APIError is an error response from an external API.
type APIError struct {
	// Service names the integration ("jira", "github", "gitlab").
	Service string

	// StatusCode is the HTTP status returned.
	StatusCode int

	// Message is the error text reported by the API.
	Message string

	// Endpoint is the path that was called.
	Endpoint string

	// RequestID is the server-assigned request ID, when present.
	RequestID string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s API error (%d) at %s [%s]: %s",
			e.Service, e.StatusCode, e.Endpoint, e.RequestID, e.Message)
	}
	return fmt.Sprintf("%s API error (%d) at %s: %s",
		e.Service, e.StatusCode, e.Endpoint, e.Message)
}

// Unwrap maps the status code onto the matching sentinel.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case 400:
		return ErrBadRequest
	case 401:
		return ErrUnauthorized
	case 403:
		return ErrForbidden
	case 404:
		return ErrNotFound
	case 429:
		return ErrRateLimited
	default:
		if e.StatusCode >= 500 {
			return ErrServerError
		}
		return nil
	}
}

// RateLimitError reports a rate limit with the server's retry hint.
type RateLimitError struct {
	Service    string
	RetryAfter time.Duration
	Limit      int
	Remaining  int
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limit exceeded, retry after %s", e.Service, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limit exceeded", e.Service)
}

// Unwrap returns ErrRateLimited.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// ValidationError reports request data an API rejected outright.
// Resending the same payload fails the same way, so these are never
// retried.
type ValidationError struct {
	Service string
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s validation error on %s: %s", e.Service, e.Field, e.Message)
	}
	return fmt.Sprintf("%s validation error: %s", e.Service, e.Message)
}

// Unwrap returns ErrBadRequest.
func (e *ValidationError) Unwrap() error {
	return ErrBadRequest
}

// IsNotFound reports whether the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthorized reports whether the error indicates failed authentication.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsRateLimited reports whether the error indicates rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsRetryable reports whether the error is transient: rate limits, 5xx
// responses, transport-level failures, and timeouts.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrServerError) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 && apiErr.StatusCode < 600
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
