package jira

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	httpx "github.com/randalmurphal/alertflow/http"
)

// Configuration errors.
var (
	ErrBaseURLRequired   = errors.New("jira base url is required")
	ErrAuthRequired      = errors.New("jira credentials are required")
	ErrAuthTypeInvalid   = errors.New("jira auth type must be api_token, pat, or connect")
	ErrAPITokenAuth      = errors.New("api_token auth requires email and api token")
	ErrPATAuth           = errors.New("pat auth requires a token")
	ErrConnectAuth       = errors.New("connect auth requires app key and shared secret")
	ErrAPIVersionInvalid = errors.New("api version must be v2 or v3")
)

// Content errors.
var (
	// ErrADFInvalid indicates a document that is not a version-1 ADF doc.
	ErrADFInvalid = errors.New("invalid ADF document")

	// ErrWebhookInvalidPayload indicates a webhook body that is not valid
	// Jira webhook JSON.
	ErrWebhookInvalidPayload = errors.New("invalid webhook payload")
)

// APIError is an error response from the Jira REST API. Jira reports
// failures as a list of messages plus per-field errors; both are preserved
// so callers can see which field a create request tripped on.
type APIError struct {
	StatusCode    int               `json:"-"`
	ErrorMessages []string          `json:"errorMessages,omitempty"`
	Errors        map[string]string `json:"errors,omitempty"`
	Endpoint      string            `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if len(e.ErrorMessages) > 0 {
		return fmt.Sprintf("jira API error (%d): %s", e.StatusCode, e.ErrorMessages[0])
	}
	for field, msg := range e.Errors {
		return fmt.Sprintf("jira API error (%d): %s: %s", e.StatusCode, field, msg)
	}
	return fmt.Sprintf("jira API error (%d) at %s", e.StatusCode, e.Endpoint)
}

// Unwrap maps the status code onto the shared sentinel errors, so
// errors.Is works across integrations.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return httpx.ErrBadRequest
	case http.StatusUnauthorized:
		return httpx.ErrUnauthorized
	case http.StatusForbidden:
		return httpx.ErrForbidden
	case http.StatusNotFound:
		return httpx.ErrNotFound
	case http.StatusTooManyRequests:
		return httpx.ErrRateLimited
	default:
		if e.StatusCode >= 500 {
			return httpx.ErrServerError
		}
		return nil
	}
}

// parseAPIError reads an error response body into an APIError. The body is
// consumed but not closed.
func parseAPIError(resp *http.Response, endpoint string) error {
	body, _ := io.ReadAll(resp.Body)

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Endpoint:   endpoint,
	}

	if json.Unmarshal(body, apiErr) != nil || (len(apiErr.ErrorMessages) == 0 && len(apiErr.Errors) == 0) {
		apiErr.ErrorMessages = []string{http.StatusText(resp.StatusCode)}
	}

	return apiErr
}
