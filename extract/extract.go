package extract

import (
	"context"
	"errors"
	"strings"
)

// Result holds the ticket fields pulled out of a raw alert message, plus
// the token usage of the call that produced them.
type Result struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Labels      []string `json:"labels"`

	// Token usage for the call. Zero for services that don't meter.
	TokensIn  int `json:"-"`
	TokensOut int `json:"-"`
}

var (
	// ErrMalformed means the service replied with output that could not
	// be decoded into ticket fields.
	ErrMalformed = errors.New("malformed extraction output")

	// ErrUnavailable means the service could not be reached or did not
	// complete the call.
	ErrUnavailable = errors.New("extraction service unavailable")
)

// Service turns raw alert text into ticket fields.
type Service interface {
	// Extract pulls title, description, and labels out of rawMessage.
	Extract(ctx context.Context, rawMessage string) (Result, error)

	// InferMissing fills the named missing fields on current, using
	// rawMessage as source material. attempt is the 1-based inference
	// attempt number within the current run.
	InferMissing(ctx context.Context, rawMessage string, current Result, missing []string, attempt int) (Result, error)
}

// Normalize trims whitespace from the text fields and drops empty or
// duplicate labels, keeping first occurrences in order.
func Normalize(r Result) Result {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	if len(r.Labels) > 0 {
		seen := make(map[string]bool, len(r.Labels))
		labels := make([]string, 0, len(r.Labels))
		for _, l := range r.Labels {
			l = strings.TrimSpace(l)
			key := strings.ToLower(l)
			if l == "" || seen[key] {
				continue
			}
			seen[key] = true
			labels = append(labels, l)
		}
		r.Labels = labels
	}
	return r
}

// ===========================================================================
// Context
// ===========================================================================

type serviceContextKey string

const serviceKey serviceContextKey = "extract-service"

// WithService returns a context carrying the extraction service.
func WithService(ctx context.Context, s Service) context.Context {
	return context.WithValue(ctx, serviceKey, s)
}

// ServiceFromContext retrieves the extraction service from the context,
// or nil.
func ServiceFromContext(ctx context.Context) Service {
	s, _ := ctx.Value(serviceKey).(Service)
	return s
}
