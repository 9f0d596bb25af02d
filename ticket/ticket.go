package ticket

import (
	"context"
	"fmt"
	"strings"
)

// DefaultProject is the project tickets are filed under unless configured
// otherwise.
const DefaultProject = "MOBILE"

// DefaultIssueType is the issue type used for alert-driven tickets.
const DefaultIssueType = "Bug"

// CreateRequest carries the fields for a new ticket.
type CreateRequest struct {
	Project     string   `json:"project"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Labels      []string `json:"labels,omitempty"`
	Type        string   `json:"type,omitempty"`
}

// Validate checks the request before it is sent to a backend.
// Only structural requirements are enforced here; field quality is the
// workflow's concern.
func (r CreateRequest) Validate() error {
	if strings.TrimSpace(r.Project) == "" {
		return ErrProjectRequired
	}
	if strings.TrimSpace(r.Title) == "" {
		return ErrTitleRequired
	}
	return nil
}

// Created is the result of a successful ticket creation.
type Created struct {
	// ID is the tracker-assigned key, e.g. "MOBILE-1001".
	ID string `json:"id"`
	// URL is the browse URL for the new ticket.
	URL string `json:"url"`
}

// Ticket is a tracker ticket as returned by Get.
type Ticket struct {
	ID          string   `json:"id"`
	URL         string   `json:"url,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	Project     string   `json:"project,omitempty"`
	Status      string   `json:"status,omitempty"`
}

// Client creates and fetches tickets in an issue tracker.
//
// Create returns a transient error (see IsTransient) when the failure may
// clear on retry, and a permanent one otherwise. Get returns an error
// satisfying IsNotFound when the ticket does not exist.
type Client interface {
	Create(ctx context.Context, req CreateRequest) (*Created, error)
	Get(ctx context.Context, id string) (*Ticket, error)
}

// BrowseURL builds the canonical browse URL for a ticket key on the given
// base URL.
func BrowseURL(baseURL, key string) string {
	return fmt.Sprintf("%s/browse/%s", strings.TrimRight(baseURL, "/"), key)
}
