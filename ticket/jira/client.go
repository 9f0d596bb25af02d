package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	httpx "github.com/randalmurphal/alertflow/http"
	"github.com/randalmurphal/alertflow/ticket"
)

// Client files tickets in Jira over the REST API. It implements
// ticket.Client for v2 (wiki markup descriptions) and v3 (ADF
// descriptions) instances.
type Client struct {
	cfg Config
	api *httpx.Client

	// Rate limiting state from response headers.
	mu        sync.RWMutex
	remaining int
	resetTime time.Time
}

// NewClient creates a Jira client from the configuration.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{cfg: cfg, remaining: -1}
	c.api = httpx.NewClient(httpx.ClientConfig{
		Client:        cfg.HTTPClient,
		BaseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		ServiceName:   "jira",
		MaxRetries:    cfg.MaxRetries,
		RetryWait:     cfg.RetryWait,
		RetryJitter:   true,
		BeforeRequest: c.setAuth,
	})

	return c, nil
}

// Create files a new issue and returns its key and browse URL.
func (c *Client) Create(ctx context.Context, req ticket.CreateRequest) (*ticket.Created, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	fields := createIssueFields{
		Project:   projectRef{Key: req.Project},
		IssueType: issueTypeRef{Name: c.issueType(req)},
		Summary:   req.Title,
		Labels:    req.Labels,
	}
	if req.Description != "" {
		fields.Description = c.renderDescription(req.Description)
	}

	var created createIssueResponse
	if err := c.do(ctx, http.MethodPost, c.apiPath("/issue"), createIssueRequest{Fields: fields}, &created); err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}

	return &ticket.Created{
		ID:  created.Key,
		URL: ticket.BrowseURL(c.cfg.BaseURL, created.Key),
	}, nil
}

// Get fetches an issue by key.
func (c *Client) Get(ctx context.Context, id string) (*ticket.Ticket, error) {
	if err := ticket.ValidateKey(id); err != nil {
		return nil, err
	}

	var issue Issue
	if err := c.do(ctx, http.MethodGet, c.apiPath("/issue/"+id), nil, &issue); err != nil {
		return nil, fmt.Errorf("get issue %s: %w", id, err)
	}

	return c.ticketFromIssue(&issue), nil
}

// RateLimitRemaining returns the request budget the server last reported,
// or -1 when unknown.
func (c *Client) RateLimitRemaining() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.remaining
}

// RateLimitReset returns when the rate limit window resets, or the zero
// time when unknown.
func (c *Client) RateLimitReset() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetTime
}

// do executes one API call: transient failures are retried by the HTTP
// layer, error responses become *APIError, success bodies decode into
// result when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	resp, err := c.api.Request(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.trackRateLimit(resp)

	if resp.StatusCode >= 400 {
		return parseAPIError(resp, path)
	}
	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode jira response: %w", err)
	}
	return nil
}

// apiPath prefixes an endpoint with the configured REST version.
func (c *Client) apiPath(endpoint string) string {
	return "/rest/api/" + strings.TrimPrefix(string(c.cfg.apiVersion()), "v") + endpoint
}

// issueType resolves the issue type for a create request.
func (c *Client) issueType(req ticket.CreateRequest) string {
	if req.Type != "" {
		return req.Type
	}
	if c.cfg.IssueType != "" {
		return c.cfg.IssueType
	}
	return ticket.DefaultIssueType
}

// renderDescription converts Markdown into the rich text form the
// configured API version expects.
func (c *Client) renderDescription(markdown string) any {
	if c.cfg.apiVersion() == APIVersionV3 {
		return MarkdownToADF(markdown)
	}
	return MarkdownToWiki(markdown)
}

// ticketFromIssue maps a Jira issue onto the tracker-neutral ticket type.
func (c *Client) ticketFromIssue(issue *Issue) *ticket.Ticket {
	t := &ticket.Ticket{
		ID:     issue.Key,
		URL:    ticket.BrowseURL(c.cfg.BaseURL, issue.Key),
		Title:  issue.Fields.Summary,
		Labels: issue.Fields.Labels,
	}
	if desc, err := RichTextMarkdown(issue.Fields.Description); err == nil {
		t.Description = desc
	}
	if issue.Fields.Project != nil {
		t.Project = issue.Fields.Project.Key
	}
	if issue.Fields.Status != nil {
		t.Status = issue.Fields.Status.Name
	}
	return t
}

// setAuth adds the Authorization header for the configured scheme.
func (c *Client) setAuth(req *http.Request) {
	switch c.cfg.authType() {
	case AuthAPIToken:
		req.SetBasicAuth(c.cfg.Email, c.cfg.APIToken)
	case AuthPAT:
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	case AuthConnect:
		token, err := connectToken(c.cfg.ConnectKey, c.cfg.ConnectSecret, req.Method, req.URL)
		if err != nil {
			// An unsigned request fails authentication server-side and
			// surfaces as ErrUnauthorized.
			return
		}
		req.Header.Set("Authorization", "JWT "+token)
	}
}

// trackRateLimit records the server's rate limit headers.
func (c *Client) trackRateLimit(resp *http.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining != "" {
		if v, err := strconv.Atoi(remaining); err == nil {
			c.remaining = v
		}
	}
	if reset := resp.Header.Get("X-RateLimit-Reset"); reset != "" {
		if t, err := time.Parse(time.RFC3339, reset); err == nil {
			c.resetTime = t
		}
	}
}
