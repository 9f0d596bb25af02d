// Package gitlab files tickets as GitLab issues.
//
// Projects are namespace paths ("group/project") or numeric project IDs,
// and ticket IDs take the form "group/project#7" (the issue IID). Errors
// unwrap to the shared sentinels in the http package, so ticket.IsTransient
// and ticket.IsNotFound behave the same as with the other backends.
package gitlab

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	gl "github.com/xanzy/go-gitlab"

	httpx "github.com/randalmurphal/alertflow/http"
	"github.com/randalmurphal/alertflow/ticket"
)

// Config holds GitLab connection settings.
type Config struct {
	// Token is a personal or project access token.
	Token string

	// BaseURL points at a self-hosted instance. Empty means gitlab.com.
	BaseURL string

	// Project is the default project path or ID used when a create
	// request names no project of its own.
	Project string

	// MaxRetries caps the client's internal retries on 429 and 5xx
	// responses. Zero keeps the library default.
	MaxRetries int
}

// Configuration and reference errors.
var (
	ErrTokenRequired   = errors.New("gitlab token is required")
	ErrProjectRequired = errors.New("gitlab project is required")
	ErrIssueIDInvalid  = errors.New("invalid gitlab issue id")
)

// Client files tickets as GitLab issues. It implements ticket.Client.
type Client struct {
	cfg Config
	gl  *gl.Client
}

// NewClient creates a GitLab-backed ticket client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, ErrTokenRequired
	}

	var opts []gl.ClientOptionFunc
	if cfg.BaseURL != "" {
		opts = append(opts, gl.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, gl.WithCustomRetryMax(cfg.MaxRetries))
	}

	client, err := gl.NewClient(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gitlab client: %w", err)
	}

	return &Client{cfg: cfg, gl: client}, nil
}

// Create opens a GitLab issue for the request.
func (c *Client) Create(ctx context.Context, req ticket.CreateRequest) (*ticket.Created, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	project, err := c.resolveProject(req.Project)
	if err != nil {
		return nil, err
	}

	opts := &gl.CreateIssueOptions{
		Title: gl.Ptr(req.Title),
	}
	if req.Description != "" {
		opts.Description = gl.Ptr(req.Description)
	}
	if len(req.Labels) > 0 {
		opts.Labels = gl.Ptr(gl.LabelOptions(req.Labels))
	}

	issue, resp, err := c.gl.Issues.CreateIssue(project, opts, gl.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("create issue: %w", apiError(resp, err, "/issues"))
	}

	return &ticket.Created{
		ID:  fmt.Sprintf("%s#%d", project, issue.IID),
		URL: issue.WebURL,
	}, nil
}

// Get fetches an issue by its "project#iid" ID.
func (c *Client) Get(ctx context.Context, id string) (*ticket.Ticket, error) {
	project, iid, err := ParseIssueID(id)
	if err != nil {
		return nil, err
	}

	issue, resp, err := c.gl.Issues.GetIssue(project, iid, gl.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("get issue %s: %w", id, apiError(resp, err, "/issues"))
	}

	return &ticket.Ticket{
		ID:          id,
		URL:         issue.WebURL,
		Title:       issue.Title,
		Description: issue.Description,
		Labels:      issue.Labels,
		Project:     project,
		Status:      issue.State,
	}, nil
}

// resolveProject picks the project for a request: the request's project
// when it is a GitLab path, the configured default otherwise.
func (c *Client) resolveProject(project string) (string, error) {
	if strings.Contains(project, "/") {
		return project, nil
	}
	if c.cfg.Project != "" {
		return c.cfg.Project, nil
	}
	return "", ErrProjectRequired
}

// ParseIssueID splits a "project#iid" ticket ID.
func ParseIssueID(id string) (project string, iid int, err error) {
	path, num, found := strings.Cut(id, "#")
	if !found || path == "" {
		return "", 0, fmt.Errorf("issue id %q: %w", id, ErrIssueIDInvalid)
	}
	iid, err = strconv.Atoi(num)
	if err != nil || iid <= 0 {
		return "", 0, fmt.Errorf("issue id %q: %w", id, ErrIssueIDInvalid)
	}
	return path, iid, nil
}

// apiError wraps a go-gitlab failure so it unwraps to the shared
// sentinels. Transport errors without a response pass through as-is.
func apiError(resp *gl.Response, err error, endpoint string) error {
	if resp == nil {
		return err
	}
	return &httpx.APIError{
		Service:    "gitlab",
		StatusCode: resp.StatusCode,
		Message:    err.Error(),
		Endpoint:   endpoint,
	}
}
