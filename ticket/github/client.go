// Package github files tickets as GitHub issues.
//
// Projects are repository paths ("owner/repo"), and ticket IDs take the
// form "owner/repo#123" so a verifier can find its way back to the issue
// without extra state. Errors unwrap to the shared sentinels in the http
// package, so ticket.IsTransient and ticket.IsNotFound behave the same as
// with the Jira backend.
package github

import (
	"context"
	"errors"
	"fmt"

	gh "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	httpx "github.com/randalmurphal/alertflow/http"
	"github.com/randalmurphal/alertflow/ticket"
)

// Config holds GitHub connection settings.
type Config struct {
	// Token is a personal access token or app installation token.
	Token string

	// Repo is the default "owner/repo" used when a create request names
	// no repository of its own.
	Repo string

	// BaseURL points at a GitHub Enterprise instance. Empty means
	// github.com.
	BaseURL string
}

// Configuration errors.
var (
	ErrTokenRequired = errors.New("github token is required")
	ErrRepoRequired  = errors.New("github repository is required")
)

// Client files tickets as GitHub issues. It implements ticket.Client.
type Client struct {
	cfg Config
	gh  *gh.Client
}

// NewClient creates a GitHub-backed ticket client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, ErrTokenRequired
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(context.Background(), ts)
	client := gh.NewClient(tc)

	if cfg.BaseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("configure enterprise URL: %w", err)
		}
	}

	return &Client{cfg: cfg, gh: client}, nil
}

// Create opens a GitHub issue for the request.
func (c *Client) Create(ctx context.Context, req ticket.CreateRequest) (*ticket.Created, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	owner, repo, err := c.resolveRepo(req.Project)
	if err != nil {
		return nil, err
	}

	issueReq := &gh.IssueRequest{
		Title: gh.String(req.Title),
	}
	if req.Description != "" {
		issueReq.Body = gh.String(req.Description)
	}
	if len(req.Labels) > 0 {
		issueReq.Labels = &req.Labels
	}

	issue, resp, err := c.gh.Issues.Create(ctx, owner, repo, issueReq)
	if err != nil {
		return nil, fmt.Errorf("create issue: %w", apiError(resp, err, "/issues"))
	}

	return &ticket.Created{
		ID:  fmt.Sprintf("%s/%s#%d", owner, repo, issue.GetNumber()),
		URL: issue.GetHTMLURL(),
	}, nil
}

// Get fetches an issue by its "owner/repo#number" ID.
func (c *Client) Get(ctx context.Context, id string) (*ticket.Ticket, error) {
	owner, repo, number, err := ParseIssueID(id)
	if err != nil {
		return nil, err
	}

	issue, resp, err := c.gh.Issues.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, fmt.Errorf("get issue %s: %w", id, apiError(resp, err, "/issues"))
	}

	labels := make([]string, 0, len(issue.Labels))
	for _, label := range issue.Labels {
		labels = append(labels, label.GetName())
	}

	return &ticket.Ticket{
		ID:          id,
		URL:         issue.GetHTMLURL(),
		Title:       issue.GetTitle(),
		Description: issue.GetBody(),
		Labels:      labels,
		Project:     owner + "/" + repo,
		Status:      issue.GetState(),
	}, nil
}

// resolveRepo picks the repository for a request: the request's project
// when it names one, the configured default otherwise.
func (c *Client) resolveRepo(project string) (owner, repo string, err error) {
	if owner, repo, err = SplitRepo(project); err == nil {
		return owner, repo, nil
	}
	if c.cfg.Repo == "" {
		return "", "", ErrRepoRequired
	}
	return SplitRepo(c.cfg.Repo)
}

// apiError wraps a go-github failure so it unwraps to the shared
// sentinels. Transport errors without a response pass through as-is.
func apiError(resp *gh.Response, err error, endpoint string) error {
	if resp == nil {
		return err
	}
	return &httpx.APIError{
		Service:    "github",
		StatusCode: resp.StatusCode,
		Message:    err.Error(),
		Endpoint:   endpoint,
	}
}
