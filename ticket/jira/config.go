package jira

import (
	"net/http"
	"time"
)

// AuthType selects the authentication scheme for the Jira client.
type AuthType string

// Authentication schemes supported by the client.
const (
	// AuthAPIToken authenticates with email + API token (Cloud).
	AuthAPIToken AuthType = "api_token"

	// AuthPAT authenticates with a personal access token (Server/DC).
	AuthPAT AuthType = "pat"

	// AuthConnect authenticates as an Atlassian Connect app using a
	// query-string-hash JWT signed with the app's shared secret.
	AuthConnect AuthType = "connect"
)

// APIVersion selects the Jira REST API version.
type APIVersion string

// API versions supported by the client.
const (
	// APIVersionV2 uses /rest/api/2 with wiki markup rich text. Both
	// Cloud and Server/DC serve v2.
	APIVersionV2 APIVersion = "v2"

	// APIVersionV3 uses /rest/api/3 with ADF rich text (Cloud only).
	APIVersionV3 APIVersion = "v3"
)

// Config holds the configuration for the Jira ticket backend.
type Config struct {
	// BaseURL is the Jira instance URL.
	// Cloud: https://your-domain.atlassian.net
	// Server: https://jira.your-company.com
	BaseURL string

	// Auth selects the authentication scheme. When empty, the scheme is
	// inferred from whichever credential fields are populated.
	Auth AuthType

	// Email and APIToken authenticate api_token requests.
	Email    string
	APIToken string

	// Token is the personal access token for pat auth.
	Token string

	// ConnectKey and ConnectSecret are the Connect app key and shared
	// secret for connect auth.
	ConnectKey    string
	ConnectSecret string

	// APIVersion selects the REST API version. Defaults to v2; set v3 on
	// Cloud instances to send descriptions as ADF.
	APIVersion APIVersion

	// IssueType is the issue type for created tickets when the request
	// does not name one. Defaults to ticket.DefaultIssueType.
	IssueType string

	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client

	// MaxRetries and RetryWait tune transient-failure retry on the
	// underlying HTTP client.
	MaxRetries int
	RetryWait  time.Duration
}

// Validate checks that the configuration names a reachable instance and a
// complete credential set.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return ErrBaseURLRequired
	}

	switch c.authType() {
	case AuthAPIToken:
		if c.Email == "" || c.APIToken == "" {
			return ErrAPITokenAuth
		}
	case AuthPAT:
		if c.Token == "" {
			return ErrPATAuth
		}
	case AuthConnect:
		if c.ConnectKey == "" || c.ConnectSecret == "" {
			return ErrConnectAuth
		}
	case "":
		return ErrAuthRequired
	default:
		return ErrAuthTypeInvalid
	}

	if c.APIVersion != "" && c.APIVersion != APIVersionV2 && c.APIVersion != APIVersionV3 {
		return ErrAPIVersionInvalid
	}

	return nil
}

// authType returns the configured scheme, inferring one from the populated
// credential fields when Auth is unset.
func (c Config) authType() AuthType {
	if c.Auth != "" {
		return c.Auth
	}
	switch {
	case c.ConnectKey != "" || c.ConnectSecret != "":
		return AuthConnect
	case c.Email != "" || c.APIToken != "":
		return AuthAPIToken
	case c.Token != "":
		return AuthPAT
	}
	return ""
}

// apiVersion returns the effective API version.
func (c Config) apiVersion() APIVersion {
	if c.APIVersion == "" {
		return APIVersionV2
	}
	return c.APIVersion
}
