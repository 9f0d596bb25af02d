package jira

// Issue is a Jira issue as returned by the REST API. Only the fields this
// package reads are mapped; everything else is dropped on decode.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Self   string      `json:"self,omitempty"`
	Fields IssueFields `json:"fields"`
}

// IssueFields contains the issue fields used for ticket mapping.
type IssueFields struct {
	Summary     string     `json:"summary"`
	Description any        `json:"description,omitempty"` // ADF (v3) or wiki string (v2)
	Labels      []string   `json:"labels,omitempty"`
	Status      *Status    `json:"status,omitempty"`
	IssueType   *IssueType `json:"issuetype,omitempty"`
	Project     *Project   `json:"project,omitempty"`
}

// Status is an issue status.
type Status struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// IssueType is an issue type.
type IssueType struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Project identifies a Jira project.
type Project struct {
	ID   string `json:"id,omitempty"`
	Key  string `json:"key"`
	Name string `json:"name,omitempty"`
}

// User is a Jira user as it appears in webhook payloads. Cloud identifies
// users by accountId, Server/DC by name.
type User struct {
	AccountID   string `json:"accountId,omitempty"`
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName"`
}

// Wire types for issue creation.

type createIssueRequest struct {
	Fields createIssueFields `json:"fields"`
}

type createIssueFields struct {
	Project     projectRef   `json:"project"`
	IssueType   issueTypeRef `json:"issuetype"`
	Summary     string       `json:"summary"`
	Description any          `json:"description,omitempty"` // ADF or wiki string
	Labels      []string     `json:"labels,omitempty"`
}

type projectRef struct {
	Key string `json:"key"`
}

type issueTypeRef struct {
	Name string `json:"name"`
}

type createIssueResponse struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}
