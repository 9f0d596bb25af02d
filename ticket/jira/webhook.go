package jira

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// WebhookEventType identifies a Jira webhook event.
type WebhookEventType string

// Issue lifecycle events. Trackers configured to call back on issue
// changes let the alert pipeline observe what happens to filed tickets.
const (
	WebhookEventIssueCreated WebhookEventType = "jira:issue_created"
	WebhookEventIssueUpdated WebhookEventType = "jira:issue_updated"
	WebhookEventIssueDeleted WebhookEventType = "jira:issue_deleted"
)

// WebhookSignatureHeaders are the headers Jira may carry the payload
// signature in.
var WebhookSignatureHeaders = []string{
	"X-Hub-Signature-256",
	"X-Atlassian-Webhook-Signature",
}

// WebhookPayload is the common shape of a Jira issue webhook.
type WebhookPayload struct {
	Timestamp    int64            `json:"timestamp"`
	WebhookEvent WebhookEventType `json:"webhookEvent"`
	User         *User            `json:"user,omitempty"`
	Issue        *Issue           `json:"issue,omitempty"`
	Changelog    *Changelog       `json:"changelog,omitempty"`
}

// Changelog lists the field changes an update event carried.
type Changelog struct {
	ID    string          `json:"id"`
	Items []ChangelogItem `json:"items"`
}

// ChangelogItem is a single field change.
type ChangelogItem struct {
	Field      string `json:"field"`
	FromString string `json:"fromString,omitempty"`
	ToString   string `json:"toString,omitempty"`
}

// ValidateWebhookSignature checks an HMAC-SHA256 payload signature. The
// signature may carry a "sha256=" prefix or be the bare hex digest.
func ValidateWebhookSignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}

	signature = strings.TrimPrefix(signature, "sha256=")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// ParseWebhookPayload decodes a webhook body.
func ParseWebhookPayload(body []byte) (*WebhookPayload, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, ErrWebhookInvalidPayload
	}
	return &payload, nil
}

// HasFieldChange reports whether the payload changed the named field.
// Field names compare case-insensitively.
func (p *WebhookPayload) HasFieldChange(field string) bool {
	return p.Changelog.GetFieldChange(field) != nil
}

// GetFieldChange returns the change for the named field, or nil.
func (p *WebhookPayload) GetFieldChange(field string) *ChangelogItem {
	return p.Changelog.GetFieldChange(field)
}

// StatusChange returns the old and new status names when the payload is a
// status transition.
func (p *WebhookPayload) StatusChange() (from, to string, ok bool) {
	item := p.Changelog.GetFieldChange("status")
	if item == nil {
		return "", "", false
	}
	return item.FromString, item.ToString, true
}

// IsStatusChange reports whether the issue status changed.
func (p *WebhookPayload) IsStatusChange() bool {
	return p.HasFieldChange("status")
}

// GetFieldChange returns the change for the named field, or nil. Safe on
// a nil changelog.
func (c *Changelog) GetFieldChange(field string) *ChangelogItem {
	if c == nil {
		return nil
	}
	for i := range c.Items {
		if strings.EqualFold(c.Items[i].Field, field) {
			return &c.Items[i]
		}
	}
	return nil
}

// HasFieldChange reports whether the changelog touches the named field.
func (c *Changelog) HasFieldChange(field string) bool {
	return c.GetFieldChange(field) != nil
}
