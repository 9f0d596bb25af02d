// Package jira files alert tickets in Jira.
//
// The client implements ticket.Client over the Jira REST API and works
// against Cloud and Server/Data Center instances. API v2 is the default;
// configure v3 on Cloud to send descriptions as ADF rich text.
//
// # Authentication
//
// Three schemes are supported, inferred from the populated config fields
// when Auth is not set explicitly:
//   - API token (Cloud): Email + APIToken
//   - Personal access token (Server/DC): Token
//   - Atlassian Connect app: ConnectKey + ConnectSecret, signing each
//     request with a query-string-hash JWT
//
// # Usage
//
//	client, err := jira.NewClient(jira.Config{
//		BaseURL:  "https://your-domain.atlassian.net",
//		Email:    "oncall@example.com",
//		APIToken: os.Getenv("JIRA_API_TOKEN"),
//	})
//	if err != nil {
//		return err
//	}
//
//	created, err := client.Create(ctx, ticket.CreateRequest{
//		Project: "MOBILE",
//		Title:   "NullPointerException on checkout",
//		Labels:  []string{"bug", "mobile"},
//	})
//
// # Rich Text
//
// Ticket descriptions are Markdown. The client converts them to wiki
// markup (v2) or ADF (v3) on create, and converts either form back to
// Markdown on get:
//
//	wiki := jira.MarkdownToWiki("## Error\n\nNullPointerException")
//	doc := jira.MarkdownToADF("## Error\n\nNullPointerException")
//
// # Webhooks
//
// Jira instances configured to call back on issue changes let the
// pipeline observe what happens to filed tickets. ParseWebhookPayload and
// ValidateWebhookSignature handle the receiving side:
//
//	if !jira.ValidateWebhookSignature(body, sig, secret) {
//		return errInvalidSignature
//	}
//	payload, err := jira.ParseWebhookPayload(body)
//	if from, to, ok := payload.StatusChange(); ok {
//		// ticket moved, e.g. "Open" -> "Done"
//	}
//
// # Errors
//
// API failures are *APIError values that unwrap to the shared http
// sentinels, so ticket.IsTransient and ticket.IsNotFound work on
// anything this client returns.
package jira
