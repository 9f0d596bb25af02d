// Package notify provides notification services for pipeline events.
//
// Core types:
//   - Notifier: Interface for sending notifications
//   - Event: Notification event with type, message, and metadata
//   - EventType: Type of event (run started, ticket created, etc.)
//
// Implementations:
//   - SlackNotifier: Sends notifications to Slack webhooks
//   - WebhookNotifier: Sends notifications to generic webhooks
//   - LogNotifier: Logs notifications (for testing/debugging)
//   - MultiNotifier: Combines multiple notifiers
//   - NopNotifier: No-op notifier (for testing)
//   - Recorder: Captures events in memory (for tests)
//
// Example usage:
//
//	notifier := notify.NewSlackNotifier(webhookURL,
//	    notify.WithSlackChannel("#alert-tickets"),
//	    notify.WithSlackUsername("alertflow-bot"),
//	)
//	err := notifier.Notify(ctx, notify.NewEvent(
//	    notify.EventTicketCreated, runID, "Created MOBILE-1001",
//	))
package notify
