package notify

import (
	"context"
	"log/slog"
)

// =============================================================================
// LogNotifier
// =============================================================================

// LogNotifier writes events to a slog logger. Useful as the default
// sink in deployments that have no Slack webhook configured.
type LogNotifier struct {
	Logger *slog.Logger
}

// NewLogNotifier creates a notifier that logs to the given logger.
// If logger is nil, uses the default slog logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{Logger: logger}
}

// Notify implements Notifier. Severity maps onto the log level, and the
// ticket and failure-class metadata the pipeline attaches become
// first-class attributes.
func (n *LogNotifier) Notify(ctx context.Context, event Event) error {
	level := slog.LevelInfo
	switch event.Severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityError, SeverityCritical:
		level = slog.LevelError
	}

	attrs := []any{
		"type", event.Type,
		"runId", event.RunID,
		"channel", event.Channel,
	}
	if event.Node != "" {
		attrs = append(attrs, "node", event.Node)
	}
	if id, ok := event.Metadata["ticketId"].(string); ok && id != "" {
		attrs = append(attrs, "ticketId", id)
	}
	if class, ok := event.Metadata["failureClass"].(string); ok && class != "" {
		attrs = append(attrs, "failureClass", class)
	}

	n.Logger.Log(ctx, level, event.Message, attrs...)
	return nil
}
