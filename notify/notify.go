package notify

import (
	"context"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// =============================================================================
// Notification Types
// =============================================================================

// EventType represents the type of pipeline event.
type EventType string

// Event type constants.
const (
	EventRunStarted    EventType = "run_started"
	EventRunCompleted  EventType = "run_completed"
	EventRunRejected   EventType = "run_rejected"
	EventRunFailed     EventType = "run_failed"
	EventTicketCreated EventType = "ticket_created"
	EventVerifyFailed  EventType = "verify_failed"
)

// Severity constants for notifications.
const (
	SeverityCritical = "critical"
	SeverityError    = "error"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Event describes a pipeline event for notification.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	RunID     string         `json:"run_id"`
	Channel   string         `json:"channel,omitempty"`
	Node      string         `json:"node,omitempty"`
	Message   string         `json:"message"`
	Severity  string         `json:"severity"` // SeverityInfo, SeverityWarning, SeverityError
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewEvent builds an Event with a fresh ID and timestamp. Severity
// defaults to info.
func NewEvent(typ EventType, runID, message string) Event {
	return Event{
		ID:        nanoid.Must(),
		Type:      typ,
		RunID:     runID,
		Message:   message,
		Severity:  SeverityInfo,
		Timestamp: time.Now(),
	}
}

// =============================================================================
// Notifier Interface
// =============================================================================

// Notifier sends notifications about pipeline events.
type Notifier interface {
	// Notify sends a notification. Implementations should be non-blocking
	// and handle errors gracefully (log, don't crash).
	Notify(ctx context.Context, event Event) error
}

// =============================================================================
// Context Injection
// =============================================================================

type serviceContextKey string

const notifierServiceKey serviceContextKey = "alertflow.notifier"

// WithNotifier adds a Notifier to the context.
func WithNotifier(ctx context.Context, n Notifier) context.Context {
	return context.WithValue(ctx, notifierServiceKey, n)
}

// NotifierFromContext extracts the Notifier from context.
// Returns nil if no notifier is configured.
func NotifierFromContext(ctx context.Context) Notifier {
	if n, ok := ctx.Value(notifierServiceKey).(Notifier); ok {
		return n
	}
	return nil
}

// MustNotifierFromContext extracts the Notifier or panics.
func MustNotifierFromContext(ctx context.Context) Notifier {
	n := NotifierFromContext(ctx)
	if n == nil {
		panic("alertflow: Notifier not found in context")
	}
	return n
}
