package alertflow

import (
	"fmt"
	"strings"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"

	"github.com/randalmurphal/alertflow/alert"
)

// =============================================================================
// TicketInfo Type
// =============================================================================

// TicketInfo holds the fields of a prospective ticket, extracted from an
// alert message. Fields may be partially empty until inference fills them.
type TicketInfo struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Labels      []string `json:"labels,omitempty"`
}

// HasLabel reports whether the label is present, ignoring case.
func (t TicketInfo) HasLabel(label string) bool {
	for _, l := range t.Labels {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}

// HasAnyLabel reports whether at least one of the given labels is present.
func (t TicketInfo) HasAnyLabel(labels []string) bool {
	for _, l := range labels {
		if t.HasLabel(l) {
			return true
		}
	}
	return false
}

// MissingFields lists the required fields that are still unpopulated.
// A ticket needs a title, a description, and at least one of the
// recognized category labels.
func (t TicketInfo) MissingFields(requiredLabels []string) []string {
	var missing []string
	if strings.TrimSpace(t.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(t.Description) == "" {
		missing = append(missing, "description")
	}
	if len(requiredLabels) > 0 && !t.HasAnyLabel(requiredLabels) {
		missing = append(missing, "labels")
	}
	return missing
}

// Merge fills empty fields of t from other. Existing values win: a
// populated title or description is never replaced, and labels are
// combined without duplicates.
func (t TicketInfo) Merge(other TicketInfo) TicketInfo {
	if strings.TrimSpace(t.Title) == "" {
		t.Title = other.Title
	}
	if strings.TrimSpace(t.Description) == "" {
		t.Description = other.Description
	}
	t.Labels = unionLabels(t.Labels, other.Labels)
	return t
}

// unionLabels merges two label lists preserving order, case-insensitively
// dropping duplicates.
func unionLabels(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, l := range list {
			key := strings.ToLower(strings.TrimSpace(l))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, l)
		}
	}
	return out
}

// =============================================================================
// Embeddable State Components
// =============================================================================

// ValidationState tracks source validation
type ValidationState struct {
	Source        alert.Source `json:"source,omitempty"`
	IsValidSource bool         `json:"isValidSource,omitempty"`
}

// ExtractionState tracks information extraction and inference
type ExtractionState struct {
	TicketInfo        *TicketInfo `json:"ticketInfo,omitempty"`
	IsComplete        bool        `json:"isComplete,omitempty"`
	InferenceAttempts int         `json:"inferenceAttempts,omitempty"`
	ExtractTokensIn   int         `json:"extractTokensIn,omitempty"`
	ExtractTokensOut  int         `json:"extractTokensOut,omitempty"`
}

// CreationState tracks ticket creation and the retry loop
type CreationState struct {
	TicketID        string    `json:"ticketId,omitempty"`
	TicketURL       string    `json:"ticketUrl,omitempty"`
	RetryCount      int       `json:"retryCount,omitempty"`
	PendingRetry    bool      `json:"pendingRetry,omitempty"`
	TicketCreatedAt time.Time `json:"ticketCreatedAt,omitempty"`
}

// MetricsState tracks execution metrics
type MetricsState struct {
	TotalTokensIn  int           `json:"totalTokensIn"`
	TotalTokensOut int           `json:"totalTokensOut"`
	TotalCost      float64       `json:"totalCost"`
	StartTime      time.Time     `json:"startTime"`
	TotalDuration  time.Duration `json:"totalDuration"`
}

// =============================================================================
// WorkflowState - Full Run State
// =============================================================================

// WorkflowState is the complete state for one alert-to-ticket run. It is
// owned exclusively by that run: each node receives it by value and
// returns the updated copy, so concurrent runs never share state.
type WorkflowState struct {
	// Identification
	RunID string `json:"runId"`

	// Input, immutable after construction
	RawMessage string `json:"rawMessage"`
	Channel    string `json:"channel"`

	// Embedded state components
	ValidationState
	ExtractionState
	CreationState
	MetricsState

	// Progress tracking. LastNode is the furthest node that has executed.
	LastNode Node `json:"lastNode,omitempty"`

	// Error tracking
	Error string `json:"error,omitempty"`

	// FinalResponse is set exactly once, by the formatting node, as the
	// last mutation before the run terminates.
	FinalResponse string `json:"finalResponse,omitempty"`
}

// NewWorkflowState creates the state for a new run.
func NewWorkflowState(rawMessage, channel string) WorkflowState {
	return WorkflowState{
		RunID:      generateRunID(),
		RawMessage: rawMessage,
		Channel:    channel,
		MetricsState: MetricsState{
			StartTime: time.Now(),
		},
	}
}

// WithRunID sets a custom run ID
func (s WorkflowState) WithRunID(runID string) WorkflowState {
	s.RunID = runID
	return s
}

// WithTicketInfo sets the extracted ticket fields
func (s WorkflowState) WithTicketInfo(info *TicketInfo) WorkflowState {
	s.TicketInfo = info
	return s
}

// WithSource sets the validation outcome
func (s WorkflowState) WithSource(source alert.Source, valid bool) WorkflowState {
	s.Source = source
	s.IsValidSource = valid
	return s
}

// AddTokens updates token metrics
func (s *WorkflowState) AddTokens(in, out int) {
	s.TotalTokensIn += in
	s.TotalTokensOut += out
	// Rough cost estimate ($3/1M in, $15/1M out for Claude Opus)
	s.TotalCost += (float64(in) * 0.000003) + (float64(out) * 0.000015)
}

// AddTokensWithCost updates token metrics with explicit cost
func (s *WorkflowState) AddTokensWithCost(in, out int, cost float64) {
	s.TotalTokensIn += in
	s.TotalTokensOut += out
	s.TotalCost += cost
}

// FinalizeDuration sets total duration from start time
func (s *WorkflowState) FinalizeDuration() {
	s.TotalDuration = time.Since(s.StartTime)
}

// SetError sets the error state
func (s *WorkflowState) SetError(err error) {
	if err != nil {
		s.Error = err.Error()
	}
}

// ClearError resets the error state, used when a retry succeeds.
func (s *WorkflowState) ClearError() {
	s.Error = ""
}

// HasError returns true if state has an error
func (s WorkflowState) HasError() bool {
	return s.Error != ""
}

// =============================================================================
// State Validation
// =============================================================================

// StateRequirement defines a state prerequisite
type StateRequirement string

const (
	RequireMessage     StateRequirement = "message"
	RequireChannel     StateRequirement = "channel"
	RequireValidSource StateRequirement = "valid_source"
	RequireTicketInfo  StateRequirement = "ticket_info"
	RequireTicketID    StateRequirement = "ticket_id"
)

// Validate checks if state has required fields
func (s WorkflowState) Validate(requirements ...StateRequirement) error {
	for _, req := range requirements {
		switch req {
		case RequireMessage:
			if s.RawMessage == "" {
				return fmt.Errorf("raw message required")
			}
		case RequireChannel:
			if s.Channel == "" {
				return fmt.Errorf("channel required")
			}
		case RequireValidSource:
			if !s.IsValidSource {
				return fmt.Errorf("valid source required")
			}
		case RequireTicketInfo:
			if s.TicketInfo == nil {
				return fmt.Errorf("ticket info required")
			}
		case RequireTicketID:
			if s.TicketID == "" {
				return fmt.Errorf("ticket id required")
			}
		default:
			return fmt.Errorf("unknown requirement: %s", req)
		}
	}
	return nil
}

// =============================================================================
// Retry Routing
// =============================================================================

// CanRetryCreate returns true if we haven't exhausted creation retries
func (s WorkflowState) CanRetryCreate(maxRetries int) bool {
	return s.RetryCount < maxRetries
}

// CanInfer returns true if we haven't exceeded inference attempts
func (s WorkflowState) CanInfer(maxAttempts int) bool {
	return s.InferenceAttempts < maxAttempts
}

// =============================================================================
// Helper Functions
// =============================================================================

const runIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// generateRunID creates a unique run ID
func generateRunID() string {
	timestamp := time.Now().Format("2006-01-02")
	suffix := nanoid.MustGenerate(runIDAlphabet, 6)
	return fmt.Sprintf("%s-alert-%s", timestamp, suffix)
}

// =============================================================================
// State Summary
// =============================================================================

// Summary returns a human-readable summary of the state
func (s WorkflowState) Summary() string {
	var status string
	switch {
	case s.FinalResponse != "" && s.Error == "":
		status = "completed"
	case s.Error != "":
		status = "failed"
	case s.TicketID != "":
		status = "created"
	case s.TicketInfo != nil:
		status = "extracted"
	case s.IsValidSource:
		status = "validated"
	default:
		status = "pending"
	}

	return fmt.Sprintf("Run %s [%s]: %s (tokens: %d in, %d out, cost: $%.4f)",
		s.RunID, status, s.Channel,
		s.TotalTokensIn, s.TotalTokensOut, s.TotalCost)
}
