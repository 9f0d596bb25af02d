package alertflow

import (
	"strings"
	"testing"
	"time"

	"github.com/randalmurphal/alertflow/alert"
)

func TestTicketInfo_HasLabel(t *testing.T) {
	info := TicketInfo{Labels: []string{"bug", "Mobile"}}

	if !info.HasLabel("bug") {
		t.Error("HasLabel(bug) = false, want true")
	}
	if !info.HasLabel("mobile") {
		t.Error("HasLabel(mobile) should match case-insensitively")
	}
	if info.HasLabel("backend") {
		t.Error("HasLabel(backend) = true, want false")
	}
}

func TestTicketInfo_MissingFields(t *testing.T) {
	required := []string{"bug", "mobile"}

	tests := []struct {
		name string
		info TicketInfo
		want []string
	}{
		{
			name: "complete",
			info: TicketInfo{Title: "Crash", Description: "Trace", Labels: []string{"bug"}},
			want: nil,
		},
		{
			name: "all missing",
			info: TicketInfo{},
			want: []string{"title", "description", "labels"},
		},
		{
			name: "whitespace title is missing",
			info: TicketInfo{Title: "   ", Description: "d", Labels: []string{"mobile"}},
			want: []string{"title"},
		},
		{
			name: "unrecognized labels count as missing",
			info: TicketInfo{Title: "t", Description: "d", Labels: []string{"backend"}},
			want: []string{"labels"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.info.MissingFields(required)
			if len(got) != len(tt.want) {
				t.Fatalf("MissingFields() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("MissingFields()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTicketInfo_MissingFields_NoRequiredLabels(t *testing.T) {
	info := TicketInfo{Title: "t", Description: "d"}
	if got := info.MissingFields(nil); got != nil {
		t.Errorf("MissingFields(nil) = %v, want nil", got)
	}
}

func TestTicketInfo_Merge(t *testing.T) {
	base := TicketInfo{Title: "Existing title", Labels: []string{"bug"}}
	other := TicketInfo{
		Title:       "Inferred title",
		Description: "Inferred description",
		Labels:      []string{"Bug", "mobile"},
	}

	merged := base.Merge(other)

	if merged.Title != "Existing title" {
		t.Errorf("Merge overwrote populated title: %q", merged.Title)
	}
	if merged.Description != "Inferred description" {
		t.Errorf("Merge did not fill empty description: %q", merged.Description)
	}
	if len(merged.Labels) != 2 {
		t.Fatalf("Labels = %v, want deduplicated [bug mobile]", merged.Labels)
	}
	if merged.Labels[0] != "bug" || merged.Labels[1] != "mobile" {
		t.Errorf("Labels = %v, want [bug mobile] in order", merged.Labels)
	}
}

func TestNewWorkflowState(t *testing.T) {
	state := NewWorkflowState("Triggered: something", "servicecore-mobile-errors")

	if state.RawMessage != "Triggered: something" {
		t.Errorf("RawMessage = %q", state.RawMessage)
	}
	if state.Channel != "servicecore-mobile-errors" {
		t.Errorf("Channel = %q", state.Channel)
	}
	if state.RunID == "" {
		t.Error("RunID should be generated")
	}
	if state.StartTime.IsZero() {
		t.Error("StartTime should be set")
	}
	if state.IsValidSource || state.TicketInfo != nil || state.HasError() {
		t.Error("new state should be empty apart from inputs")
	}
}

func TestWorkflowState_WithRunID(t *testing.T) {
	state := NewWorkflowState("msg", "chan")
	state = state.WithRunID("custom-run-id")

	if state.RunID != "custom-run-id" {
		t.Errorf("RunID = %q, want %q", state.RunID, "custom-run-id")
	}
}

func TestWorkflowState_WithSource(t *testing.T) {
	state := NewWorkflowState("msg", "chan")
	state = state.WithSource(alert.SourceDatadog, true)

	if state.Source != alert.SourceDatadog {
		t.Errorf("Source = %q, want datadog", state.Source)
	}
	if !state.IsValidSource {
		t.Error("IsValidSource = false, want true")
	}
}

func TestWorkflowState_AddTokens(t *testing.T) {
	state := NewWorkflowState("msg", "chan")

	state.AddTokens(1000, 500)
	if state.TotalTokensIn != 1000 || state.TotalTokensOut != 500 {
		t.Errorf("tokens = %d/%d, want 1000/500", state.TotalTokensIn, state.TotalTokensOut)
	}
	if state.TotalCost <= 0 {
		t.Error("AddTokens should estimate a cost")
	}

	state.AddTokens(500, 250)
	if state.TotalTokensIn != 1500 || state.TotalTokensOut != 750 {
		t.Errorf("cumulative tokens = %d/%d, want 1500/750", state.TotalTokensIn, state.TotalTokensOut)
	}
}

func TestWorkflowState_SetClearError(t *testing.T) {
	state := NewWorkflowState("msg", "chan")

	state.SetError(nil)
	if state.HasError() {
		t.Error("SetError(nil) should not set an error")
	}

	state.SetError(ErrTicketIncomplete)
	if !state.HasError() {
		t.Error("HasError() = false after SetError")
	}
	if state.Error != ErrTicketIncomplete.Error() {
		t.Errorf("Error = %q, want %q", state.Error, ErrTicketIncomplete.Error())
	}

	state.ClearError()
	if state.HasError() {
		t.Error("ClearError should reset the error")
	}
}

func TestWorkflowState_Validate(t *testing.T) {
	tests := []struct {
		name    string
		state   WorkflowState
		reqs    []StateRequirement
		wantErr bool
	}{
		{
			name:  "inputs present",
			state: NewWorkflowState("msg", "chan"),
			reqs:  []StateRequirement{RequireMessage, RequireChannel},
		},
		{
			name:    "missing message",
			state:   NewWorkflowState("", "chan"),
			reqs:    []StateRequirement{RequireMessage},
			wantErr: true,
		},
		{
			name:    "invalid source",
			state:   NewWorkflowState("msg", "chan"),
			reqs:    []StateRequirement{RequireValidSource},
			wantErr: true,
		},
		{
			name: "ticket info present",
			state: NewWorkflowState("msg", "chan").
				WithTicketInfo(&TicketInfo{Title: "t"}),
			reqs: []StateRequirement{RequireTicketInfo},
		},
		{
			name:    "missing ticket id",
			state:   NewWorkflowState("msg", "chan"),
			reqs:    []StateRequirement{RequireTicketID},
			wantErr: true,
		},
		{
			name:    "unknown requirement",
			state:   NewWorkflowState("msg", "chan"),
			reqs:    []StateRequirement{StateRequirement("bogus")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.state.Validate(tt.reqs...)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWorkflowState_CanRetryCreate(t *testing.T) {
	state := NewWorkflowState("msg", "chan")

	if !state.CanRetryCreate(5) {
		t.Error("fresh state should allow retries")
	}
	state.RetryCount = 4
	if !state.CanRetryCreate(5) {
		t.Error("RetryCount=4 should still allow a retry")
	}
	state.RetryCount = 5
	if state.CanRetryCreate(5) {
		t.Error("RetryCount=5 should exhaust the budget")
	}
}

func TestWorkflowState_CanInfer(t *testing.T) {
	state := NewWorkflowState("msg", "chan")

	if !state.CanInfer(2) {
		t.Error("fresh state should allow inference")
	}
	state.InferenceAttempts = 2
	if state.CanInfer(2) {
		t.Error("InferenceAttempts=2 should exhaust the budget")
	}
}

func TestGenerateRunID(t *testing.T) {
	runID := generateRunID()

	if runID == "" {
		t.Fatal("generateRunID() returned empty string")
	}
	if !strings.Contains(runID, "-alert-") {
		t.Errorf("runID %q should contain the alert marker", runID)
	}

	today := time.Now().Format("2006-01-02")
	if !strings.HasPrefix(runID, today) {
		t.Errorf("runID %q should start with today's date %q", runID, today)
	}

	runID2 := generateRunID()
	if runID == runID2 {
		t.Error("two consecutive generateRunID() calls should produce different IDs")
	}
}

func TestWorkflowState_Summary(t *testing.T) {
	state := NewWorkflowState("msg", "servicecore-mobile-errors")

	summary := state.Summary()
	if !strings.Contains(summary, "pending") {
		t.Errorf("fresh state summary = %q, want pending", summary)
	}

	state.TicketID = "MOBILE-1001"
	if !strings.Contains(state.Summary(), "created") {
		t.Errorf("summary = %q, want created", state.Summary())
	}

	state.FinalResponse = "done"
	if !strings.Contains(state.Summary(), "completed") {
		t.Errorf("summary = %q, want completed", state.Summary())
	}

	state.Error = "boom"
	if !strings.Contains(state.Summary(), "failed") {
		t.Errorf("summary = %q, want failed", state.Summary())
	}
}
