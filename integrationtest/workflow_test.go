package integrationtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/alertflow"
	"github.com/randalmurphal/alertflow/alert"
	"github.com/randalmurphal/alertflow/artifact"
	"github.com/randalmurphal/alertflow/eval"
	"github.com/randalmurphal/alertflow/notify"
	"github.com/randalmurphal/alertflow/testutil"
	"github.com/randalmurphal/alertflow/ticket"
	"github.com/randalmurphal/alertflow/transcript"
)

// TestAlertToTicketFlow runs a Datadog alert through the whole pipeline
// with the full observability stack attached: transcript store, artifact
// manager, and notifier.
func TestAlertToTicketFlow(t *testing.T) {
	dataDir := t.TempDir()
	store, err := transcript.NewFileStore(transcript.StoreConfig{BaseDir: dataDir})
	require.NoError(t, err)
	artifacts := artifact.NewManager(artifact.Config{BaseDir: dataDir})
	recorder := &notify.Recorder{}

	mock := mockResponses(completeExtraction(t))
	tracker := ticket.NewMock()
	machine := newMachine(t, mock, tracker,
		alertflow.WithTranscripts(store),
		alertflow.WithArtifacts(artifacts),
		alertflow.WithNotifier(recorder),
	)

	state, err := machine.Run(testutil.TestContext(t), datadogAlert(t))
	require.NoError(t, err)

	// Pipeline outcome
	assert.True(t, state.IsValidSource, "Datadog alert should pass validation")
	assert.Equal(t, alert.SourceDatadog, state.Source)
	assert.True(t, state.IsComplete, "extraction had all required fields")
	require.NotEmpty(t, state.TicketID)
	assert.NotEmpty(t, state.TicketURL)
	assert.False(t, state.Failed)
	require.False(t, state.HasError())

	// One extraction call, no inference needed
	assert.Equal(t, 1, mock.CallCount(), "complete extraction needs no inference")
	assert.Equal(t, 0, state.InferenceAttempts)
	assert.Equal(t, 0, state.RetryCount)

	// Response summarizes the ticket
	assert.True(t, strings.HasPrefix(state.FinalResponse, "JIRA ticket created successfully!"), "response: %q", state.FinalResponse)
	assert.Contains(t, state.FinalResponse, state.TicketID)
	assert.Contains(t, state.FinalResponse, state.TicketURL)
	assert.NotContains(t, state.FinalResponse, "Warning", "verification succeeded")

	// Tracker round trip
	created, err := tracker.Get(context.Background(), state.TicketID)
	require.NoError(t, err)
	assert.Equal(t, "TypeError: undefined is not an object in checkout", created.Title)
	assert.Contains(t, created.Labels, "bug")

	// Transcript recorded the run and its node turns
	tr, err := store.Load(state.RunID)
	require.NoError(t, err)
	assert.Equal(t, transcript.RunStatusCompleted, tr.Metadata.Status)
	assert.Equal(t, state.TicketID, tr.Metadata.TicketID)
	require.NotEmpty(t, tr.Turns)
	var nodeTurns []string
	for _, turn := range tr.Turns {
		if turn.Role == "node" {
			nodeTurns = append(nodeTurns, turn.Content)
		}
	}
	recorded := strings.Join(nodeTurns, "\n")
	assert.Contains(t, recorded, string(alertflow.NodeExtracting)+" completed")
	assert.Contains(t, recorded, string(alertflow.NodeCreating)+" completed")
	assert.Contains(t, recorded, string(alertflow.NodeVerifying))

	// Artifacts for every pipeline stage
	for _, name := range []string{artifact.NameAlert, artifact.NameExtraction, artifact.NameTicket, artifact.NameResponse} {
		assert.True(t, artifacts.Has(state.RunID, name), "expected artifact %s", name)
	}

	// Lifecycle events in order
	types := recorder.TypesSeen()
	require.Len(t, types, 3)
	assert.Equal(t, notify.EventRunStarted, types[0])
	assert.Equal(t, notify.EventTicketCreated, types[1])
	assert.Equal(t, notify.EventRunCompleted, types[2])
}

// TestRejectionFlow checks that off-source messages are rejected before
// any model call is made.
func TestRejectionFlow(t *testing.T) {
	mock := mockResponses(completeExtraction(t))
	machine := newMachine(t, mock, ticket.NewMock())

	msg := alert.Message{
		Text:    "Reminder: sprint retro at 3pm, bring your action items.",
		Channel: alert.DefaultChannel,
	}
	state, err := machine.Run(testutil.TestContext(t), msg)
	require.NoError(t, err)

	assert.False(t, state.IsValidSource)
	assert.Empty(t, state.TicketID)
	assert.Zero(t, mock.CallCount(), "rejected messages must not reach the model")
	assert.Contains(t, state.FinalResponse, "Message rejected")
	assert.Contains(t, state.FinalResponse, alert.DefaultChannel)
}

// TestInferenceFlow feeds an extraction with missing labels and checks the
// machine fills the gap with one inference round trip.
func TestInferenceFlow(t *testing.T) {
	mock := mockResponses(
		extractionJSON(t, "Crash on checkout load", "## Error Details\nTypeError in vendor bundle.", nil),
		`{"labels": ["bug"]}`,
	)
	machine := newMachine(t, mock, ticket.NewMock())

	state, err := machine.Run(testutil.TestContext(t), datadogAlert(t))
	require.NoError(t, err)

	assert.Equal(t, 2, mock.CallCount(), "extract then one inference call")
	assert.Equal(t, 1, state.InferenceAttempts)
	assert.True(t, state.IsComplete)
	require.NotNil(t, state.TicketInfo)
	assert.True(t, state.TicketInfo.HasLabel("bug"))
	require.NotEmpty(t, state.TicketID)
}

// TestTransientRetryFlow checks that a transient tracker outage is retried
// and the run still completes cleanly.
func TestTransientRetryFlow(t *testing.T) {
	tracker := ticket.NewMock()
	tracker.FailCreate = []error{fmt.Errorf("create ticket: %w", ticket.ErrUnavailable)}

	machine := newMachine(t, mockResponses(completeExtraction(t)), tracker)

	state, err := machine.Run(testutil.TestContext(t), datadogAlert(t))
	require.NoError(t, err)

	assert.Equal(t, 1, state.RetryCount)
	assert.Equal(t, 2, tracker.CreateCalls())
	require.NotEmpty(t, state.TicketID)
	assert.False(t, state.HasError(), "error cleared after successful retry")
	assert.True(t, strings.HasPrefix(state.FinalResponse, "JIRA ticket created successfully!"))
}

// TestRetryExhaustionFlow keeps the tracker down past the retry budget and
// checks the run fails with a connection-classed event.
func TestRetryExhaustionFlow(t *testing.T) {
	unavailable := fmt.Errorf("create ticket: %w", ticket.ErrUnavailable)
	tracker := ticket.NewMock()
	tracker.FailCreate = []error{unavailable, unavailable, unavailable, unavailable, unavailable, unavailable}

	recorder := &notify.Recorder{}
	machine := newMachine(t, mockResponses(completeExtraction(t)), tracker,
		alertflow.WithNotifier(recorder),
	)

	state, err := machine.Run(testutil.TestContext(t), datadogAlert(t))
	require.NoError(t, err, "exhaustion is reported in state, not returned")

	assert.True(t, state.Failed)
	assert.Empty(t, state.TicketID)
	assert.Equal(t, 5, state.RetryCount, "default policy allows five retries")
	assert.Equal(t, 6, tracker.CreateCalls(), "initial attempt plus five retries")
	assert.Contains(t, state.FinalResponse, "Failed to create ticket")
	assert.Contains(t, state.FinalResponse, "after 6 attempts")

	events := recorder.Events()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, notify.EventRunFailed, last.Type)
	assert.Equal(t, "connection", last.Metadata["failureClass"])
}

// TestVerificationWarningFlow drops the created ticket before verification
// and checks the run still completes with a warning in the response.
func TestVerificationWarningFlow(t *testing.T) {
	tracker := ticket.NewMock()
	tracker.DropCreated = true

	recorder := &notify.Recorder{}
	machine := newMachine(t, mockResponses(completeExtraction(t)), tracker,
		alertflow.WithNotifier(recorder),
	)

	state, err := machine.Run(testutil.TestContext(t), datadogAlert(t))
	require.NoError(t, err)

	require.NotEmpty(t, state.TicketID, "creation succeeded even though lookup fails")
	assert.False(t, state.Failed, "verification failure does not fail the run")
	assert.Contains(t, state.FinalResponse, "Warning:")
	assert.Contains(t, state.FinalResponse, "verification failed")

	types := recorder.TypesSeen()
	assert.Contains(t, types, notify.EventVerifyFailed)
	for _, event := range recorder.Events() {
		if event.Type != notify.EventVerifyFailed {
			continue
		}
		assert.Equal(t, state.TicketID, event.Metadata["ticketId"])
		assert.NotEmpty(t, event.Metadata["failureClass"])
	}
}

// TestIncompleteRejectedFlow disables incomplete-ticket creation and checks
// the run fails once inference attempts are spent.
func TestIncompleteRejectedFlow(t *testing.T) {
	// The mock cycles its responses, so every inference round keeps
	// returning an extraction with no labels.
	mock := mockResponses(extractionJSON(t, "Crash on checkout load", "Stack trace attached.", nil))

	policy := fastPolicy()
	policy.CreateIncomplete = false

	recorder := &notify.Recorder{}
	machine := newMachine(t, mock, ticket.NewMock(),
		alertflow.WithPolicy(policy),
		alertflow.WithNotifier(recorder),
	)

	state, err := machine.Run(testutil.TestContext(t), datadogAlert(t))
	require.NoError(t, err)

	assert.True(t, state.Failed)
	assert.Empty(t, state.TicketID)
	assert.Equal(t, 2, state.InferenceAttempts, "both inference attempts spent")
	assert.Equal(t, 3, mock.CallCount(), "extract plus two inference calls")

	events := recorder.Events()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, notify.EventRunFailed, last.Type)
	assert.Equal(t, "incomplete", last.Metadata["failureClass"])
}

// TestGoldenSetEval scores the full machine against the golden alert set
// and expects a clean sweep.
func TestGoldenSetEval(t *testing.T) {
	dataDir := t.TempDir()
	artifacts := artifact.NewManager(artifact.Config{BaseDir: dataDir})

	machine := newMachine(t, mockResponses(completeExtraction(t)), ticket.NewMock())
	runner := eval.NewRunner(machine,
		eval.WithArtifacts(artifacts),
		eval.WithLogger(quietLogger()),
	)

	report, err := runner.Run(testutil.TestContext(t), eval.GoldenCases())
	require.NoError(t, err)

	assert.Equal(t, 14, report.Total)
	assert.Equal(t, 14, report.Passed, "failed cases: %v", report.FailedCases())
	assert.InDelta(t, 100.0, report.PassRate, 0.01)

	// The runner persisted its report alongside run artifacts.
	entries, err := os.ReadDir(filepath.Join(dataDir, "runs"))
	require.NoError(t, err)
	var found bool
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "eval-") {
			found = artifacts.Has(entry.Name(), artifact.NameEvalReport)
		}
	}
	assert.True(t, found, "eval report artifact saved")
}
