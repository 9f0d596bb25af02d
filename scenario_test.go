package alertflow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/randalmurphal/alertflow/alert"
	"github.com/randalmurphal/alertflow/artifact"
	"github.com/randalmurphal/alertflow/extract"
	"github.com/randalmurphal/alertflow/notify"
	"github.com/randalmurphal/alertflow/ticket"
	"github.com/randalmurphal/alertflow/transcript"
)

func completeReply() extract.Reply {
	return extract.Reply{
		Result: extract.Result{
			Title:       "NullPointerException on checkout",
			Description: "## Error Details\nNPE in CheckoutService.submit",
			Labels:      []string{"bug", "mobile"},
			TokensIn:    100,
			TokensOut:   40,
		},
	}
}

func TestMachine_RunHappyPath(t *testing.T) {
	svc := &extract.Mock{ExtractScript: []extract.Reply{completeReply()}}
	tracker := ticket.NewMock()
	rec := &notify.Recorder{}
	m := newTestMachine(t, svc, tracker, WithNotifier(rec))

	state, err := m.Run(context.Background(), validMessage())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !state.IsValidSource || state.Source != alert.SourceDatadog {
		t.Errorf("source = %q valid=%v, want validated datadog", state.Source, state.IsValidSource)
	}
	if state.TicketID == "" {
		t.Fatal("no ticket created")
	}
	if state.RetryCount != 0 || state.InferenceAttempts != 0 {
		t.Errorf("retries=%d inferences=%d, want 0/0", state.RetryCount, state.InferenceAttempts)
	}
	if state.HasError() {
		t.Errorf("unexpected error: %q", state.Error)
	}
	if !strings.HasPrefix(state.FinalResponse, "JIRA ticket created successfully!") {
		t.Errorf("response = %q, want the success form", state.FinalResponse)
	}
	if !strings.Contains(state.FinalResponse, state.TicketID) ||
		!strings.Contains(state.FinalResponse, state.TicketURL) {
		t.Errorf("response = %q, want the ticket id and url included", state.FinalResponse)
	}
	if tracker.CreateCalls() != 1 || tracker.GetCalls() != 1 {
		t.Errorf("creates=%d gets=%d, want 1/1", tracker.CreateCalls(), tracker.GetCalls())
	}

	wantEvents := []notify.EventType{
		notify.EventRunStarted,
		notify.EventTicketCreated,
		notify.EventRunCompleted,
	}
	gotEvents := rec.TypesSeen()
	if len(gotEvents) != len(wantEvents) {
		t.Fatalf("events = %v, want %v", gotEvents, wantEvents)
	}
	for i, want := range wantEvents {
		if gotEvents[i] != want {
			t.Errorf("event[%d] = %q, want %q", i, gotEvents[i], want)
		}
	}
}

func TestMachine_RunRejectsForeignChannel(t *testing.T) {
	svc := &extract.Mock{ExtractScript: []extract.Reply{completeReply()}}
	tracker := ticket.NewMock()
	rec := &notify.Recorder{}
	m := newTestMachine(t, svc, tracker, WithNotifier(rec))

	msg := validMessage()
	msg.Channel = "random-channel"

	state, err := m.Run(context.Background(), msg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if state.IsValidSource {
		t.Error("IsValidSource = true for a foreign channel")
	}
	if svc.ExtractCalls() != 0 {
		t.Errorf("extraction ran %d times on a rejected message", svc.ExtractCalls())
	}
	if tracker.CreateCalls() != 0 {
		t.Errorf("creation ran %d times on a rejected message", tracker.CreateCalls())
	}

	want := "Message rejected: Source 'datadog' from channel 'random-channel' is not valid. Only Datadog messages from 'servicecore-mobile-errors' channel are processed."
	if state.FinalResponse != want {
		t.Errorf("response = %q, want %q", state.FinalResponse, want)
	}

	gotEvents := rec.TypesSeen()
	if len(gotEvents) != 2 || gotEvents[1] != notify.EventRunRejected {
		t.Errorf("events = %v, want run_started then run_rejected", gotEvents)
	}
}

func TestMachine_RunInfersMissingLabels(t *testing.T) {
	svc := &extract.Mock{
		ExtractScript: []extract.Reply{{
			Result: extract.Result{
				Title:       "Crash on startup",
				Description: "Stack trace attached",
				TokensIn:    90,
				TokensOut:   35,
			},
		}},
		InferScript: []extract.Reply{{
			Result: extract.Result{
				Labels:    []string{"bug", "mobile"},
				TokensIn:  60,
				TokensOut: 15,
			},
		}},
	}
	tracker := ticket.NewMock()
	m := newTestMachine(t, svc, tracker)

	state, err := m.Run(context.Background(), validMessage())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if state.InferenceAttempts != 1 {
		t.Errorf("InferenceAttempts = %d, want 1", state.InferenceAttempts)
	}
	if !state.IsComplete {
		t.Error("IsComplete = false after the repair pass")
	}
	if state.TicketID == "" {
		t.Error("no ticket created after inference completed the info")
	}
	if !state.TicketInfo.HasLabel("bug") || !state.TicketInfo.HasLabel("mobile") {
		t.Errorf("Labels = %v, want the inferred labels merged in", state.TicketInfo.Labels)
	}

	missing := svc.LastMissing()
	if len(missing) != 1 || missing[0] != "labels" {
		t.Errorf("inference asked for %v, want [labels]", missing)
	}
	if got := state.TotalTokensIn; got != 150 {
		t.Errorf("TotalTokensIn = %d, want extraction plus inference", got)
	}
}

func TestMachine_RunExhaustsRetries(t *testing.T) {
	svc := &extract.Mock{ExtractScript: []extract.Reply{completeReply()}}
	tracker := ticket.NewMock()
	tracker.CreateFunc = func(ctx context.Context, req ticket.CreateRequest) (*ticket.Created, error) {
		return nil, ticket.ErrUnavailable
	}
	rec := &notify.Recorder{}
	m := newTestMachine(t, svc, tracker, WithNotifier(rec))

	state, err := m.Run(context.Background(), validMessage())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if state.RetryCount != 5 {
		t.Errorf("RetryCount = %d, want 5", state.RetryCount)
	}
	if tracker.CreateCalls() != 6 {
		t.Errorf("CreateCalls = %d, want 6", tracker.CreateCalls())
	}
	if state.TicketID != "" {
		t.Errorf("TicketID = %q, want empty after exhaustion", state.TicketID)
	}
	if !strings.Contains(state.Error, "after 6 attempts") {
		t.Errorf("Error = %q, want the exhausted-retries message", state.Error)
	}
	if !strings.HasPrefix(state.FinalResponse, "Failed to create ticket:") {
		t.Errorf("response = %q, want the failure form", state.FinalResponse)
	}

	gotEvents := rec.TypesSeen()
	if len(gotEvents) != 2 || gotEvents[1] != notify.EventRunFailed {
		t.Errorf("events = %v, want run_started then run_failed", gotEvents)
	}
}

func TestMachine_RunPermanentFailure(t *testing.T) {
	svc := &extract.Mock{ExtractScript: []extract.Reply{completeReply()}}
	tracker := ticket.NewMock()
	tracker.FailCreate = []error{errors.New("403 forbidden: project archived")}
	m := newTestMachine(t, svc, tracker)

	state, err := m.Run(context.Background(), validMessage())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if tracker.CreateCalls() != 1 {
		t.Errorf("CreateCalls = %d, want 1 with no retries", tracker.CreateCalls())
	}
	if state.RetryCount != 0 {
		t.Errorf("RetryCount = %d, want 0", state.RetryCount)
	}
	if !strings.Contains(state.Error, "403 forbidden") {
		t.Errorf("Error = %q, want the tracker error preserved", state.Error)
	}
	if !strings.HasPrefix(state.FinalResponse, "Failed to create ticket:") {
		t.Errorf("response = %q, want the failure form", state.FinalResponse)
	}
}

func TestMachine_RunTransientThenSuccess(t *testing.T) {
	svc := &extract.Mock{ExtractScript: []extract.Reply{completeReply()}}
	tracker := ticket.NewMock()
	tracker.FailCreate = []error{ticket.ErrUnavailable, ticket.ErrUnavailable}
	m := newTestMachine(t, svc, tracker)

	state, err := m.Run(context.Background(), validMessage())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if state.TicketID == "" {
		t.Fatal("no ticket created after transient failures cleared")
	}
	if state.RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", state.RetryCount)
	}
	if tracker.CreateCalls() != 3 {
		t.Errorf("CreateCalls = %d, want 3", tracker.CreateCalls())
	}
	if state.HasError() {
		t.Errorf("recovered run should clear the error, got %q", state.Error)
	}
	if !strings.HasPrefix(state.FinalResponse, "JIRA ticket created successfully!") {
		t.Errorf("response = %q, want the success form", state.FinalResponse)
	}
}

func TestMachine_RunVerificationWarning(t *testing.T) {
	svc := &extract.Mock{ExtractScript: []extract.Reply{completeReply()}}
	tracker := ticket.NewMock()
	tracker.DropCreated = true
	rec := &notify.Recorder{}
	m := newTestMachine(t, svc, tracker, WithNotifier(rec))

	state, err := m.Run(context.Background(), validMessage())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if state.TicketID == "" {
		t.Fatal("creation reported success, TicketID must be set")
	}
	if state.Error != "Ticket verification failed - ticket not found" {
		t.Errorf("Error = %q, want the verification message", state.Error)
	}
	if !strings.HasPrefix(state.FinalResponse, "JIRA ticket created successfully!") {
		t.Errorf("response = %q, verification trouble must not demote a created ticket", state.FinalResponse)
	}
	if !strings.Contains(state.FinalResponse, "Warning: Ticket verification failed") {
		t.Errorf("response = %q, want the warning appended", state.FinalResponse)
	}

	gotEvents := rec.TypesSeen()
	want := []notify.EventType{
		notify.EventRunStarted,
		notify.EventTicketCreated,
		notify.EventVerifyFailed,
		notify.EventRunCompleted,
	}
	if len(gotEvents) != len(want) {
		t.Fatalf("events = %v, want %v", gotEvents, want)
	}
	for i := range want {
		if gotEvents[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, gotEvents[i], want[i])
		}
	}
}

func TestMachine_RunExtractionFailure(t *testing.T) {
	svc := &extract.Mock{
		ExtractScript: []extract.Reply{{Err: errors.New("model overloaded")}},
	}
	tracker := ticket.NewMock()
	m := newTestMachine(t, svc, tracker)

	state, err := m.Run(context.Background(), validMessage())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if tracker.CreateCalls() != 0 {
		t.Errorf("CreateCalls = %d after failed extraction, want 0", tracker.CreateCalls())
	}
	if !strings.Contains(state.Error, "extract: model overloaded") {
		t.Errorf("Error = %q, want the extraction failure recorded", state.Error)
	}
	if !strings.HasPrefix(state.FinalResponse, "Failed to create ticket:") {
		t.Errorf("response = %q, want the failure form", state.FinalResponse)
	}
}

func TestMachine_RunStrictIncompletePolicy(t *testing.T) {
	svc := &extract.Mock{
		ExtractScript: []extract.Reply{{
			Result: extract.Result{Title: "Crash, nothing else"},
		}},
		InferScript: []extract.Reply{{Err: extract.ErrUnavailable}},
	}
	tracker := ticket.NewMock()
	p := fastPolicy()
	p.CreateIncomplete = false
	m := newTestMachine(t, svc, tracker, WithPolicy(p))

	state, err := m.Run(context.Background(), validMessage())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if state.InferenceAttempts != 2 {
		t.Errorf("InferenceAttempts = %d, want the full budget spent", state.InferenceAttempts)
	}
	if tracker.CreateCalls() != 0 {
		t.Errorf("CreateCalls = %d, strict policy must not create incomplete tickets", tracker.CreateCalls())
	}
	if !strings.Contains(state.Error, ErrTicketIncomplete.Error()) {
		t.Errorf("Error = %q, want the incompleteness abort", state.Error)
	}
}

func TestMachine_RunIncompleteCreatesByDefault(t *testing.T) {
	svc := &extract.Mock{
		ExtractScript: []extract.Reply{{
			Result: extract.Result{Title: "Crash, nothing else"},
		}},
		InferScript: []extract.Reply{{Err: extract.ErrUnavailable}},
	}
	tracker := ticket.NewMock()
	m := newTestMachine(t, svc, tracker)

	state, err := m.Run(context.Background(), validMessage())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if state.InferenceAttempts != 2 {
		t.Errorf("InferenceAttempts = %d, want 2", state.InferenceAttempts)
	}
	if state.TicketID == "" {
		t.Error("default policy should create best-effort tickets from partial info")
	}
	if state.IsComplete {
		t.Error("IsComplete = true with labels still missing")
	}
}

func TestMachine_RunCanceledDuringBackoff(t *testing.T) {
	svc := &extract.Mock{ExtractScript: []extract.Reply{completeReply()}}
	tracker := ticket.NewMock()
	tracker.CreateFunc = func(ctx context.Context, req ticket.CreateRequest) (*ticket.Created, error) {
		return nil, ticket.ErrUnavailable
	}
	p := fastPolicy()
	p.BackoffBase = time.Minute
	m := newTestMachine(t, svc, tracker, WithPolicy(p))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	state, err := m.Run(ctx, validMessage())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if state.FinalResponse == "" {
		t.Error("FinalResponse must be populated even on cancellation")
	}
}

func TestMachine_RunRecordsTranscriptAndArtifacts(t *testing.T) {
	dir := t.TempDir()
	store, err := transcript.NewFileStore(transcript.StoreConfig{BaseDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	artifacts := artifact.NewManager(artifact.Config{BaseDir: dir})

	svc := &extract.Mock{ExtractScript: []extract.Reply{completeReply()}}
	tracker := ticket.NewMock()
	m := newTestMachine(t, svc, tracker,
		WithTranscripts(store),
		WithArtifacts(artifacts),
	)

	state, err := m.Run(context.Background(), validMessage())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	meta, err := store.LoadMetadata(state.RunID)
	if err != nil {
		t.Fatalf("LoadMetadata failed: %v", err)
	}
	if meta.Status != transcript.RunStatusCompleted {
		t.Errorf("Status = %q, want completed", meta.Status)
	}
	if meta.TicketID != state.TicketID {
		t.Errorf("TicketID = %q, want %q", meta.TicketID, state.TicketID)
	}
	if meta.TotalTokensIn != 100 || meta.TotalTokensOut != 40 {
		t.Errorf("tokens = %d/%d, want 100/40", meta.TotalTokensIn, meta.TotalTokensOut)
	}

	tr, err := store.Load(state.RunID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(tr.Turns) == 0 {
		t.Error("transcript has no turns")
	}

	for _, name := range []string{
		artifact.NameAlert,
		artifact.NameExtraction,
		artifact.NameTicket,
		artifact.NameResponse,
	} {
		if !artifacts.Has(state.RunID, name) {
			t.Errorf("artifact %s not saved", name)
		}
	}

	var saved ticket.Created
	if err := artifacts.LoadJSON(state.RunID, artifact.NameTicket, &saved); err != nil {
		t.Fatalf("LoadJSON failed: %v", err)
	}
	if saved.ID != state.TicketID {
		t.Errorf("saved ticket id = %q, want %q", saved.ID, state.TicketID)
	}
}

func TestMachine_RunRejectedTranscriptStatus(t *testing.T) {
	dir := t.TempDir()
	store, err := transcript.NewFileStore(transcript.StoreConfig{BaseDir: dir})
	if err != nil {
		t.Fatal(err)
	}

	m := newTestMachine(t, &extract.Mock{}, ticket.NewMock(), WithTranscripts(store))

	msg := validMessage()
	msg.Channel = "random-channel"

	state, err := m.Run(context.Background(), msg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	meta, err := store.LoadMetadata(state.RunID)
	if err != nil {
		t.Fatalf("LoadMetadata failed: %v", err)
	}
	if meta.Status != transcript.RunStatusRejected {
		t.Errorf("Status = %q, want rejected", meta.Status)
	}
}
