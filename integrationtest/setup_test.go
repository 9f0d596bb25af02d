package integrationtest

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	llm "github.com/randalmurphal/llmkit/claude"

	"github.com/randalmurphal/alertflow"
	"github.com/randalmurphal/alertflow/alert"
	"github.com/randalmurphal/alertflow/extract"
	"github.com/randalmurphal/alertflow/testutil"
	"github.com/randalmurphal/alertflow/ticket"
)

// quietLogger discards machine logging so test output stays readable.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fastPolicy keeps retry waits out of test time.
func fastPolicy() alertflow.Policy {
	p := alertflow.DefaultPolicy()
	p.BackoffBase = time.Millisecond
	p.BackoffCap = 4 * time.Millisecond
	return p
}

// newMachine builds a machine on a real extraction service backed by the
// given completion client.
func newMachine(t *testing.T, client llm.Client, tracker ticket.Client, opts ...alertflow.Option) *alertflow.Machine {
	t.Helper()

	svc := extract.NewLLMService(client, extract.WithLogger(quietLogger()))

	base := []alertflow.Option{
		alertflow.WithPolicy(fastPolicy()),
		alertflow.WithLogger(quietLogger()),
	}
	m, err := alertflow.NewMachine(svc, tracker, append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	return m
}

// extractionJSON builds a model reply the extraction decoder accepts.
func extractionJSON(t *testing.T, title, description string, labels []string) string {
	t.Helper()

	data, err := json.Marshal(map[string]any{
		"title":       title,
		"description": description,
		"labels":      labels,
	})
	if err != nil {
		t.Fatalf("marshal extraction reply: %v", err)
	}
	return string(data)
}

// completeExtraction is a reply that satisfies the completeness check on
// the first pass.
func completeExtraction(t *testing.T) string {
	return extractionJSON(t,
		"TypeError: undefined is not an object in checkout",
		"## Error Details\nTypeError raised in vendor.js during template execution.",
		[]string{"bug", "mobile"})
}

// datadogAlert loads the recorded Datadog RUM alert fixture.
func datadogAlert(t *testing.T) alert.Message {
	t.Helper()
	return alert.Message{
		Text:    testutil.LoadFixtureString(t, "datadog-alert.txt"),
		Channel: alert.DefaultChannel,
	}
}

// mockResponses creates a completion client that replays responses in
// order, cycling when exhausted.
func mockResponses(responses ...string) *llm.MockClient {
	return llm.NewMockClient("").WithResponses(responses...)
}
