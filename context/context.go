package context

import (
	"context"

	llm "github.com/randalmurphal/llmkit/claude"

	"github.com/randalmurphal/alertflow/artifact"
	"github.com/randalmurphal/alertflow/extract"
	"github.com/randalmurphal/alertflow/prompt"
	"github.com/randalmurphal/alertflow/ticket"
	"github.com/randalmurphal/alertflow/transcript"
)

// =============================================================================
// Context Injection Helpers
// =============================================================================
// Accessors for services that ride along on a run's context. Packages
// that define their own accessors (extract, transcript, artifact,
// prompt, notify) are delegated to, so a value injected here is visible
// to code using the package-level accessor and vice versa.

// serviceContextKey is a private type for context keys to avoid collisions
type serviceContextKey string

const (
	llmServiceKey    serviceContextKey = "alertflow.llm"
	ticketServiceKey serviceContextKey = "alertflow.tickets"
)

// WithLLM adds a completion client to the context.
func WithLLM(ctx context.Context, client llm.Client) context.Context {
	return context.WithValue(ctx, llmServiceKey, client)
}

// LLM extracts the completion client from context.
func LLM(ctx context.Context) llm.Client {
	if client, ok := ctx.Value(llmServiceKey).(llm.Client); ok {
		return client
	}
	return nil
}

// MustLLM extracts the completion client or panics.
func MustLLM(ctx context.Context) llm.Client {
	client := LLM(ctx)
	if client == nil {
		panic("alertflow/context: llm.Client not found in context")
	}
	return client
}

// WithTickets adds a ticket client to the context.
func WithTickets(ctx context.Context, client ticket.Client) context.Context {
	return context.WithValue(ctx, ticketServiceKey, client)
}

// Tickets extracts the ticket client from context.
func Tickets(ctx context.Context) ticket.Client {
	if client, ok := ctx.Value(ticketServiceKey).(ticket.Client); ok {
		return client
	}
	return nil
}

// MustTickets extracts the ticket client or panics.
func MustTickets(ctx context.Context) ticket.Client {
	client := Tickets(ctx)
	if client == nil {
		panic("alertflow/context: ticket.Client not found in context")
	}
	return client
}

// WithExtractor adds an extraction service to the context.
func WithExtractor(ctx context.Context, s extract.Service) context.Context {
	return extract.WithService(ctx, s)
}

// Extractor extracts the extraction service from context.
func Extractor(ctx context.Context) extract.Service {
	return extract.ServiceFromContext(ctx)
}

// MustExtractor extracts the extraction service or panics.
func MustExtractor(ctx context.Context) extract.Service {
	s := Extractor(ctx)
	if s == nil {
		panic("alertflow/context: extract.Service not found in context")
	}
	return s
}

// WithTranscript adds a transcript manager to the context.
func WithTranscript(ctx context.Context, mgr transcript.Manager) context.Context {
	return transcript.WithManager(ctx, mgr)
}

// Transcript extracts transcript manager from context.
func Transcript(ctx context.Context) transcript.Manager {
	return transcript.ManagerFromContext(ctx)
}

// MustTranscript extracts transcript manager or panics.
func MustTranscript(ctx context.Context) transcript.Manager {
	mgr := Transcript(ctx)
	if mgr == nil {
		panic("alertflow/context: transcript.Manager not found in context")
	}
	return mgr
}

// WithArtifact adds an artifact manager to the context.
func WithArtifact(ctx context.Context, mgr *artifact.Manager) context.Context {
	return artifact.WithManager(ctx, mgr)
}

// Artifact extracts artifact manager from context.
func Artifact(ctx context.Context) *artifact.Manager {
	return artifact.ManagerFromContext(ctx)
}

// MustArtifact extracts artifact manager or panics.
func MustArtifact(ctx context.Context) *artifact.Manager {
	mgr := Artifact(ctx)
	if mgr == nil {
		panic("alertflow/context: artifact.Manager not found in context")
	}
	return mgr
}

// WithPrompt adds a prompt loader to the context.
func WithPrompt(ctx context.Context, loader *prompt.Loader) context.Context {
	return prompt.WithLoader(ctx, loader)
}

// Prompt extracts prompt loader from context.
func Prompt(ctx context.Context) *prompt.Loader {
	return prompt.LoaderFromContext(ctx)
}

// MustPrompt extracts prompt loader or panics.
func MustPrompt(ctx context.Context) *prompt.Loader {
	loader := Prompt(ctx)
	if loader == nil {
		panic("alertflow/context: prompt.Loader not found in context")
	}
	return loader
}
