// Package context provides dependency injection for workflow services.
//
// Core types:
//   - Services: Collection of all alertflow services for injection
//   - Config: Settings for building Services with common defaults
//
// Context injection functions:
//   - WithLLM/LLM: Completion client injection (flowgraph llm.Client)
//   - WithExtractor/Extractor: Extraction service injection
//   - WithTickets/Tickets: Ticket client injection
//   - WithTranscript/Transcript: Transcript manager injection
//   - WithArtifact/Artifact: Artifact manager injection
//   - WithPrompt/Prompt: Prompt loader injection
//
// Accessors delegate to the owning package where one exists, so values
// injected here are also visible through extract.ServiceFromContext,
// transcript.ManagerFromContext, and the other package-level accessors.
//
// Example usage:
//
//	services, err := context.NewServices(context.Config{
//	    DataDir: ".alertflow",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	services.Tickets = jiraClient
//	services.Notifier = slackNotifier
//	ctx := services.InjectAll(ctx)
//
//	// Later, retrieve services
//	extractor := context.Extractor(ctx)
//	tickets := context.Tickets(ctx)
package context
