// Package alertflow turns monitoring alerts into issue-tracker tickets.
//
// An inbound alert message runs through an explicit state machine:
// source validation, LLM-backed information extraction, a bounded
// completeness/inference repair loop, ticket creation with exponential
// backoff retry, post-creation verification, and response formatting.
// Every run terminates with a populated FinalResponse no matter which
// external dependency misbehaved along the way.
//
// The package is organized into subpackages by domain:
//
//   - alert: inbound message types, source markers, Datadog parsing
//   - extract: LLM-backed ticket field extraction and inference
//   - ticket: tracker client interface with Jira, GitHub, GitLab backends
//   - transcript: run transcript recording and viewing
//   - artifact: per-run artifact storage and lifecycle management
//   - notify: notification services (Slack, webhook)
//   - config: hierarchical configuration resolution
//   - context: service dependency injection
//   - prompt: prompt template loading
//   - task: task-based model selection
//   - http: HTTP client utilities
//   - eval: golden-case evaluation harness
//   - testutil: test utilities and fixtures
//
// # Quick Start
//
//	import (
//	    "github.com/randalmurphal/alertflow"
//	    "github.com/randalmurphal/alertflow/alert"
//	    "github.com/randalmurphal/alertflow/extract"
//	    "github.com/randalmurphal/alertflow/ticket/jira"
//	)
//
//	extractor := extract.NewLLMService(client)
//	tracker, _ := jira.NewClient(jira.Config{BaseURL: url, Email: email, APIToken: token})
//
//	machine, _ := alertflow.NewMachine(extractor, tracker)
//	state, err := machine.Run(ctx, alert.Message{
//	    Text:    rawAlert,
//	    Channel: alert.DefaultChannel,
//	})
//	fmt.Println(state.FinalResponse)
//
// See individual package documentation for detailed usage.
package alertflow
