// Package ticket defines the issue-tracker surface the workflow talks to:
// the Client interface for creating and fetching tickets, the shared
// request/response models, and the transient-vs-permanent error
// classification the retry loop depends on.
//
// Concrete backends live in the jira, github, and gitlab subpackages. The
// Mock in this package backs tests and examples, with failure injection
// for exercising the retry path.
package ticket
