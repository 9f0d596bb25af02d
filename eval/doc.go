// Package eval scores the alert-to-ticket pipeline against a golden set
// of labeled messages.
//
// Core types:
//   - Case: one labeled input message with expected outcomes
//   - Runner: feeds cases through a pipeline and scores the results
//   - Report: aggregate pass rate plus per-check statistics
//
// The golden set covers valid Datadog alerts, messages that must be
// rejected, and edge cases (minimal stack traces, very long traces,
// special characters, recovery notices). Checks are outcome-level: they
// inspect the terminal workflow state, not intermediate node behavior,
// so the same set scores any extraction service or tracker backend.
package eval
