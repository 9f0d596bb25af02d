package notify

import "strings"

// FailureClass buckets terminal failures by what an operator should do
// about them.
type FailureClass string

// Failure classes, roughly ordered from "fix the deployment" to "fix the
// alert".
const (
	FailureAuth       FailureClass = "auth"
	FailureConnection FailureClass = "connection"
	FailureRateLimit  FailureClass = "rate_limit"
	FailureIncomplete FailureClass = "incomplete"
	FailureExtraction FailureClass = "extraction"
	FailureUnknown    FailureClass = "unknown"
)

// ClassifyFailure buckets a failure message. Failures arrive as rendered
// strings by the time they reach notification, so classification is
// heuristic: sentinel text first, transport idioms second.
func ClassifyFailure(message string) FailureClass {
	msg := strings.ToLower(message)

	switch {
	case containsAny(msg, "unauthorized", "unauthenticated", "authentication failed", "401"):
		return FailureAuth
	case containsAny(msg, "permission denied", "forbidden", "403"):
		return FailureAuth
	case containsAny(msg, "rate limit", "429"):
		return FailureRateLimit
	case containsAny(msg,
		"connection refused", "no such host", "network is unreachable",
		"dial tcp", "timeout", "deadline exceeded",
		"temporarily unavailable", "server error"):
		return FailureConnection
	case strings.Contains(msg, "incomplete"):
		return FailureIncomplete
	case strings.HasPrefix(msg, "extract:") || strings.HasPrefix(msg, "infer:"):
		return FailureExtraction
	default:
		return FailureUnknown
	}
}

// AdviceFor returns an actionable suggestion for a failure class, or ""
// when there is nothing specific to say.
func AdviceFor(class FailureClass) string {
	switch class {
	case FailureAuth:
		return "Check the tracker credentials: the API token may have expired or lost project access."
	case FailureConnection:
		return "The ticket system looks unreachable. If this outlasts the retry window, check the tracker status page and file the ticket manually."
	case FailureRateLimit:
		return "The tracker is rate limiting this integration. Reduce alert volume or raise the API limit."
	case FailureIncomplete:
		return "Required ticket fields could not be extracted or inferred. File the ticket manually from the alert text."
	case FailureExtraction:
		return "The extraction model failed. Check model availability and the prompt templates."
	default:
		return ""
	}
}

// WithAdvice attaches a failure class and an actionable suggestion to a
// failure event's metadata. Non-failure events pass through unchanged.
func WithAdvice(ev Event) Event {
	if ev.Type != EventRunFailed && ev.Type != EventVerifyFailed {
		return ev
	}

	class := ClassifyFailure(ev.Message)
	if ev.Metadata == nil {
		ev.Metadata = map[string]any{}
	}
	ev.Metadata["failureClass"] = string(class)
	if advice := AdviceFor(class); advice != "" {
		ev.Metadata["suggestion"] = advice
	}
	return ev
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
