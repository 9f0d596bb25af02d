package alert

import "strings"

// maxStackLines caps how much stack trace is carried forward from an
// alert. Datadog RUM alerts can include very deep component stacks.
const maxStackLines = 20

// Parsed holds the structural components of a Datadog RUM alert message.
// Fields may be empty when the message does not carry that component.
type Parsed struct {
	IssueID    string `json:"issueId,omitempty"`
	Error      string `json:"error,omitempty"`
	StackTrace string `json:"stackTrace,omitempty"`
	Condition  string `json:"condition,omitempty"`
	Raw        string `json:"raw"`
}

// Parse splits a raw Datadog alert into its components: the @issue.id
// from the headline, the error description, the stack trace ("at "
// frames, capped at maxStackLines), and the trigger condition line.
func Parse(text string) Parsed {
	parsed := Parsed{Raw: text}

	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) == 0 {
		return parsed
	}

	// Issue ID lives in the headline after the @issue.id: tag.
	if idx := strings.Index(lines[0], "@issue.id:"); idx >= 0 {
		parsed.IssueID = strings.TrimSpace(lines[0][idx+len("@issue.id:"):])
	}

	var stack []string
	inStack := false
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "at "):
			inStack = true
			if len(stack) < maxStackLines {
				stack = append(stack, line)
			}
		case strings.Contains(line, "was >") || strings.Contains(line, "during the last"):
			parsed.Condition = line
		case !inStack && !strings.HasPrefix(line, "@slack-"):
			if parsed.Error == "" {
				parsed.Error = line
			} else if strings.Contains(line, ":") && len(stack) == 0 {
				// A later line naming the error type (e.g. "TypeError: ...")
				// is a better description than the generic headline.
				parsed.Error = line
			}
		}
	}

	parsed.StackTrace = strings.Join(stack, "\n")
	return parsed
}

// StackDepth returns the number of frames captured in the stack trace.
func (p Parsed) StackDepth() int {
	if p.StackTrace == "" {
		return 0
	}
	return len(strings.Split(p.StackTrace, "\n"))
}
