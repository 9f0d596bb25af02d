package transcript

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Viewer displays transcripts
type Viewer struct{}

// NewViewer creates a viewer
func NewViewer() *Viewer {
	return &Viewer{}
}

// ViewFull displays the complete transcript
func (v *Viewer) ViewFull(w io.Writer, t *Transcript) error {
	v.writeHeader(w, t)

	for _, turn := range t.Turns {
		v.writeTurn(w, turn)
	}

	return nil
}

// ViewSummary displays a brief summary
func (v *Viewer) ViewSummary(w io.Writer, t *Transcript) error {
	v.writeHeader(w, t)

	fmt.Fprintln(w, "\nTurn Summary:")
	for _, turn := range t.Turns {
		preview := turn.Content
		if len(preview) > 100 {
			preview = preview[:100] + "..."
		}
		preview = strings.ReplaceAll(preview, "\n", " ")
		fmt.Fprintf(w, "  [%d] %s: %s\n", turn.ID, turn.Role, preview)
	}

	return nil
}

func (v *Viewer) writeHeader(w io.Writer, t *Transcript) {
	sep := strings.Repeat("=", 60)

	fmt.Fprintln(w, sep)
	fmt.Fprintf(w, "Run: %s\n", t.RunID)
	fmt.Fprintf(w, "Channel: %s | Status: %s\n", t.Metadata.Channel, t.Metadata.Status)

	duration := t.Duration()
	fmt.Fprintf(w, "Started: %s | Duration: %s\n",
		t.Metadata.StartedAt.Format("2006-01-02 15:04:05"),
		duration.Round(time.Second))

	fmt.Fprintf(w, "Tokens: %d in / %d out | Cost: $%.2f\n",
		t.Metadata.TotalTokensIn,
		t.Metadata.TotalTokensOut,
		t.Metadata.TotalCost)

	if t.Metadata.TicketID != "" {
		fmt.Fprintf(w, "Ticket: %s\n", t.Metadata.TicketID)
	}
	if t.Metadata.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", t.Metadata.Error)
	}

	fmt.Fprintln(w, sep)
}

func (v *Viewer) writeTurn(w io.Writer, turn Turn) {
	fmt.Fprintln(w)

	// Turn header
	header := fmt.Sprintf("[%d] %s (%s)",
		turn.ID,
		strings.ToUpper(turn.Role),
		turn.Timestamp.Format("15:04:05"))

	if turn.TokensIn > 0 {
		header += fmt.Sprintf(" [%d tokens in]", turn.TokensIn)
	}
	if turn.TokensOut > 0 {
		header += fmt.Sprintf(" [%d tokens out]", turn.TokensOut)
	}
	if turn.DurationMs > 0 {
		header += fmt.Sprintf(" [%dms]", turn.DurationMs)
	}

	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", 60))

	// Content
	fmt.Fprintln(w, turn.Content)

	// Tool calls
	for _, tc := range turn.ToolCalls {
		fmt.Fprintf(w, "\n  Tool: %s\n", tc.Name)
		if tc.Input != nil {
			inputJSON, _ := json.MarshalIndent(tc.Input, "     ", "  ")
			fmt.Fprintf(w, "     Input: %s\n", string(inputJSON))
		}
		if tc.Output != "" {
			output := tc.Output
			if len(output) > 200 {
				output = output[:200] + "..."
			}
			fmt.Fprintf(w, "     Output: %s\n", output)
		}
		if tc.Error != "" {
			fmt.Fprintf(w, "     Error: %s\n", tc.Error)
		}
	}
}

// ExportMarkdown exports to markdown format
func (v *Viewer) ExportMarkdown(w io.Writer, t *Transcript) error {
	fmt.Fprintf(w, "# Transcript: %s\n\n", t.RunID)

	// Metadata
	fmt.Fprintf(w, "## Metadata\n\n")
	fmt.Fprintf(w, "| Field | Value |\n")
	fmt.Fprintf(w, "|-------|-------|\n")
	fmt.Fprintf(w, "| Channel | %s |\n", t.Metadata.Channel)
	fmt.Fprintf(w, "| Status | %s |\n", t.Metadata.Status)
	fmt.Fprintf(w, "| Started | %s |\n", t.Metadata.StartedAt.Format(time.RFC3339))
	if !t.Metadata.EndedAt.IsZero() {
		fmt.Fprintf(w, "| Ended | %s |\n", t.Metadata.EndedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "| Duration | %s |\n", t.Duration().Round(time.Second))
	fmt.Fprintf(w, "| Tokens In | %d |\n", t.Metadata.TotalTokensIn)
	fmt.Fprintf(w, "| Tokens Out | %d |\n", t.Metadata.TotalTokensOut)
	fmt.Fprintf(w, "| Cost | $%.2f |\n", t.Metadata.TotalCost)
	if t.Metadata.TicketID != "" {
		fmt.Fprintf(w, "| Ticket | %s |\n", t.Metadata.TicketID)
	}
	if t.Metadata.Error != "" {
		fmt.Fprintf(w, "| Error | %s |\n", t.Metadata.Error)
	}
	fmt.Fprintln(w)

	// Steps
	fmt.Fprintf(w, "## Steps\n\n")

	for _, turn := range t.Turns {
		fmt.Fprintf(w, "### %s (Turn %d)\n\n", title(turn.Role), turn.ID)

		if turn.TokensIn > 0 {
			fmt.Fprintf(w, "*%d tokens in*\n\n", turn.TokensIn)
		}
		if turn.TokensOut > 0 {
			fmt.Fprintf(w, "*%d tokens out*\n\n", turn.TokensOut)
		}

		fmt.Fprintf(w, "%s\n\n", turn.Content)

		for _, tc := range turn.ToolCalls {
			fmt.Fprintf(w, "#### Tool Call: `%s`\n\n", tc.Name)
			if tc.Input != nil {
				inputJSON, _ := json.MarshalIndent(tc.Input, "", "  ")
				fmt.Fprintf(w, "**Input:**\n```json\n%s\n```\n\n", string(inputJSON))
			}
			if tc.Output != "" {
				fmt.Fprintf(w, "**Output:**\n```\n%s\n```\n\n", tc.Output)
			}
			if tc.Error != "" {
				fmt.Fprintf(w, "**Error:** %s\n\n", tc.Error)
			}
		}
	}

	return nil
}

// ExportJSON exports to JSON format
func (v *Viewer) ExportJSON(w io.Writer, t *Transcript) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(t)
}

// FormatMetaList formats a list of metadata for display
func (v *Viewer) FormatMetaList(w io.Writer, metas []Meta) error {
	if len(metas) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return nil
	}

	// Header
	fmt.Fprintf(w, "%-30s %-12s %-17s %10s %8s %-12s\n",
		"RUN ID", "STATUS", "STARTED", "TOKENS", "COST", "TICKET")
	fmt.Fprintln(w, strings.Repeat("-", 95))

	for _, m := range metas {
		tokens := fmt.Sprintf("%d/%d", m.TotalTokensIn, m.TotalTokensOut)
		cost := fmt.Sprintf("$%.2f", m.TotalCost)

		fmt.Fprintf(w, "%-30s %-12s %-17s %10s %8s %-12s\n",
			truncate(m.RunID, 30),
			m.Status,
			m.StartedAt.Format("2006-01-02 15:04"),
			tokens,
			cost,
			m.TicketID)
	}

	fmt.Fprintf(w, "\nTotal: %d runs\n", len(metas))
	return nil
}

// title capitalizes the first letter
func title(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// truncate shortens a string to max length
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
