package alertflow

import (
	"context"
	"fmt"
	"strings"
)

// formatResponseNode renders the terminal outcome as user-facing text.
//
// Updates: state.FinalResponse - the last mutation of any run
//
// Pure over the terminal state. Every run exits through this node, so
// FinalResponse is never empty.
func (m *Machine) formatResponseNode(ctx context.Context, state WorkflowState) (WorkflowState, error) {
	state.FinalResponse = m.formatResponse(state)
	return state, nil
}

// failedNode is the funnel for terminal failures. The error is already
// recorded in state by the time control reaches it.
func (m *Machine) failedNode(ctx context.Context, state WorkflowState) (WorkflowState, error) {
	m.logger.Warn("workflow failed",
		"runId", state.RunID,
		"lastNode", string(state.LastNode),
		"error", state.Error,
	)
	return state, nil
}

// formatResponse builds the final text for each terminal shape:
// rejection, success (possibly with a verification warning), failure,
// and the catch-all for a run that produced neither ticket nor error.
func (m *Machine) formatResponse(state WorkflowState) string {
	switch {
	case !state.IsValidSource:
		return fmt.Sprintf(
			"Message rejected: Source '%s' from channel '%s' is not valid. Only Datadog messages from '%s' channel are processed.",
			state.Source, state.Channel, m.channel)

	case state.TicketID != "":
		var b strings.Builder
		b.WriteString("JIRA ticket created successfully!\n\n")
		fmt.Fprintf(&b, "Ticket: %s\n", state.TicketID)
		fmt.Fprintf(&b, "URL: %s\n", state.TicketURL)
		if state.TicketInfo != nil {
			fmt.Fprintf(&b, "Title: %s\n", state.TicketInfo.Title)
			fmt.Fprintf(&b, "Labels: %s", strings.Join(state.TicketInfo.Labels, ", "))
		}
		if state.HasError() {
			fmt.Fprintf(&b, "\n\nWarning: %s", state.Error)
		}
		return b.String()

	case state.HasError():
		var b strings.Builder
		fmt.Fprintf(&b, "Failed to create ticket: %s", state.Error)
		if state.LastNode != "" {
			fmt.Fprintf(&b, "\n\nLast step: %s", state.LastNode)
		}
		return b.String()

	default:
		return "Unknown error occurred during ticket creation."
	}
}
