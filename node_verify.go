package alertflow

import (
	"context"

	"github.com/randalmurphal/alertflow/notify"
	"github.com/randalmurphal/alertflow/ticket"
)

// verifyTicketNode confirms the created ticket is retrievable.
//
// Prerequisites: state.TicketID must be set
//
// A failure here is an inconsistency report, not a retry trigger: the
// tracker already said the ticket exists, so the run still counts as a
// success and the discrepancy is carried into the final response.
func (m *Machine) verifyTicketNode(ctx context.Context, state WorkflowState) (WorkflowState, error) {
	if err := state.Validate(RequireTicketID); err != nil {
		return state, err
	}

	callCtx, cancel := context.WithTimeout(ctx, m.verifyTimeout)
	defer cancel()

	got, err := m.tickets.Get(callCtx, state.TicketID)
	if err == nil {
		m.logger.Debug("ticket verified", "runId", state.RunID, "ticketId", got.ID)
		return state, nil
	}

	verr := &VerificationError{TicketID: state.TicketID, Err: err}
	if ticket.IsNotFound(err) {
		verr.Err = ticket.ErrNotFound
	}
	state.SetError(verr)

	m.logger.Warn("ticket verification failed",
		"runId", state.RunID,
		"ticketId", state.TicketID,
		"error", err,
	)
	if n := m.notifierFor(ctx); n != nil {
		ev := notify.NewEvent(notify.EventVerifyFailed, state.RunID, verr.Error())
		ev.Severity = notify.SeverityWarning
		ev.Channel = state.Channel
		ev.Node = string(NodeVerifying)
		ev.Metadata = map[string]any{"ticketId": state.TicketID}
		_ = n.Notify(ctx, notify.WithAdvice(ev))
	}
	return state, nil
}
