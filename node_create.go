package alertflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/randalmurphal/alertflow/notify"
	"github.com/randalmurphal/alertflow/ticket"
)

// createTicketNode files the ticket with the tracker.
//
// Prerequisites: state.TicketInfo must be set
// Updates: state.TicketID, state.TicketURL, state.RetryCount,
// state.PendingRetry
//
// Tracker failures route through state rather than the error return: a
// transient failure with retry budget left schedules a backoff wait and
// re-entry with the same ticket info; an exhausted budget or a
// permanent failure is terminal for the run. A per-attempt timeout
// counts as transient here, unlike everywhere else in the workflow.
func (m *Machine) createTicketNode(ctx context.Context, state WorkflowState) (WorkflowState, error) {
	if err := state.Validate(RequireTicketInfo); err != nil {
		return state, err
	}

	state.PendingRetry = false
	attempt := state.RetryCount + 1

	req := ticket.CreateRequest{
		Project:     m.project,
		Title:       state.TicketInfo.Title,
		Description: state.TicketInfo.Description,
		Labels:      state.TicketInfo.Labels,
		Type:        ticket.DefaultIssueType,
	}

	callCtx, cancel := context.WithTimeout(ctx, m.createTimeout)
	defer cancel()

	created, err := m.tickets.Create(callCtx, req)
	if err == nil {
		state.TicketID = created.ID
		state.TicketURL = created.URL
		state.TicketCreatedAt = time.Now()
		state.ClearError()

		m.logger.Info("ticket created",
			"runId", state.RunID,
			"ticketId", created.ID,
			"attempt", attempt,
		)
		if n := m.notifierFor(ctx); n != nil {
			ev := notify.NewEvent(notify.EventTicketCreated, state.RunID,
				fmt.Sprintf("Ticket %s created", created.ID))
			ev.Channel = state.Channel
			ev.Node = string(NodeCreating)
			ev.Metadata = map[string]any{
				"ticketId":  created.ID,
				"ticketUrl": created.URL,
				"attempt":   attempt,
			}
			_ = n.Notify(ctx, ev)
		}
		return state, nil
	}

	// A canceled run stops here; retrying would only burn the budget.
	if errors.Is(err, context.Canceled) {
		return state, err
	}

	transient := ticket.IsTransient(err) || errors.Is(err, context.DeadlineExceeded)
	if transient && state.CanRetryCreate(m.policy.MaxCreateRetries) {
		state.RetryCount++
		state.PendingRetry = true
		state.SetError(err)

		m.logger.Warn("ticket creation failed, will retry",
			"runId", state.RunID,
			"attempt", attempt,
			"retryCount", state.RetryCount,
			"error", err,
		)
		return state, nil
	}

	if transient {
		state.SetError(fmt.Errorf("ticket creation failed after %d attempts: %w", attempt, err))
	} else {
		state.SetError(fmt.Errorf("ticket creation failed: %w", err))
	}

	m.logger.Error("ticket creation failed",
		"runId", state.RunID,
		"attempt", attempt,
		"transient", transient,
		"error", err,
	)
	return state, nil
}

// backoffWaitNode sleeps out the exponential backoff before the next
// creation attempt. The only intentional sleep in the workflow;
// cancellation cuts it short and ends the run through formatting.
func (m *Machine) backoffWaitNode(ctx context.Context, state WorkflowState) (WorkflowState, error) {
	delay := backoffDelay(state.RetryCount, m.policy.BackoffBase, m.policy.BackoffCap)

	m.logger.Debug("backing off before retry",
		"runId", state.RunID,
		"retryCount", state.RetryCount,
		"delay", delay,
	)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return state, nil
	case <-ctx.Done():
		return state, ctx.Err()
	}
}
