package alertflow

import (
	"context"
	"fmt"
	"strings"
)

// checkCompletenessNode decides whether the extracted fields make a
// fileable ticket: non-empty title and description plus at least one
// of the recognized category labels.
//
// Prerequisites: state.TicketInfo must be set
// Updates: state.IsComplete
//
// Idempotent on unchanged ticket info; no external calls.
func (m *Machine) checkCompletenessNode(ctx context.Context, state WorkflowState) (WorkflowState, error) {
	if err := state.Validate(RequireTicketInfo); err != nil {
		return state, err
	}

	missing := state.TicketInfo.MissingFields(m.requiredLabels)
	state.IsComplete = len(missing) == 0

	if state.IsComplete {
		m.logger.Debug("ticket info complete", "runId", state.RunID)
		return state, nil
	}

	m.logger.Debug("ticket info incomplete",
		"runId", state.RunID,
		"missing", missing,
		"inferenceAttempts", state.InferenceAttempts,
	)

	// Out of inference budget with an incomplete ticket: either file it
	// anyway or fail the run, per policy.
	if !state.CanInfer(m.policy.MaxInferenceAttempts) && !m.policy.CreateIncomplete {
		state.SetError(fmt.Errorf("%w: missing %s", ErrTicketIncomplete, strings.Join(missing, ", ")))
	}
	return state, nil
}
