package alertflow

import (
	"context"

	"github.com/randalmurphal/alertflow/extract"
)

// inferMissingNode asks the extraction service to fill fields the
// first pass left empty.
//
// Prerequisites: state.RawMessage and state.TicketInfo must be set
// Updates: state.TicketInfo, state.InferenceAttempts, token counters
//
// The attempt counter moves whether or not the call succeeds - a failed
// attempt is a spent attempt - and a service failure leaves the ticket
// info untouched instead of failing the run; the completeness check
// re-enters next and the attempt bound guarantees the loop ends.
// Inferred values only ever land in fields that are still empty.
func (m *Machine) inferMissingNode(ctx context.Context, state WorkflowState) (WorkflowState, error) {
	if err := state.Validate(RequireMessage, RequireTicketInfo); err != nil {
		return state, err
	}

	missing := state.TicketInfo.MissingFields(m.requiredLabels)
	attempt := state.InferenceAttempts + 1
	current := extract.Result{
		Title:       state.TicketInfo.Title,
		Description: state.TicketInfo.Description,
		Labels:      state.TicketInfo.Labels,
	}

	callCtx, cancel := context.WithTimeout(ctx, m.extractTimeout)
	defer cancel()

	result, err := m.extractor.InferMissing(callCtx, state.RawMessage, current, missing, attempt)
	state.InferenceAttempts++

	if err != nil {
		m.logger.Warn("inference attempt failed",
			"runId", state.RunID,
			"attempt", attempt,
			"error", &ExtractionError{Op: "infer", Err: err},
		)
		return state, nil
	}

	merged := state.TicketInfo.Merge(TicketInfo{
		Title:       result.Title,
		Description: result.Description,
		Labels:      result.Labels,
	})
	state.TicketInfo = &merged
	state.AddTokens(result.TokensIn, result.TokensOut)

	m.logger.Debug("inference merged",
		"runId", state.RunID,
		"attempt", attempt,
		"requested", missing,
	)
	return state, nil
}
