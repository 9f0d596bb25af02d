package alertflow

import (
	"context"
)

// extractInfoNode pulls ticket fields out of the raw message.
//
// Prerequisites: state.RawMessage set, source validated
// Updates: state.TicketInfo, token counters
//
// Extraction runs exactly once per run and a service failure here is
// fatal: partial results are repaired through the inference loop, never
// by re-extracting.
func (m *Machine) extractInfoNode(ctx context.Context, state WorkflowState) (WorkflowState, error) {
	if err := state.Validate(RequireMessage, RequireValidSource); err != nil {
		return state, err
	}

	callCtx, cancel := context.WithTimeout(ctx, m.extractTimeout)
	defer cancel()

	result, err := m.extractor.Extract(callCtx, state.RawMessage)
	if err != nil {
		return state, &ExtractionError{Op: "extract", Err: err}
	}

	info := TicketInfo{
		Title:       result.Title,
		Description: result.Description,
		Labels:      result.Labels,
	}
	state = state.WithTicketInfo(&info)
	state.ExtractTokensIn = result.TokensIn
	state.ExtractTokensOut = result.TokensOut
	state.AddTokens(result.TokensIn, result.TokensOut)

	m.logger.Debug("information extracted",
		"runId", state.RunID,
		"title", info.Title,
		"labels", info.Labels,
	)
	return state, nil
}
