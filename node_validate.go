package alertflow

import (
	"context"

	"github.com/randalmurphal/alertflow/alert"
)

// validateSourceNode classifies the inbound message.
//
// Prerequisites: state.RawMessage and state.Channel must be set
// Updates: state.Source, state.IsValidSource
//
// A message is valid when it arrives on the configured monitoring
// channel and carries at least one recognized source marker. Pure
// function of the inputs and config; no external calls.
func (m *Machine) validateSourceNode(ctx context.Context, state WorkflowState) (WorkflowState, error) {
	if err := state.Validate(RequireMessage, RequireChannel); err != nil {
		return state, err
	}

	source := alert.DetectSource(state.RawMessage, m.markers)
	valid := source == alert.SourceDatadog && state.Channel == m.channel
	state = state.WithSource(source, valid)

	m.logger.Debug("source validated",
		"runId", state.RunID,
		"source", string(source),
		"channel", state.Channel,
		"valid", valid,
	)
	return state, nil
}

// rejectedNode marks the early-exit path for invalid sources. The
// rejection text itself comes from the formatter.
func (m *Machine) rejectedNode(ctx context.Context, state WorkflowState) (WorkflowState, error) {
	m.logger.Info("message rejected",
		"runId", state.RunID,
		"source", string(state.Source),
		"channel", state.Channel,
	)
	return state, nil
}
