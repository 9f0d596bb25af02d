package alertflow

import (
	"context"
	"fmt"
	"time"

	"github.com/randalmurphal/alertflow/transcript"
)

// NodeFunc is a function that processes workflow state and returns the
// updated state.
type NodeFunc func(ctx context.Context, state WorkflowState) (WorkflowState, error)

// wrap layers the standard instrumentation around a node handler:
// transcript recording inside, timing and logging outside.
func (m *Machine) wrap(node Node, fn NodeFunc) NodeFunc {
	return m.withTiming(node, m.withTranscript(node, fn))
}

// withTranscript records one transcript turn per node execution,
// carrying the token delta the node produced and its duration.
func (m *Machine) withTranscript(node Node, fn NodeFunc) NodeFunc {
	return func(ctx context.Context, state WorkflowState) (WorkflowState, error) {
		tm := m.transcriptManager(ctx)
		if tm == nil {
			return fn(ctx, state)
		}

		beforeIn, beforeOut := state.TotalTokensIn, state.TotalTokensOut
		start := time.Now()
		result, err := fn(ctx, state)
		duration := time.Since(start)

		tm.SetNode(state.RunID, string(node))

		turn := transcript.Turn{
			Role:       "node",
			Content:    fmt.Sprintf("%s completed", node),
			TokensIn:   result.TotalTokensIn - beforeIn,
			TokensOut:  result.TotalTokensOut - beforeOut,
			DurationMs: duration.Milliseconds(),
		}
		switch {
		case err != nil:
			turn.Content = fmt.Sprintf("%s failed: %v", node, err)
		case result.HasError() && result.Error != state.Error:
			turn.Content = fmt.Sprintf("%s recorded error: %s", node, result.Error)
		}
		if rerr := tm.RecordTurn(state.RunID, turn); rerr != nil {
			m.logger.Warn("transcript turn record failed", "runId", state.RunID, "error", rerr)
		}

		return result, err
	}
}

// withTiming logs node execution with its duration.
func (m *Machine) withTiming(node Node, fn NodeFunc) NodeFunc {
	return func(ctx context.Context, state WorkflowState) (WorkflowState, error) {
		start := time.Now()
		result, err := fn(ctx, state)
		duration := time.Since(start)

		if err != nil {
			m.logger.Warn("node failed",
				"runId", state.RunID,
				"node", string(node),
				"duration", duration,
				"error", err,
			)
		} else {
			m.logger.Debug("node completed",
				"runId", state.RunID,
				"node", string(node),
				"duration", duration,
			)
		}
		return result, err
	}
}
