package task

import (
	"github.com/randalmurphal/llmkit/model"
)

// Type represents the type of task an LLM call is performing.
// This determines which model tier is appropriate.
type Type string

const (
	// Escalated inference - the ticket is still incomplete after a first
	// inference pass, so spend reasoning budget on it
	Escalate Type = "escalate"

	// Standard pipeline stages - default tier
	Extract Type = "extract"
	Infer   Type = "infer"

	// Fast tasks - can use smaller models
	Triage    Type = "triage"
	Summarize Type = "summarize"
)

// DefaultModelMap maps task types to default models.
var DefaultModelMap = map[Type]model.ModelName{
	Escalate:  model.ModelOpus,
	Extract:   model.ModelSonnet,
	Infer:     model.ModelSonnet,
	Triage:    model.ModelHaiku,
	Summarize: model.ModelHaiku,
}

// TierForTask returns the appropriate tier for a task type.
func TierForTask(t Type) model.Tier {
	switch t {
	case Escalate:
		return model.TierThinking
	case Triage, Summarize:
		return model.TierFast
	default:
		return model.TierDefault
	}
}

// NewSelector creates a model selector configured for alert pipeline tasks.
// It uses the standard task-to-tier mapping.
func NewSelector(opts ...model.SelectorOption) *model.Selector {
	// Prepend the tier function to use Type
	allOpts := append([]model.SelectorOption{
		model.WithTierFunc(func(task any) model.Tier {
			if t, ok := task.(Type); ok {
				return TierForTask(t)
			}
			return model.TierDefault
		}),
	}, opts...)

	return model.NewSelector(allOpts...)
}

// SelectModel selects the appropriate model for a task type.
// Uses the default model map unless overridden.
func SelectModel(t Type) model.ModelName {
	if m, ok := DefaultModelMap[t]; ok {
		return m
	}
	// Fall back to tier-based selection
	switch TierForTask(t) {
	case model.TierThinking:
		return model.ModelOpus
	case model.TierFast:
		return model.ModelHaiku
	default:
		return model.ModelSonnet
	}
}
