// Package task provides task-based model selection for LLM operations.
//
// Each pipeline stage that talks to a model declares a task Type, and the
// selector maps that type to a model tier: first-pass extraction and
// inference run on the default tier, escalated inference (the second
// attempt on a still-incomplete ticket) runs on the thinking tier, and
// cheap triage or summarization work runs on the fast tier.
//
// Example usage:
//
//	model := task.SelectModel(task.Escalate)
package task
