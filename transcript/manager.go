package transcript

import (
	"context"
	"time"
)

// Manager is the interface for transcript operations
type Manager interface {
	// Lifecycle
	StartRun(runID string, metadata RunMetadata) error
	RecordTurn(runID string, turn Turn) error
	RecordToolCall(runID string, tc ToolCall) error
	RecordTicket(runID, ticketID string) error
	SetNode(runID, node string) error
	AddCost(runID string, cost float64) error
	EndRun(runID string, status RunStatus) error
	EndRunWithError(runID string, err error) error

	// Retrieval
	Load(runID string) (*Transcript, error)
	LoadMetadata(runID string) (*Meta, error)
	List(filter ListFilter) ([]Meta, error)

	// Maintenance
	Delete(runID string) error
}

// ListFilter filters transcript listing
type ListFilter struct {
	Channel string
	Status  RunStatus
	After   time.Time
	Before  time.Time
	Limit   int
}

// ===========================================================================
// Context
// ===========================================================================

type serviceContextKey string

const managerKey serviceContextKey = "transcript-manager"

// WithManager returns a context carrying the transcript manager.
func WithManager(ctx context.Context, m Manager) context.Context {
	return context.WithValue(ctx, managerKey, m)
}

// ManagerFromContext retrieves the transcript manager from the context,
// or nil.
func ManagerFromContext(ctx context.Context) Manager {
	m, _ := ctx.Value(managerKey).(Manager)
	return m
}
