package alertflow

import (
	"errors"
	"fmt"
)

// Machine construction errors.
var (
	// ErrNoExtractor indicates no extraction service was supplied.
	ErrNoExtractor = errors.New("no extraction service configured")

	// ErrNoTicketClient indicates no ticket client was supplied.
	ErrNoTicketClient = errors.New("no ticket client configured")
)

// Workflow errors.
var (
	// ErrTicketIncomplete indicates required ticket fields were still
	// missing after the inference budget was spent and policy forbids
	// filing partial tickets.
	ErrTicketIncomplete = errors.New("ticket info incomplete after inference")

	// ErrStepLimit indicates the machine did not reach the end node
	// within the step bound. Hitting it means a transition bug, not
	// bad input.
	ErrStepLimit = errors.New("workflow exceeded step limit")
)

// ExtractionError wraps a failure from the extraction service.
type ExtractionError struct {
	Op  string // "extract" or "infer"
	Err error  // Underlying service error
}

func (e *ExtractionError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// VerificationError records a post-creation inconsistency: the tracker
// reported the ticket created but it could not be fetched back. The
// workflow reports it in the final response without re-creating.
type VerificationError struct {
	TicketID string
	Err      error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("Ticket verification failed - %v", e.Err)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}
