package workflow

import (
	"errors"
	"fmt"
)

// Sentinel errors the store implementations translate low-level failures
// into, so the engine and the HTTP layer can match without importing the
// driver.
var (
	// ErrNotFound means the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a store uniqueness guard rejected the write
	// (duplicate round number, second decision on a round).
	ErrConflict = errors.New("conflict")
	// ErrForbidden means the actor's role does not permit the command.
	ErrForbidden = errors.New("forbidden")
)

// InvalidStateTransitionError reports a command attempted from a state
// where it is not legal.
type InvalidStateTransitionError struct {
	SubmissionID int
	Action       Action
	Status       Status
	StageID      int
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: %s not allowed for submission %d (status=%s, stage=%d)",
		e.Action, e.SubmissionID, e.Status, e.StageID)
}

// DuplicateAssignmentError reports a reviewer already assigned to the round.
type DuplicateAssignmentError struct {
	RoundID    int
	ReviewerID int
}

func (e *DuplicateAssignmentError) Error() string {
	return fmt.Sprintf("reviewer %d is already assigned to round %d", e.ReviewerID, e.RoundID)
}

// NoActiveRoundError reports an explicitly targeted round that does not
// exist for the submission.
type NoActiveRoundError struct {
	SubmissionID int
	RoundID      int
}

func (e *NoActiveRoundError) Error() string {
	return fmt.Sprintf("submission %d has no review round %d", e.SubmissionID, e.RoundID)
}

// ValidationError reports malformed input caught before any store call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StoreUnavailableError wraps a transient backend failure. The engine
// defines no retry logic; callers decide whether the command is safe to
// retry (it is, except the create-round-if-absent path, which must be
// re-checked first).
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	return &StoreUnavailableError{Op: op, Err: err}
}
