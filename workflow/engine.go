package workflow

import (
	"context"
	"errors"
	"time"

	"journal-api/models"
)

// Actor is the acting identity, resolved by the caller. Commands never read
// ambient auth context.
type Actor struct {
	UserID int
	Role   Role
}

// StatusPatch is the partial update applied to a submission when a command
// moves it. Stores also append the matching status-history row.
type StatusPatch struct {
	Status       Status
	StageID      int
	CurrentRound *int
	ChangedBy    int
	Reason       string
}

// SubmissionStore loads and patches submissions.
type SubmissionStore interface {
	Get(ctx context.Context, id int) (*models.Submission, error)
	UpdateStatus(ctx context.Context, id int, patch StatusPatch) error
}

// ReviewStore owns review rounds and reviewer assignments. CreateRound must
// enforce at-most-once semantics per (submission, round) and surface a
// violation as ErrConflict.
type ReviewStore interface {
	ListRounds(ctx context.Context, submissionID int) ([]models.ReviewRound, error)
	CreateRound(ctx context.Context, submissionID, round int) (*models.ReviewRound, error)
	ListAssignments(ctx context.Context, roundID int) ([]models.ReviewAssignment, error)
	CreateAssignment(ctx context.Context, a *models.ReviewAssignment) error
	ListReviews(ctx context.Context, submissionID int) ([]models.ReviewAssignment, error)
}

// DecisionStore appends editorial decisions. Append must reject a second
// decision for the same round with ErrConflict.
type DecisionStore interface {
	Append(ctx context.Context, d *models.EditorialDecision) error
	Latest(ctx context.Context, submissionID int) (*models.EditorialDecision, error)
}

// Store bundles the collaborators behind one transactional boundary.
// InTransaction runs fn against a store view whose writes become visible
// atomically; returning an error discards them all.
type Store interface {
	Submissions() SubmissionStore
	Reviews() ReviewStore
	Decisions() DecisionStore
	InTransaction(ctx context.Context, fn func(Store) error) error
}

// Notifier receives fire-and-forget workflow events after the underlying
// write has committed. Implementations must never block or fail the command.
type Notifier interface {
	SentToReview(sub *models.Submission, round *models.ReviewRound)
	ReviewerAssigned(sub *models.Submission, a *models.ReviewAssignment)
	DecisionRecorded(sub *models.Submission, d *models.EditorialDecision, newStatus Status)
	Resubmitted(sub *models.Submission, round *models.ReviewRound)
}

// Engine owns the submission lifecycle: legal transitions, the relationship
// between a submission and its review rounds, and decision recording.
type Engine struct {
	store    Store
	notifier Notifier
	now      func() time.Time
}

// NewEngine builds an engine over the given store. notifier may be nil.
func NewEngine(store Store, notifier Notifier) *Engine {
	return &Engine{store: store, notifier: notifier, now: time.Now}
}

// Outcome is the minimal authoritative delta a command returns, so callers
// can route the user onward without refetching the whole submission.
type Outcome struct {
	SubmissionID int    `json:"submission_id"`
	Status       Status `json:"status"`
	StageID      int    `json:"stage_id"`
	RoundID      int    `json:"round_id,omitempty"`
	Round        int    `json:"round,omitempty"`
	AssignmentID int    `json:"assignment_id,omitempty"`
	DecisionID   int    `json:"decision_id,omitempty"`
}

// SendToReview opens the first review round for a submission. Calling it
// twice is rejected by the precondition; a concurrent double call loses the
// race on the (submission, round) uniqueness guard.
func (e *Engine) SendToReview(ctx context.Context, actor Actor, submissionID int) (*Outcome, error) {
	if actor.Role != RoleEditor {
		return nil, ErrForbidden
	}

	var (
		out   *Outcome
		sub   *models.Submission
		round *models.ReviewRound
	)
	err := e.store.InTransaction(ctx, func(s Store) error {
		var err error
		sub, round, out, err = e.sendToReview(ctx, s, actor, submissionID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if e.notifier != nil {
		e.notifier.SentToReview(sub, round)
	}
	return out, nil
}

// sendToReview holds the shared create-round path; it must run inside a
// transaction so the compound assign-reviewer operation stays atomic.
func (e *Engine) sendToReview(ctx context.Context, s Store, actor Actor, submissionID int) (*models.Submission, *models.ReviewRound, *Outcome, error) {
	sub, err := s.Submissions().Get(ctx, submissionID)
	if err != nil {
		return nil, nil, nil, storeErr("submission get", err)
	}
	rounds, err := s.Reviews().ListRounds(ctx, submissionID)
	if err != nil {
		return nil, nil, nil, storeErr("round list", err)
	}

	status := EffectiveStatus(sub, rounds)
	stage := EffectiveStageID(sub, rounds)
	if !canSendToReview(status, stage, rounds) {
		return nil, nil, nil, &InvalidStateTransitionError{
			SubmissionID: submissionID,
			Action:       ActionSendToReview,
			Status:       status,
			StageID:      stage,
		}
	}

	next := CurrentRound(sub, rounds) + 1
	round, err := s.Reviews().CreateRound(ctx, submissionID, next)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			// Another editor won the race; the transition already happened.
			return nil, nil, nil, &InvalidStateTransitionError{
				SubmissionID: submissionID,
				Action:       ActionSendToReview,
				Status:       StatusUnderReview,
				StageID:      StageReview,
			}
		}
		return nil, nil, nil, storeErr("round create", err)
	}

	patch := StatusPatch{
		Status:       StatusUnderReview,
		StageID:      StageReview,
		CurrentRound: &next,
		ChangedBy:    actor.UserID,
		Reason:       "sent to review",
	}
	if err := s.Submissions().UpdateStatus(ctx, submissionID, patch); err != nil {
		return nil, nil, nil, storeErr("submission update", err)
	}

	out := &Outcome{
		SubmissionID: submissionID,
		Status:       StatusUnderReview,
		StageID:      StageReview,
		RoundID:      round.RoundID,
		Round:        round.Round,
	}
	return sub, round, out, nil
}

// AssignReviewer adds a reviewer to a round. When no round exists yet the
// operation first performs SendToReview, atomically from the caller's point
// of view. roundID nil targets the latest round.
func (e *Engine) AssignReviewer(ctx context.Context, actor Actor, submissionID, reviewerID int, roundID *int, dueDate time.Time) (*Outcome, error) {
	if actor.Role != RoleEditor {
		return nil, ErrForbidden
	}
	if reviewerID <= 0 {
		return nil, &ValidationError{Field: "reviewer_id", Reason: "reviewer selection is required"}
	}
	if dueDate.IsZero() {
		return nil, &ValidationError{Field: "due_date", Reason: "due date is required"}
	}

	var (
		out        *Outcome
		sub        *models.Submission
		assignment *models.ReviewAssignment
		newRound   *models.ReviewRound
	)
	err := e.store.InTransaction(ctx, func(s Store) error {
		var err error
		sub, err = s.Submissions().Get(ctx, submissionID)
		if err != nil {
			return storeErr("submission get", err)
		}
		rounds, err := s.Reviews().ListRounds(ctx, submissionID)
		if err != nil {
			return storeErr("round list", err)
		}

		// Mirrors AllowedActions: reviewers join open review only. In
		// revision_required the latest round is already decided, so new
		// assignments wait for the resubmission round.
		status := EffectiveStatus(sub, rounds)
		if status != StatusSubmitted && status != StatusUnderReview {
			return &InvalidStateTransitionError{
				SubmissionID: submissionID,
				Action:       ActionAssignReviewer,
				Status:       status,
				StageID:      EffectiveStageID(sub, rounds),
			}
		}

		var target *models.ReviewRound
		switch {
		case roundID != nil:
			for i := range rounds {
				if rounds[i].RoundID == *roundID {
					target = &rounds[i]
					break
				}
			}
			if target == nil {
				return &NoActiveRoundError{SubmissionID: submissionID, RoundID: *roundID}
			}
		case len(rounds) == 0:
			// Compound path: open round 1 first.
			_, created, _, err := e.sendToReview(ctx, s, actor, submissionID)
			if err != nil {
				return err
			}
			target = created
			newRound = created
		default:
			target = LatestRound(rounds)
		}

		existing, err := s.Reviews().ListAssignments(ctx, target.RoundID)
		if err != nil {
			return storeErr("assignment list", err)
		}
		for _, a := range existing {
			if a.ReviewerID == reviewerID && !a.Cancelled {
				return &DuplicateAssignmentError{RoundID: target.RoundID, ReviewerID: reviewerID}
			}
		}

		assignment = &models.ReviewAssignment{
			RoundID:      target.RoundID,
			ReviewerID:   reviewerID,
			DateAssigned: e.now(),
			DateDue:      dueDate,
		}
		if err := s.Reviews().CreateAssignment(ctx, assignment); err != nil {
			return storeErr("assignment create", err)
		}

		out = &Outcome{
			SubmissionID: submissionID,
			Status:       StatusUnderReview,
			StageID:      StageReview,
			RoundID:      target.RoundID,
			Round:        target.Round,
			AssignmentID: assignment.AssignmentID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if e.notifier != nil {
		if newRound != nil {
			e.notifier.SentToReview(sub, newRound)
		}
		e.notifier.ReviewerAssigned(sub, assignment)
	}
	return out, nil
}

// RecordDecision appends an editorial decision on the latest round and maps
// it to the new submission status. The decision write and the status patch
// commit together; notifications fire only after the commit.
func (e *Engine) RecordDecision(ctx context.Context, actor Actor, submissionID int, decision Decision, comments string) (*Outcome, error) {
	if actor.Role != RoleEditor {
		return nil, ErrForbidden
	}
	if !ValidDecision(decision) {
		return nil, &ValidationError{Field: "decision", Reason: "must be accept, revisions or decline"}
	}

	var (
		out *Outcome
		sub *models.Submission
		rec *models.EditorialDecision
	)
	err := e.store.InTransaction(ctx, func(s Store) error {
		var err error
		sub, err = s.Submissions().Get(ctx, submissionID)
		if err != nil {
			return storeErr("submission get", err)
		}
		rounds, err := s.Reviews().ListRounds(ctx, submissionID)
		if err != nil {
			return storeErr("round list", err)
		}

		status := EffectiveStatus(sub, rounds)
		stage := EffectiveStageID(sub, rounds)
		if stage != StageReview || len(rounds) == 0 {
			return &InvalidStateTransitionError{
				SubmissionID: submissionID,
				Action:       ActionRecordDecision,
				Status:       status,
				StageID:      stage,
			}
		}

		newStatus := StatusForDecision(decision)
		if !CanTransition(status, newStatus) {
			return &InvalidStateTransitionError{
				SubmissionID: submissionID,
				Action:       ActionRecordDecision,
				Status:       status,
				StageID:      stage,
			}
		}

		latest := LatestRound(rounds)
		rec = &models.EditorialDecision{
			SubmissionID: submissionID,
			RoundID:      latest.RoundID,
			Decision:     string(decision),
			DecidedBy:    actor.UserID,
			DateDecided:  e.now(),
		}
		if comments != "" {
			rec.Comments = &comments
		}
		if err := s.Decisions().Append(ctx, rec); err != nil {
			if errors.Is(err, ErrConflict) {
				// The round was already closed by another decision.
				return &InvalidStateTransitionError{
					SubmissionID: submissionID,
					Action:       ActionRecordDecision,
					Status:       status,
					StageID:      stage,
				}
			}
			return storeErr("decision append", err)
		}

		patch := StatusPatch{
			Status:    newStatus,
			StageID:   StageForStatus(newStatus),
			ChangedBy: actor.UserID,
			Reason:    "decision: " + string(decision),
		}
		if err := s.Submissions().UpdateStatus(ctx, submissionID, patch); err != nil {
			return storeErr("submission update", err)
		}

		out = &Outcome{
			SubmissionID: submissionID,
			Status:       newStatus,
			StageID:      patch.StageID,
			RoundID:      latest.RoundID,
			Round:        latest.Round,
			DecisionID:   rec.DecisionID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if e.notifier != nil {
		e.notifier.DecisionRecorded(sub, rec, out.Status)
	}
	return out, nil
}

// Resubmit moves a revision-required submission back into review. Each
// resubmission opens a fresh round (round N+1) so every revision cycle has
// its own auditable record; the old round is never reopened.
func (e *Engine) Resubmit(ctx context.Context, actor Actor, submissionID int) (*Outcome, error) {
	if actor.Role != RoleSubmitter {
		return nil, ErrForbidden
	}

	var (
		out   *Outcome
		sub   *models.Submission
		round *models.ReviewRound
	)
	err := e.store.InTransaction(ctx, func(s Store) error {
		var err error
		sub, err = s.Submissions().Get(ctx, submissionID)
		if err != nil {
			return storeErr("submission get", err)
		}
		if sub.SubmitterID != actor.UserID {
			return ErrForbidden
		}
		rounds, err := s.Reviews().ListRounds(ctx, submissionID)
		if err != nil {
			return storeErr("round list", err)
		}

		status := EffectiveStatus(sub, rounds)
		if status != StatusRevisionRequired {
			return &InvalidStateTransitionError{
				SubmissionID: submissionID,
				Action:       ActionResubmit,
				Status:       status,
				StageID:      EffectiveStageID(sub, rounds),
			}
		}

		next := CurrentRound(sub, rounds) + 1
		round, err = s.Reviews().CreateRound(ctx, submissionID, next)
		if err != nil {
			if errors.Is(err, ErrConflict) {
				return &InvalidStateTransitionError{
					SubmissionID: submissionID,
					Action:       ActionResubmit,
					Status:       StatusUnderReview,
					StageID:      StageReview,
				}
			}
			return storeErr("round create", err)
		}

		patch := StatusPatch{
			Status:       StatusUnderReview,
			StageID:      StageReview,
			CurrentRound: &next,
			ChangedBy:    actor.UserID,
			Reason:       "revisions resubmitted",
		}
		if err := s.Submissions().UpdateStatus(ctx, submissionID, patch); err != nil {
			return storeErr("submission update", err)
		}

		out = &Outcome{
			SubmissionID: submissionID,
			Status:       StatusUnderReview,
			StageID:      StageReview,
			RoundID:      round.RoundID,
			Round:        round.Round,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if e.notifier != nil {
		e.notifier.Resubmitted(sub, round)
	}
	return out, nil
}

// Publish marks an accepted submission published, the hand-off point to the
// external production pipeline.
func (e *Engine) Publish(ctx context.Context, actor Actor, submissionID int) (*Outcome, error) {
	if actor.Role != RoleEditor {
		return nil, ErrForbidden
	}

	var out *Outcome
	err := e.store.InTransaction(ctx, func(s Store) error {
		sub, err := s.Submissions().Get(ctx, submissionID)
		if err != nil {
			return storeErr("submission get", err)
		}
		rounds, err := s.Reviews().ListRounds(ctx, submissionID)
		if err != nil {
			return storeErr("round list", err)
		}

		status := EffectiveStatus(sub, rounds)
		if !CanTransition(status, StatusPublished) {
			return &InvalidStateTransitionError{
				SubmissionID: submissionID,
				Action:       ActionPublish,
				Status:       status,
				StageID:      EffectiveStageID(sub, rounds),
			}
		}

		patch := StatusPatch{
			Status:    StatusPublished,
			StageID:   StageProduction,
			ChangedBy: actor.UserID,
			Reason:    "published",
		}
		if err := s.Submissions().UpdateStatus(ctx, submissionID, patch); err != nil {
			return storeErr("submission update", err)
		}

		out = &Outcome{
			SubmissionID: submissionID,
			Status:       StatusPublished,
			StageID:      StageProduction,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AllowedActionsFor loads current state and computes the viewer's action set.
func (e *Engine) AllowedActionsFor(ctx context.Context, actor Actor, submissionID int) ([]Action, error) {
	sub, err := e.store.Submissions().Get(ctx, submissionID)
	if err != nil {
		return nil, storeErr("submission get", err)
	}
	rounds, err := e.store.Reviews().ListRounds(ctx, submissionID)
	if err != nil {
		return nil, storeErr("round list", err)
	}
	return AllowedActions(sub, rounds, actor.Role, actor.UserID), nil
}

// RoundProgress returns completion counts for one round.
func (e *Engine) RoundProgress(ctx context.Context, roundID int) (Progress, error) {
	assignments, err := e.store.Reviews().ListAssignments(ctx, roundID)
	if err != nil {
		return Progress{}, storeErr("assignment list", err)
	}
	return ReviewProgress(assignments), nil
}
