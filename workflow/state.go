package workflow

import (
	"time"

	"journal-api/models"
)

// Status is the lifecycle status of a submission.
type Status string

const (
	StatusIncomplete       Status = "incomplete"
	StatusSubmitted        Status = "submitted"
	StatusUnderReview      Status = "under_review"
	StatusRevisionRequired Status = "revision_required"
	StatusAccepted         Status = "accepted"
	StatusDeclined         Status = "declined"
	StatusPublished        Status = "published"
)

// Stage identifiers for the editorial pipeline. The numbering follows the
// legacy scheme carried over from the previous system; 2 is unused.
const (
	StageSubmission  = 1
	StageReview      = 3
	StageCopyediting = 4
	StageProduction  = 5
)

// Role of the acting user, resolved by the identity collaborator and passed
// explicitly into every command so the engine carries no ambient auth state.
type Role string

const (
	RoleEditor    Role = "editor"
	RoleReviewer  Role = "reviewer"
	RoleSubmitter Role = "submitter"
)

// Decision values an editor may record on a review round.
type Decision string

const (
	DecisionAccept    Decision = "accept"
	DecisionRevisions Decision = "revisions"
	DecisionDecline   Decision = "decline"
)

// Reviewer recommendation values.
const (
	RecommendAccept         = "accept"
	RecommendMinorRevisions = "minor_revisions"
	RecommendMajorRevisions = "major_revisions"
	RecommendDecline        = "decline"
)

// Action names a workflow command the current viewer may invoke.
type Action string

const (
	ActionSendToReview   Action = "sendToReview"
	ActionAssignReviewer Action = "assignReviewer"
	ActionRecordDecision Action = "recordDecision"
	ActionResubmit       Action = "resubmit"
	ActionPublish        Action = "publish"
)

// transitions is the full set of legal status edges. Anything not listed
// is rejected; declined and published have no outgoing edges.
var transitions = map[Status][]Status{
	StatusIncomplete:       {StatusSubmitted},
	StatusSubmitted:        {StatusUnderReview},
	StatusUnderReview:      {StatusRevisionRequired, StatusAccepted, StatusDeclined},
	StatusRevisionRequired: {StatusUnderReview},
	StatusAccepted:         {StatusPublished},
}

// ValidStatus reports whether s is one of the enumerated statuses.
func ValidStatus(s Status) bool {
	switch s {
	case StatusIncomplete, StatusSubmitted, StatusUnderReview,
		StatusRevisionRequired, StatusAccepted, StatusDeclined, StatusPublished:
		return true
	}
	return false
}

// ValidDecision reports whether d is one of the enumerated decisions.
func ValidDecision(d Decision) bool {
	return d == DecisionAccept || d == DecisionRevisions || d == DecisionDecline
}

// IsTerminal reports whether a status is a sink: no command may produce a
// new status from it.
func IsTerminal(s Status) bool {
	return s == StatusDeclined || s == StatusPublished
}

// CanTransition reports whether from -> to is a legal status edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StatusForDecision maps an editorial decision to the submission status it
// produces.
func StatusForDecision(d Decision) Status {
	switch d {
	case DecisionAccept:
		return StatusAccepted
	case DecisionDecline:
		return StatusDeclined
	default:
		return StatusRevisionRequired
	}
}

// StageForStatus returns the stage a status routes to.
func StageForStatus(s Status) int {
	switch s {
	case StatusAccepted:
		return StageCopyediting
	case StatusPublished:
		return StageProduction
	case StatusUnderReview, StatusRevisionRequired:
		return StageReview
	default:
		return StageSubmission
	}
}

// EffectiveStatus recomputes the submission status from underlying facts:
// a persisted pre-review status with rounds present means the stored field
// is stale and the submission is effectively in review.
func EffectiveStatus(sub *models.Submission, rounds []models.ReviewRound) Status {
	status := Status(sub.Status)
	if len(rounds) > 0 && (status == StatusIncomplete || status == StatusSubmitted) {
		return StatusUnderReview
	}
	return status
}

// EffectiveStageID recomputes the stage from round presence and status
// rather than trusting the persisted stage_id, which may lag behind.
func EffectiveStageID(sub *models.Submission, rounds []models.ReviewRound) int {
	status := EffectiveStatus(sub, rounds)
	switch status {
	case StatusAccepted:
		return StageCopyediting
	case StatusPublished:
		return StageProduction
	}
	if len(rounds) > 0 {
		return StageReview
	}
	if sub.StageID != 0 {
		return sub.StageID
	}
	return StageSubmission
}

// CurrentRound returns the highest round number reached, preferring the
// recomputed max over the cached current_round field. Zero means review
// never started.
func CurrentRound(sub *models.Submission, rounds []models.ReviewRound) int {
	max := 0
	for _, r := range rounds {
		if r.Round > max {
			max = r.Round
		}
	}
	if max == 0 {
		return sub.CurrentRound
	}
	return max
}

// LatestRound returns the round with the highest round number, or nil.
func LatestRound(rounds []models.ReviewRound) *models.ReviewRound {
	var latest *models.ReviewRound
	for i := range rounds {
		if latest == nil || rounds[i].Round > latest.Round {
			latest = &rounds[i]
		}
	}
	return latest
}

// AllowedActions computes the command set available to the viewer on the
// submission's current state. Pure function of its inputs.
func AllowedActions(sub *models.Submission, rounds []models.ReviewRound, role Role, viewerID int) []Action {
	status := EffectiveStatus(sub, rounds)
	if IsTerminal(status) {
		return nil
	}

	stage := EffectiveStageID(sub, rounds)
	var actions []Action

	switch role {
	case RoleEditor:
		if canSendToReview(status, stage, rounds) {
			actions = append(actions, ActionSendToReview)
		}
		if status == StatusSubmitted || status == StatusUnderReview {
			actions = append(actions, ActionAssignReviewer)
		}
		// A revisions decision closes the round; recording another decision
		// waits for the author to resubmit and open the next one.
		if status == StatusUnderReview && len(rounds) > 0 {
			actions = append(actions, ActionRecordDecision)
		}
		if status == StatusAccepted {
			actions = append(actions, ActionPublish)
		}
	case RoleSubmitter:
		if status == StatusRevisionRequired && viewerID == sub.SubmitterID {
			actions = append(actions, ActionResubmit)
		}
	}

	return actions
}

func canSendToReview(status Status, stage int, rounds []models.ReviewRound) bool {
	if len(rounds) > 0 {
		return false
	}
	// Terminal statuses stay terminal even when the round list is stale
	// or missing.
	if IsTerminal(status) || status == StatusUnderReview {
		return false
	}
	return stage == StageSubmission || stage == 2
}

// Progress summarizes reviewer completion for one round.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// ReviewProgress counts completed reviews over non-cancelled assignments.
func ReviewProgress(assignments []models.ReviewAssignment) Progress {
	var p Progress
	for _, a := range assignments {
		if a.Cancelled {
			continue
		}
		p.Total++
		if a.DateCompleted != nil {
			p.Completed++
		}
	}
	return p
}

// Assignment display states derived from dates. Overdue is never stored.
const (
	AssignmentPending    = "pending"
	AssignmentInProgress = "in_progress"
	AssignmentCompleted  = "completed"
	AssignmentOverdue    = "overdue"
)

// AssignmentState derives the display state of an assignment at time now.
func AssignmentState(a *models.ReviewAssignment, now time.Time) string {
	if a.DateCompleted != nil {
		return AssignmentCompleted
	}
	if a.DateDue.Before(now) {
		return AssignmentOverdue
	}
	if a.DateConfirmed != nil {
		return AssignmentInProgress
	}
	return AssignmentPending
}
