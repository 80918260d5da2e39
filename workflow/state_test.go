package workflow

import (
	"testing"
	"time"

	"journal-api/models"
)

func TestCanTransitionTable(t *testing.T) {
	legal := []struct {
		from, to Status
	}{
		{StatusIncomplete, StatusSubmitted},
		{StatusSubmitted, StatusUnderReview},
		{StatusUnderReview, StatusRevisionRequired},
		{StatusUnderReview, StatusAccepted},
		{StatusUnderReview, StatusDeclined},
		{StatusRevisionRequired, StatusUnderReview},
		{StatusAccepted, StatusPublished},
	}
	for _, tc := range legal {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be legal", tc.from, tc.to)
		}
	}

	illegal := []struct {
		from, to Status
	}{
		{StatusIncomplete, StatusUnderReview},
		{StatusSubmitted, StatusAccepted},
		{StatusRevisionRequired, StatusAccepted},
		{StatusAccepted, StatusUnderReview},
		{StatusDeclined, StatusUnderReview},
		{StatusDeclined, StatusSubmitted},
		{StatusPublished, StatusUnderReview},
		{StatusPublished, StatusAccepted},
	}
	for _, tc := range illegal {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be illegal", tc.from, tc.to)
		}
	}
}

func TestTerminalStatusesHaveNoOutgoingEdges(t *testing.T) {
	all := []Status{
		StatusIncomplete, StatusSubmitted, StatusUnderReview,
		StatusRevisionRequired, StatusAccepted, StatusDeclined, StatusPublished,
	}
	for _, terminal := range []Status{StatusDeclined, StatusPublished} {
		if !IsTerminal(terminal) {
			t.Fatalf("expected %s to be terminal", terminal)
		}
		for _, to := range all {
			if CanTransition(terminal, to) {
				t.Errorf("terminal status %s must not transition to %s", terminal, to)
			}
		}
	}
}

func TestEffectiveStageIgnoresStaleStage(t *testing.T) {
	// Persisted stage says submission, but a round exists: effective stage
	// must be review.
	sub := &models.Submission{
		SubmissionID: 1,
		Status:       string(StatusUnderReview),
		StageID:      StageSubmission,
	}
	rounds := []models.ReviewRound{{RoundID: 10, SubmissionID: 1, Round: 1}}

	if got := EffectiveStageID(sub, rounds); got != StageReview {
		t.Fatalf("expected stage %d, got %d", StageReview, got)
	}

	// Same for a stale status field.
	sub.Status = string(StatusSubmitted)
	if got := EffectiveStatus(sub, rounds); got != StatusUnderReview {
		t.Fatalf("expected effective status %s, got %s", StatusUnderReview, got)
	}
	if got := EffectiveStageID(sub, rounds); got != StageReview {
		t.Fatalf("expected stage %d, got %d", StageReview, got)
	}
}

func TestEffectiveStageFollowsStatusAfterReview(t *testing.T) {
	rounds := []models.ReviewRound{{Round: 1}, {Round: 2}}

	sub := &models.Submission{Status: string(StatusAccepted), StageID: StageReview}
	if got := EffectiveStageID(sub, rounds); got != StageCopyediting {
		t.Fatalf("accepted submission: expected stage %d, got %d", StageCopyediting, got)
	}

	sub.Status = string(StatusPublished)
	if got := EffectiveStageID(sub, rounds); got != StageProduction {
		t.Fatalf("published submission: expected stage %d, got %d", StageProduction, got)
	}
}

func TestCurrentRoundRecomputed(t *testing.T) {
	sub := &models.Submission{CurrentRound: 1}
	rounds := []models.ReviewRound{{Round: 1}, {Round: 2}, {Round: 3}}

	if got := CurrentRound(sub, rounds); got != 3 {
		t.Fatalf("expected current round 3, got %d", got)
	}

	// Cached field wins only when no rounds are visible.
	if got := CurrentRound(sub, nil); got != 1 {
		t.Fatalf("expected cached round 1, got %d", got)
	}
	if got := CurrentRound(&models.Submission{}, nil); got != 0 {
		t.Fatalf("expected round 0 before review, got %d", got)
	}
}

func TestAllowedActionsEditor(t *testing.T) {
	sub := &models.Submission{SubmissionID: 1, Status: string(StatusSubmitted), StageID: StageSubmission, SubmitterID: 7}

	actions := AllowedActions(sub, nil, RoleEditor, 99)
	if !hasAction(actions, ActionSendToReview) {
		t.Errorf("expected sendToReview for submitted submission without rounds")
	}
	if !hasAction(actions, ActionAssignReviewer) {
		t.Errorf("expected assignReviewer for submitted submission")
	}
	if hasAction(actions, ActionRecordDecision) {
		t.Errorf("recordDecision must not be offered before a round exists")
	}

	// Once a round exists sendToReview disappears and recordDecision appears.
	rounds := []models.ReviewRound{{Round: 1}}
	sub.Status = string(StatusUnderReview)
	actions = AllowedActions(sub, rounds, RoleEditor, 99)
	if hasAction(actions, ActionSendToReview) {
		t.Errorf("sendToReview must not be offered once a round exists")
	}
	if !hasAction(actions, ActionRecordDecision) {
		t.Errorf("expected recordDecision with an open round")
	}

	// Accepted: only publish remains.
	sub.Status = string(StatusAccepted)
	actions = AllowedActions(sub, rounds, RoleEditor, 99)
	if !hasAction(actions, ActionPublish) {
		t.Errorf("expected publish for accepted submission")
	}
	if hasAction(actions, ActionRecordDecision) || hasAction(actions, ActionAssignReviewer) {
		t.Errorf("no review actions after acceptance, got %v", actions)
	}
}

func TestAllowedActionsEditorRevisionRequired(t *testing.T) {
	// The revisions decision closed the round: the editor waits for the
	// author, so no command is offered.
	sub := &models.Submission{SubmissionID: 1, Status: string(StatusRevisionRequired), StageID: StageReview, SubmitterID: 7}
	rounds := []models.ReviewRound{{Round: 1}}

	if actions := AllowedActions(sub, rounds, RoleEditor, 99); len(actions) != 0 {
		t.Errorf("expected no editor actions in revision_required, got %v", actions)
	}
}

func TestSendToReviewGuardTreatsTerminalAsSink(t *testing.T) {
	for _, status := range []Status{StatusDeclined, StatusPublished} {
		if canSendToReview(status, StageSubmission, nil) {
			t.Errorf("%s with no visible rounds must not be sendable to review", status)
		}
	}
}

func TestAllowedActionsSubmitter(t *testing.T) {
	sub := &models.Submission{SubmissionID: 1, Status: string(StatusRevisionRequired), SubmitterID: 7}
	rounds := []models.ReviewRound{{Round: 1}}

	if actions := AllowedActions(sub, rounds, RoleSubmitter, 7); !hasAction(actions, ActionResubmit) {
		t.Errorf("expected resubmit for the submitter on revision_required")
	}
	if actions := AllowedActions(sub, rounds, RoleSubmitter, 8); len(actions) != 0 {
		t.Errorf("another author must get no actions, got %v", actions)
	}

	sub.Status = string(StatusUnderReview)
	if actions := AllowedActions(sub, rounds, RoleSubmitter, 7); len(actions) != 0 {
		t.Errorf("no submitter actions while under review, got %v", actions)
	}
}

func TestAllowedActionsTerminal(t *testing.T) {
	rounds := []models.ReviewRound{{Round: 1}}
	for _, status := range []Status{StatusDeclined, StatusPublished} {
		sub := &models.Submission{SubmissionID: 1, Status: string(status), SubmitterID: 7}
		for _, role := range []Role{RoleEditor, RoleSubmitter, RoleReviewer} {
			if actions := AllowedActions(sub, rounds, role, 7); len(actions) != 0 {
				t.Errorf("terminal status %s must offer no actions to %s, got %v", status, role, actions)
			}
		}
	}
}

func TestReviewProgressSkipsCancelled(t *testing.T) {
	done := time.Now()
	assignments := []models.ReviewAssignment{
		{AssignmentID: 1, DateCompleted: &done},
		{AssignmentID: 2},
		{AssignmentID: 3, Cancelled: true, DateCompleted: &done},
	}

	p := ReviewProgress(assignments)
	if p.Completed != 1 || p.Total != 2 {
		t.Fatalf("expected 1/2, got %d/%d", p.Completed, p.Total)
	}
}

func TestAssignmentStateDerived(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	due := now.Add(48 * time.Hour)
	past := now.Add(-48 * time.Hour)
	confirmed := now.Add(-time.Hour)
	done := now.Add(-time.Minute)

	cases := []struct {
		name string
		a    models.ReviewAssignment
		want string
	}{
		{"pending", models.ReviewAssignment{DateDue: due}, AssignmentPending},
		{"in progress", models.ReviewAssignment{DateDue: due, DateConfirmed: &confirmed}, AssignmentInProgress},
		{"overdue", models.ReviewAssignment{DateDue: past}, AssignmentOverdue},
		{"completed", models.ReviewAssignment{DateDue: past, DateCompleted: &done}, AssignmentCompleted},
	}
	for _, tc := range cases {
		if got := AssignmentState(&tc.a, now); got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestStatusForDecision(t *testing.T) {
	if StatusForDecision(DecisionAccept) != StatusAccepted {
		t.Error("accept must map to accepted")
	}
	if StatusForDecision(DecisionDecline) != StatusDeclined {
		t.Error("decline must map to declined")
	}
	if StatusForDecision(DecisionRevisions) != StatusRevisionRequired {
		t.Error("revisions must map to revision_required")
	}
}

func hasAction(actions []Action, want Action) bool {
	for _, a := range actions {
		if a == want {
			return true
		}
	}
	return false
}
