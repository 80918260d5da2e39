package workflow

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"journal-api/models"
)

// fakeStore is an in-memory Store with snapshot-based transactions: writes
// made inside InTransaction are discarded when fn returns an error.
type fakeStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	subs        map[int]*models.Submission
	rounds      []models.ReviewRound
	assignments []models.ReviewAssignment
	decisions   []models.EditorialDecision
	history     []models.SubmissionStatusHistory

	nextRoundID      int
	nextAssignmentID int
	nextDecisionID   int

	failAssignmentCreate error
	failSubmissionGet    error
}

func newFakeStore(subs ...*models.Submission) *fakeStore {
	s := &fakeStore{
		subs:             make(map[int]*models.Submission),
		nextRoundID:      100,
		nextAssignmentID: 500,
		nextDecisionID:   900,
	}
	for _, sub := range subs {
		copied := *sub
		s.subs[sub.SubmissionID] = &copied
	}
	return s
}

func (s *fakeStore) Submissions() SubmissionStore { return s }
func (s *fakeStore) Reviews() ReviewStore         { return s }
func (s *fakeStore) Decisions() DecisionStore     { return s }

func (s *fakeStore) InTransaction(ctx context.Context, fn func(Store) error) error {
	// Transactions run serialized, like a row-locked database would.
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.restoreLocked(snapshot)
		s.mu.Unlock()
		return err
	}
	return nil
}

type fakeSnapshot struct {
	subs        map[int]models.Submission
	rounds      []models.ReviewRound
	assignments []models.ReviewAssignment
	decisions   []models.EditorialDecision
	history     []models.SubmissionStatusHistory
}

func (s *fakeStore) snapshotLocked() fakeSnapshot {
	snap := fakeSnapshot{subs: make(map[int]models.Submission, len(s.subs))}
	for id, sub := range s.subs {
		snap.subs[id] = *sub
	}
	snap.rounds = append(snap.rounds, s.rounds...)
	snap.assignments = append(snap.assignments, s.assignments...)
	snap.decisions = append(snap.decisions, s.decisions...)
	snap.history = append(snap.history, s.history...)
	return snap
}

func (s *fakeStore) restoreLocked(snap fakeSnapshot) {
	s.subs = make(map[int]*models.Submission, len(snap.subs))
	for id := range snap.subs {
		sub := snap.subs[id]
		s.subs[id] = &sub
	}
	s.rounds = snap.rounds
	s.assignments = snap.assignments
	s.decisions = snap.decisions
	s.history = snap.history
}

func (s *fakeStore) Get(ctx context.Context, id int) (*models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSubmissionGet != nil {
		return nil, s.failSubmissionGet
	}
	sub, ok := s.subs[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *sub
	return &copied, nil
}

func (s *fakeStore) UpdateStatus(ctx context.Context, id int, patch StatusPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok {
		return ErrNotFound
	}
	old := sub.Status
	sub.Status = string(patch.Status)
	sub.StageID = patch.StageID
	if patch.CurrentRound != nil {
		sub.CurrentRound = *patch.CurrentRound
	}
	s.history = append(s.history, models.SubmissionStatusHistory{
		SubmissionID: id,
		OldStatus:    &old,
		NewStatus:    string(patch.Status),
		ChangedBy:    patch.ChangedBy,
	})
	return nil
}

func (s *fakeStore) ListRounds(ctx context.Context, submissionID int) ([]models.ReviewRound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ReviewRound
	for _, r := range s.rounds {
		if r.SubmissionID == submissionID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateRound(ctx context.Context, submissionID, round int) (*models.ReviewRound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rounds {
		if r.SubmissionID == submissionID && r.Round == round {
			return nil, ErrConflict
		}
	}
	s.nextRoundID++
	rec := models.ReviewRound{
		RoundID:      s.nextRoundID,
		SubmissionID: submissionID,
		Round:        round,
		DateCreated:  time.Now(),
	}
	s.rounds = append(s.rounds, rec)
	return &rec, nil
}

func (s *fakeStore) ListAssignments(ctx context.Context, roundID int) ([]models.ReviewAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ReviewAssignment
	for _, a := range s.assignments {
		if a.RoundID == roundID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateAssignment(ctx context.Context, a *models.ReviewAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAssignmentCreate != nil {
		return s.failAssignmentCreate
	}
	s.nextAssignmentID++
	a.AssignmentID = s.nextAssignmentID
	s.assignments = append(s.assignments, *a)
	return nil
}

func (s *fakeStore) ListReviews(ctx context.Context, submissionID int) ([]models.ReviewAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roundIDs := make(map[int]bool)
	for _, r := range s.rounds {
		if r.SubmissionID == submissionID {
			roundIDs[r.RoundID] = true
		}
	}
	var out []models.ReviewAssignment
	for _, a := range s.assignments {
		if roundIDs[a.RoundID] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeStore) Append(ctx context.Context, d *models.EditorialDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.decisions {
		if existing.RoundID == d.RoundID {
			return ErrConflict
		}
	}
	s.nextDecisionID++
	d.DecisionID = s.nextDecisionID
	s.decisions = append(s.decisions, *d)
	return nil
}

func (s *fakeStore) Latest(ctx context.Context, submissionID int) (*models.EditorialDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.EditorialDecision
	for i := range s.decisions {
		d := &s.decisions[i]
		if d.SubmissionID != submissionID {
			continue
		}
		if latest == nil || d.DateDecided.After(latest.DateDecided) ||
			(d.DateDecided.Equal(latest.DateDecided) && d.DecisionID > latest.DecisionID) {
			latest = d
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (s *fakeStore) roundsFor(submissionID int) []models.ReviewRound {
	rounds, _ := s.ListRounds(context.Background(), submissionID)
	return rounds
}

func submittedSubmission(id, submitterID int) *models.Submission {
	return &models.Submission{
		SubmissionID: id,
		Status:       string(StatusSubmitted),
		StageID:      StageSubmission,
		SubmitterID:  submitterID,
	}
}

var (
	editor    = Actor{UserID: 42, Role: RoleEditor}
	submitter = Actor{UserID: 7, Role: RoleSubmitter}
)

func TestSendToReviewCreatesRoundOne(t *testing.T) {
	store := newFakeStore(submittedSubmission(1, 7))
	engine := NewEngine(store, nil)

	out, err := engine.SendToReview(context.Background(), editor, 1)
	if err != nil {
		t.Fatalf("SendToReview failed: %v", err)
	}
	if out.Round != 1 || out.Status != StatusUnderReview || out.StageID != StageReview {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	sub, _ := store.Get(context.Background(), 1)
	if sub.Status != string(StatusUnderReview) || sub.CurrentRound != 1 {
		t.Fatalf("submission not updated: %+v", sub)
	}
	if len(store.roundsFor(1)) != 1 {
		t.Fatalf("expected exactly one round")
	}
}

func TestSendToReviewRejectsSecondCall(t *testing.T) {
	store := newFakeStore(submittedSubmission(1, 7))
	engine := NewEngine(store, nil)

	if _, err := engine.SendToReview(context.Background(), editor, 1); err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	_, err := engine.SendToReview(context.Background(), editor, 1)
	var invalid *InvalidStateTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidStateTransitionError, got %v", err)
	}
	if len(store.roundsFor(1)) != 1 {
		t.Fatalf("second call must not create a round")
	}
}

func TestSendToReviewRequiresEditor(t *testing.T) {
	store := newFakeStore(submittedSubmission(1, 7))
	engine := NewEngine(store, nil)

	if _, err := engine.SendToReview(context.Background(), submitter, 1); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

// racingStore serves stale reads for the first calls so two concurrent
// send-to-review attempts both pass the precondition and reach the create
// path; the store level uniqueness guard must let exactly one through.
type racingStore struct {
	*fakeStore
	staleGets  int32
	staleLists int32
}

func (s *racingStore) Submissions() SubmissionStore { return s }
func (s *racingStore) Reviews() ReviewStore         { return s }

func (s *racingStore) Get(ctx context.Context, id int) (*models.Submission, error) {
	if atomic.AddInt32(&s.staleGets, -1) >= 0 {
		return submittedSubmission(id, 7), nil
	}
	return s.fakeStore.Get(ctx, id)
}

func (s *racingStore) ListRounds(ctx context.Context, submissionID int) ([]models.ReviewRound, error) {
	if atomic.AddInt32(&s.staleLists, -1) >= 0 {
		return nil, nil
	}
	return s.fakeStore.ListRounds(ctx, submissionID)
}

func (s *racingStore) InTransaction(ctx context.Context, fn func(Store) error) error {
	return s.fakeStore.InTransaction(ctx, func(Store) error { return fn(s) })
}

func TestConcurrentSendToReviewCreatesSingleRound(t *testing.T) {
	base := newFakeStore(submittedSubmission(1, 7))
	store := &racingStore{fakeStore: base, staleGets: 2, staleLists: 2}
	engine := NewEngine(store, nil)

	errA := make(chan error, 1)
	errB := make(chan error, 1)
	go func() {
		_, err := engine.SendToReview(context.Background(), editor, 1)
		errA <- err
	}()
	go func() {
		_, err := engine.SendToReview(context.Background(), editor, 1)
		errB <- err
	}()

	a, b := <-errA, <-errB
	failures := 0
	for _, err := range []error{a, b} {
		if err == nil {
			continue
		}
		var invalid *InvalidStateTransitionError
		if !errors.As(err, &invalid) {
			t.Fatalf("unexpected error kind: %v", err)
		}
		failures++
	}
	if failures != 1 {
		t.Fatalf("expected exactly one loser, got %d (a=%v, b=%v)", failures, a, b)
	}

	rounds := base.roundsFor(1)
	if len(rounds) != 1 || rounds[0].Round != 1 {
		t.Fatalf("expected exactly one round with round=1, got %+v", rounds)
	}
}

func TestAssignReviewerCompoundCreatesRound(t *testing.T) {
	store := newFakeStore(submittedSubmission(1, 7))
	engine := NewEngine(store, nil)

	due := time.Now().AddDate(0, 0, 14)
	out, err := engine.AssignReviewer(context.Background(), editor, 1, 55, nil, due)
	if err != nil {
		t.Fatalf("AssignReviewer failed: %v", err)
	}
	if out.Round != 1 || out.AssignmentID == 0 {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	assignments, _ := store.ListAssignments(context.Background(), out.RoundID)
	if len(assignments) != 1 || assignments[0].ReviewerID != 55 {
		t.Fatalf("expected one assignment for reviewer 55, got %+v", assignments)
	}

	// Editor action set now offers recordDecision and no longer sendToReview.
	sub, _ := store.Get(context.Background(), 1)
	actions := AllowedActions(sub, store.roundsFor(1), RoleEditor, editor.UserID)
	if !hasAction(actions, ActionRecordDecision) {
		t.Errorf("expected recordDecision after round creation")
	}
	if hasAction(actions, ActionSendToReview) {
		t.Errorf("sendToReview must disappear after round creation")
	}
}

func TestAssignReviewerDuplicateRejected(t *testing.T) {
	store := newFakeStore(submittedSubmission(1, 7))
	engine := NewEngine(store, nil)

	due := time.Now().AddDate(0, 0, 14)
	if _, err := engine.AssignReviewer(context.Background(), editor, 1, 55, nil, due); err != nil {
		t.Fatalf("first assignment failed: %v", err)
	}

	_, err := engine.AssignReviewer(context.Background(), editor, 1, 55, nil, due)
	var duplicate *DuplicateAssignmentError
	if !errors.As(err, &duplicate) {
		t.Fatalf("expected DuplicateAssignmentError, got %v", err)
	}
	if duplicate.ReviewerID != 55 {
		t.Fatalf("unexpected error detail: %+v", duplicate)
	}
}

func TestAssignReviewerUnknownRound(t *testing.T) {
	store := newFakeStore(submittedSubmission(1, 7))
	engine := NewEngine(store, nil)

	missing := 999
	due := time.Now().AddDate(0, 0, 14)
	_, err := engine.AssignReviewer(context.Background(), editor, 1, 55, &missing, due)
	var noRound *NoActiveRoundError
	if !errors.As(err, &noRound) {
		t.Fatalf("expected NoActiveRoundError, got %v", err)
	}
}

func TestAssignReviewerCompoundIsAtomic(t *testing.T) {
	store := newFakeStore(submittedSubmission(1, 7))
	store.failAssignmentCreate = errors.New("disk full")
	engine := NewEngine(store, nil)

	due := time.Now().AddDate(0, 0, 14)
	_, err := engine.AssignReviewer(context.Background(), editor, 1, 55, nil, due)
	var unavailable *StoreUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected StoreUnavailableError, got %v", err)
	}

	// The round created by the compound path must have been rolled back.
	if rounds := store.roundsFor(1); len(rounds) != 0 {
		t.Fatalf("expected rollback of round creation, got %+v", rounds)
	}
	sub, _ := store.Get(context.Background(), 1)
	if sub.Status != string(StatusSubmitted) {
		t.Fatalf("expected status rollback, got %s", sub.Status)
	}
}

func TestRecordDecisionRequiresRound(t *testing.T) {
	store := newFakeStore(submittedSubmission(1, 7))
	engine := NewEngine(store, nil)

	_, err := engine.RecordDecision(context.Background(), editor, 1, DecisionAccept, "")
	var invalid *InvalidStateTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidStateTransitionError, got %v", err)
	}
	if invalid.SubmissionID != 1 || invalid.Action != ActionRecordDecision {
		t.Fatalf("unexpected error detail: %+v", invalid)
	}
}

func TestRecordDecisionValidatesInput(t *testing.T) {
	store := newFakeStore(submittedSubmission(1, 7))
	engine := NewEngine(store, nil)

	_, err := engine.RecordDecision(context.Background(), editor, 1, Decision("maybe"), "")
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestRevisionCycleOpensNewRound(t *testing.T) {
	store := newFakeStore(submittedSubmission(1, 7))
	engine := NewEngine(store, nil)
	ctx := context.Background()

	if _, err := engine.SendToReview(ctx, editor, 1); err != nil {
		t.Fatalf("SendToReview failed: %v", err)
	}

	out, err := engine.RecordDecision(ctx, editor, 1, DecisionRevisions, "needs more data")
	if err != nil {
		t.Fatalf("RecordDecision failed: %v", err)
	}
	if out.Status != StatusRevisionRequired || out.Round != 1 {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	decision, err := store.Latest(ctx, 1)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if decision.Decision != string(DecisionRevisions) || decision.RoundID != out.RoundID {
		t.Fatalf("decision not recorded against round 1: %+v", decision)
	}

	// The submitter resubmits: back under review with a fresh round 2.
	resubOut, err := engine.Resubmit(ctx, submitter, 1)
	if err != nil {
		t.Fatalf("Resubmit failed: %v", err)
	}
	if resubOut.Status != StatusUnderReview || resubOut.Round != 2 {
		t.Fatalf("unexpected resubmit outcome: %+v", resubOut)
	}

	rounds := store.roundsFor(1)
	if len(rounds) != 2 {
		t.Fatalf("expected two rounds, got %d", len(rounds))
	}
	// Monotonic, gap-free, starting at 1.
	for i, r := range rounds {
		if r.Round != i+1 {
			t.Fatalf("round sequence broken: %+v", rounds)
		}
	}
	if rounds[0].RoundID == rounds[1].RoundID {
		t.Fatalf("resubmit must not reuse the old round")
	}
}

func TestResubmitAuthorization(t *testing.T) {
	sub := submittedSubmission(1, 7)
	sub.Status = string(StatusRevisionRequired)
	store := newFakeStore(sub)
	store.rounds = append(store.rounds, models.ReviewRound{RoundID: 101, SubmissionID: 1, Round: 1})
	engine := NewEngine(store, nil)
	ctx := context.Background()

	// Editors do not resubmit on the author's behalf.
	if _, err := engine.Resubmit(ctx, editor, 1); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for editor, got %v", err)
	}

	// A different author cannot resubmit someone else's manuscript.
	other := Actor{UserID: 8, Role: RoleSubmitter}
	if _, err := engine.Resubmit(ctx, other, 1); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owner, got %v", err)
	}

	if _, err := engine.Resubmit(ctx, submitter, 1); err != nil {
		t.Fatalf("owner resubmit failed: %v", err)
	}
}

func TestResubmitRequiresRevisionRequired(t *testing.T) {
	store := newFakeStore(submittedSubmission(1, 7))
	engine := NewEngine(store, nil)

	_, err := engine.Resubmit(context.Background(), submitter, 1)
	var invalid *InvalidStateTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidStateTransitionError, got %v", err)
	}
}

func TestDeclinedIsTerminal(t *testing.T) {
	store := newFakeStore(submittedSubmission(1, 7))
	engine := NewEngine(store, nil)
	ctx := context.Background()

	if _, err := engine.SendToReview(ctx, editor, 1); err != nil {
		t.Fatalf("SendToReview failed: %v", err)
	}
	if _, err := engine.RecordDecision(ctx, editor, 1, DecisionDecline, ""); err != nil {
		t.Fatalf("RecordDecision failed: %v", err)
	}

	sub, _ := store.Get(ctx, 1)
	if sub.Status != string(StatusDeclined) {
		t.Fatalf("expected declined, got %s", sub.Status)
	}

	due := time.Now().AddDate(0, 0, 14)
	var invalid *InvalidStateTransitionError
	if _, err := engine.AssignReviewer(ctx, editor, 1, 55, nil, due); !errors.As(err, &invalid) {
		t.Fatalf("assignReviewer after decline: expected InvalidStateTransitionError, got %v", err)
	}
	if _, err := engine.RecordDecision(ctx, editor, 1, DecisionAccept, ""); !errors.As(err, &invalid) {
		t.Fatalf("recordDecision after decline: expected InvalidStateTransitionError, got %v", err)
	}
	if _, err := engine.SendToReview(ctx, editor, 1); !errors.As(err, &invalid) {
		t.Fatalf("sendToReview after decline: expected InvalidStateTransitionError, got %v", err)
	}
	if _, err := engine.Resubmit(ctx, submitter, 1); !errors.As(err, &invalid) {
		t.Fatalf("resubmit after decline: expected InvalidStateTransitionError, got %v", err)
	}
}

func TestDeclinedWithoutRoundsCannotReenterReview(t *testing.T) {
	// Stale store state: declined, but no rounds visible. The status alone
	// must keep the submission terminal.
	sub := submittedSubmission(1, 7)
	sub.Status = string(StatusDeclined)
	store := newFakeStore(sub)
	engine := NewEngine(store, nil)

	var invalid *InvalidStateTransitionError
	if _, err := engine.SendToReview(context.Background(), editor, 1); !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidStateTransitionError, got %v", err)
	}
	if rounds := store.roundsFor(1); len(rounds) != 0 {
		t.Fatalf("no round may be created for a declined submission, got %+v", rounds)
	}

	due := time.Now().AddDate(0, 0, 14)
	if _, err := engine.AssignReviewer(context.Background(), editor, 1, 55, nil, due); !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidStateTransitionError, got %v", err)
	}

	got, _ := store.Get(context.Background(), 1)
	if got.Status != string(StatusDeclined) {
		t.Fatalf("status must stay declined, got %s", got.Status)
	}
}

func TestRevisionRequiredClosesEditorActions(t *testing.T) {
	store := newFakeStore(submittedSubmission(1, 7))
	engine := NewEngine(store, nil)
	ctx := context.Background()

	if _, err := engine.SendToReview(ctx, editor, 1); err != nil {
		t.Fatalf("SendToReview failed: %v", err)
	}
	if _, err := engine.RecordDecision(ctx, editor, 1, DecisionRevisions, "tighten section 3"); err != nil {
		t.Fatalf("RecordDecision failed: %v", err)
	}

	// The round is decided: the editor sees no commands and the commands
	// reject, consistently.
	actions, err := engine.AllowedActionsFor(ctx, editor, 1)
	if err != nil {
		t.Fatalf("AllowedActionsFor failed: %v", err)
	}
	if len(actions) != 0 {
		t.Fatalf("expected no editor actions in revision_required, got %v", actions)
	}

	var invalid *InvalidStateTransitionError
	if _, err := engine.RecordDecision(ctx, editor, 1, DecisionAccept, ""); !errors.As(err, &invalid) {
		t.Fatalf("recordDecision on decided round: expected InvalidStateTransitionError, got %v", err)
	}
	due := time.Now().AddDate(0, 0, 14)
	if _, err := engine.AssignReviewer(ctx, editor, 1, 55, nil, due); !errors.As(err, &invalid) {
		t.Fatalf("assignReviewer on decided round: expected InvalidStateTransitionError, got %v", err)
	}

	// Resubmission opens round 2 and the editor surface comes back.
	if _, err := engine.Resubmit(ctx, submitter, 1); err != nil {
		t.Fatalf("Resubmit failed: %v", err)
	}
	actions, err = engine.AllowedActionsFor(ctx, editor, 1)
	if err != nil {
		t.Fatalf("AllowedActionsFor failed: %v", err)
	}
	if !hasAction(actions, ActionRecordDecision) || !hasAction(actions, ActionAssignReviewer) {
		t.Fatalf("expected review actions after resubmission, got %v", actions)
	}
	if _, err := engine.AssignReviewer(ctx, editor, 1, 55, nil, due); err != nil {
		t.Fatalf("AssignReviewer on the new round failed: %v", err)
	}
}

func TestAcceptThenPublish(t *testing.T) {
	store := newFakeStore(submittedSubmission(1, 7))
	engine := NewEngine(store, nil)
	ctx := context.Background()

	if _, err := engine.SendToReview(ctx, editor, 1); err != nil {
		t.Fatalf("SendToReview failed: %v", err)
	}
	out, err := engine.RecordDecision(ctx, editor, 1, DecisionAccept, "strong reviews")
	if err != nil {
		t.Fatalf("RecordDecision failed: %v", err)
	}
	if out.Status != StatusAccepted || out.StageID != StageCopyediting {
		t.Fatalf("unexpected accept outcome: %+v", out)
	}

	pubOut, err := engine.Publish(ctx, editor, 1)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if pubOut.Status != StatusPublished || pubOut.StageID != StageProduction {
		t.Fatalf("unexpected publish outcome: %+v", pubOut)
	}

	// Published is a sink.
	var invalid *InvalidStateTransitionError
	if _, err := engine.Publish(ctx, editor, 1); !errors.As(err, &invalid) {
		t.Fatalf("double publish: expected InvalidStateTransitionError, got %v", err)
	}
	due := time.Now().AddDate(0, 0, 14)
	if _, err := engine.AssignReviewer(ctx, editor, 1, 55, nil, due); !errors.As(err, &invalid) {
		t.Fatalf("assign after publish: expected InvalidStateTransitionError, got %v", err)
	}
}

func TestDecisionBeforeNotification(t *testing.T) {
	store := newFakeStore(submittedSubmission(1, 7))
	notifier := &recordingNotifier{store: store}
	engine := NewEngine(store, notifier)
	ctx := context.Background()

	if _, err := engine.SendToReview(ctx, editor, 1); err != nil {
		t.Fatalf("SendToReview failed: %v", err)
	}
	if _, err := engine.RecordDecision(ctx, editor, 1, DecisionAccept, ""); err != nil {
		t.Fatalf("RecordDecision failed: %v", err)
	}

	if !notifier.decisionDurable {
		t.Fatalf("notification fired before the decision was durably recorded")
	}
}

func TestStoreFailureSurfacesAsUnavailable(t *testing.T) {
	store := newFakeStore(submittedSubmission(1, 7))
	store.failSubmissionGet = errors.New("connection reset")
	engine := NewEngine(store, nil)

	_, err := engine.SendToReview(context.Background(), editor, 1)
	var unavailable *StoreUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected StoreUnavailableError, got %v", err)
	}
}

func TestAllowedActionsForQuery(t *testing.T) {
	store := newFakeStore(submittedSubmission(1, 7))
	engine := NewEngine(store, nil)
	ctx := context.Background()

	due := time.Now().AddDate(0, 0, 14)
	if _, err := engine.AssignReviewer(ctx, editor, 1, 55, nil, due); err != nil {
		t.Fatalf("AssignReviewer failed: %v", err)
	}

	actions, err := engine.AllowedActionsFor(ctx, editor, 1)
	if err != nil {
		t.Fatalf("AllowedActionsFor failed: %v", err)
	}
	if !hasAction(actions, ActionRecordDecision) || hasAction(actions, ActionSendToReview) {
		t.Fatalf("unexpected editor actions: %v", actions)
	}
}

func TestRoundProgressQuery(t *testing.T) {
	store := newFakeStore(submittedSubmission(1, 7))
	engine := NewEngine(store, nil)
	ctx := context.Background()

	due := time.Now().AddDate(0, 0, 14)
	out, err := engine.AssignReviewer(ctx, editor, 1, 55, nil, due)
	if err != nil {
		t.Fatalf("AssignReviewer failed: %v", err)
	}
	if _, err := engine.AssignReviewer(ctx, editor, 1, 56, nil, due); err != nil {
		t.Fatalf("second AssignReviewer failed: %v", err)
	}

	// Complete one of the two reviews.
	store.mu.Lock()
	done := time.Now()
	store.assignments[0].DateCompleted = &done
	store.mu.Unlock()

	progress, err := engine.RoundProgress(ctx, out.RoundID)
	if err != nil {
		t.Fatalf("RoundProgress failed: %v", err)
	}
	if progress.Completed != 1 || progress.Total != 2 {
		t.Fatalf("expected 1/2, got %d/%d", progress.Completed, progress.Total)
	}
}

// recordingNotifier verifies the decision row exists at notification time.
type recordingNotifier struct {
	store           *fakeStore
	decisionDurable bool
}

func (n *recordingNotifier) SentToReview(*models.Submission, *models.ReviewRound) {}

func (n *recordingNotifier) ReviewerAssigned(*models.Submission, *models.ReviewAssignment) {}

func (n *recordingNotifier) DecisionRecorded(sub *models.Submission, d *models.EditorialDecision, _ Status) {
	if _, err := n.store.Latest(context.Background(), sub.SubmissionID); err == nil {
		n.decisionDurable = true
	}
}

func (n *recordingNotifier) Resubmitted(*models.Submission, *models.ReviewRound) {}
