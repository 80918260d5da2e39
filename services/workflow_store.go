package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"journal-api/models"
	"journal-api/workflow"

	"gorm.io/gorm"
)

// WorkflowStore is the GORM-backed implementation of workflow.Store.
type WorkflowStore struct {
	db *gorm.DB
}

// NewWorkflowStore wraps a database handle (or an open transaction).
func NewWorkflowStore(db *gorm.DB) *WorkflowStore {
	return &WorkflowStore{db: db}
}

func (s *WorkflowStore) Submissions() workflow.SubmissionStore {
	return &submissionStore{db: s.db}
}

func (s *WorkflowStore) Reviews() workflow.ReviewStore {
	return &reviewStore{db: s.db}
}

func (s *WorkflowStore) Decisions() workflow.DecisionStore {
	return &decisionStore{db: s.db}
}

// InTransaction runs fn against a store view bound to a single transaction.
func (s *WorkflowStore) InTransaction(ctx context.Context, fn func(workflow.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewWorkflowStore(tx))
	})
}

// translateErr maps driver failures onto the workflow sentinels so the
// engine never sees gorm internals.
func translateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return workflow.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return workflow.ErrConflict
	case strings.Contains(err.Error(), "Duplicate entry"):
		// MySQL 1062 without gorm's error translation enabled.
		return workflow.ErrConflict
	default:
		return err
	}
}

type submissionStore struct {
	db *gorm.DB
}

func (s *submissionStore) Get(ctx context.Context, id int) (*models.Submission, error) {
	var sub models.Submission
	err := s.db.WithContext(ctx).
		Where("submission_id = ? AND deleted_at IS NULL", id).
		First(&sub).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &sub, nil
}

// UpdateStatus applies the patch and appends the matching history row in
// the same statement batch; callers wrap both in a transaction.
func (s *submissionStore) UpdateStatus(ctx context.Context, id int, patch workflow.StatusPatch) error {
	var current models.Submission
	if err := s.db.WithContext(ctx).
		Select("submission_id", "status").
		Where("submission_id = ? AND deleted_at IS NULL", id).
		First(&current).Error; err != nil {
		return translateErr(err)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":     string(patch.Status),
		"stage_id":   patch.StageID,
		"updated_at": now,
	}
	if patch.CurrentRound != nil {
		updates["current_round"] = *patch.CurrentRound
	}
	if err := s.db.WithContext(ctx).Model(&models.Submission{}).
		Where("submission_id = ?", id).
		Updates(updates).Error; err != nil {
		return translateErr(err)
	}

	history := models.SubmissionStatusHistory{
		SubmissionID: id,
		OldStatus:    &current.Status,
		NewStatus:    string(patch.Status),
		ChangedBy:    patch.ChangedBy,
		CreatedAt:    now,
	}
	if patch.Reason != "" {
		reason := patch.Reason
		history.Reason = &reason
	}
	return translateErr(s.db.WithContext(ctx).Create(&history).Error)
}

type reviewStore struct {
	db *gorm.DB
}

func (s *reviewStore) ListRounds(ctx context.Context, submissionID int) ([]models.ReviewRound, error) {
	var rounds []models.ReviewRound
	err := s.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("round ASC").
		Find(&rounds).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return rounds, nil
}

func (s *reviewStore) CreateRound(ctx context.Context, submissionID, round int) (*models.ReviewRound, error) {
	rec := models.ReviewRound{
		SubmissionID: submissionID,
		Round:        round,
		DateCreated:  time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, translateErr(err)
	}
	return &rec, nil
}

func (s *reviewStore) ListAssignments(ctx context.Context, roundID int) ([]models.ReviewAssignment, error) {
	var assignments []models.ReviewAssignment
	err := s.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Order("date_assigned ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return assignments, nil
}

func (s *reviewStore) CreateAssignment(ctx context.Context, a *models.ReviewAssignment) error {
	return translateErr(s.db.WithContext(ctx).Create(a).Error)
}

// ListReviews returns all assignments for a submission across rounds with
// the reviewer embedded, newest round first.
func (s *reviewStore) ListReviews(ctx context.Context, submissionID int) ([]models.ReviewAssignment, error) {
	var assignments []models.ReviewAssignment
	err := s.db.WithContext(ctx).
		Joins("JOIN review_rounds ON review_rounds.round_id = review_assignments.round_id").
		Where("review_rounds.submission_id = ?", submissionID).
		Order("review_rounds.round DESC, review_assignments.date_assigned ASC").
		Preload("Reviewer").
		Find(&assignments).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return assignments, nil
}

type decisionStore struct {
	db *gorm.DB
}

func (s *decisionStore) Append(ctx context.Context, d *models.EditorialDecision) error {
	return translateErr(s.db.WithContext(ctx).Create(d).Error)
}

func (s *decisionStore) Latest(ctx context.Context, submissionID int) (*models.EditorialDecision, error) {
	var decision models.EditorialDecision
	err := s.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("date_decided DESC, decision_id DESC").
		First(&decision).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &decision, nil
}
