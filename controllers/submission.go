// controllers/submission.go
package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"journal-api/config"
	"journal-api/models"
	"journal-api/utils"
	"journal-api/workflow"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ===================== SUBMISSION MANAGEMENT =====================

// GetSubmissions returns the submissions visible to the caller: editors see
// everything, reviewers what they are assigned to, authors their own.
func GetSubmissions(c *gin.Context) {
	userID, _ := c.Get("userID")
	roleID, _ := c.Get("roleID")

	status := c.Query("status")
	journalID := c.Query("journal_id")
	sectionID := c.Query("section_id")

	var submissions []models.Submission
	query := config.DB.Preload("Submitter").
		Preload("Journal").
		Preload("Section").
		Preload("Authors").
		Preload("Rounds").
		Where("deleted_at IS NULL")

	switch roleID.(int) {
	case models.RoleIDEditor:
	case models.RoleIDReviewer: // only submissions with an active assignment
		query = query.Where(
			"submission_id IN (?)",
			config.DB.Model(&models.ReviewAssignment{}).
				Select("review_rounds.submission_id").
				Joins("JOIN review_rounds ON review_rounds.round_id = review_assignments.round_id").
				Where("review_assignments.reviewer_id = ? AND review_assignments.cancelled = ?", userID, false),
		)
	default:
		query = query.Where("submitter_id = ?", userID)
	}

	if status != "" {
		query = query.Where("status = ?", status)
	}
	if journalID != "" {
		query = query.Where("journal_id = ?", journalID)
	}
	if sectionID != "" {
		query = query.Where("section_id = ?", sectionID)
	}

	if err := query.Order("created_at DESC").Find(&submissions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch submissions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"submissions": submissions,
		"total":       len(submissions),
	})
}

// GetSubmission returns a specific submission with workflow-derived fields.
func GetSubmission(c *gin.Context) {
	sub, ok := loadVisibleSubmission(c)
	if !ok {
		return
	}

	var rounds []models.ReviewRound
	if err := config.DB.Preload("Assignments").
		Where("submission_id = ?", sub.SubmissionID).
		Order("round ASC").
		Find(&rounds).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch review rounds"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"submission":         sub,
		"rounds":             rounds,
		"effective_status":   workflow.EffectiveStatus(sub, rounds),
		"effective_stage_id": workflow.EffectiveStageID(sub, rounds),
		"current_round":      workflow.CurrentRound(sub, rounds),
	})
}

// CreateSubmission starts a new submission in the incomplete status.
func CreateSubmission(c *gin.Context) {
	userID, _ := c.Get("userID")

	type authorInput struct {
		FirstName        string  `json:"first_name" binding:"required"`
		LastName         string  `json:"last_name" binding:"required"`
		Email            string  `json:"email" binding:"required"`
		Affiliation      *string `json:"affiliation"`
		IsPrimaryContact bool    `json:"is_primary_contact"`
	}

	var req struct {
		JournalID int           `json:"journal_id" binding:"required"`
		SectionID *int          `json:"section_id"`
		Title     string        `json:"title" binding:"required"`
		Abstract  string        `json:"abstract"`
		Authors   []authorInput `json:"authors"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var journal models.Journal
	if err := config.DB.Where("journal_id = ? AND delete_at IS NULL", req.JournalID).First(&journal).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid journal"})
		return
	}
	if req.SectionID != nil {
		var section models.Section
		if err := config.DB.Where("section_id = ? AND journal_id = ? AND delete_at IS NULL",
			*req.SectionID, req.JournalID).First(&section).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid section"})
			return
		}
	}

	for _, a := range req.Authors {
		if !utils.ValidateEmail(a.Email) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid author email: %s", a.Email)})
			return
		}
	}

	now := time.Now()
	submission := models.Submission{
		SubmissionNumber: newSubmissionNumber(now),
		JournalID:        req.JournalID,
		SectionID:        req.SectionID,
		Title:            utils.SanitizeInput(req.Title),
		Abstract:         utils.SanitizeInput(req.Abstract),
		Status:           string(workflow.StatusIncomplete),
		StageID:          workflow.StageSubmission,
		SubmitterID:      userID.(int),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&submission).Error; err != nil {
			return err
		}
		for i, a := range req.Authors {
			author := models.SubmissionAuthor{
				SubmissionID:     submission.SubmissionID,
				FirstName:        utils.SanitizeInput(a.FirstName),
				LastName:         utils.SanitizeInput(a.LastName),
				Email:            a.Email,
				Affiliation:      a.Affiliation,
				IsPrimaryContact: a.IsPrimaryContact,
				DisplayOrder:     i + 1,
				CreateAt:         now,
			}
			if err := tx.Create(&author).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create submission"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"submission": submission,
	})
}

// UpdateSubmission lets the submitter edit metadata while the submission is
// still incomplete.
func UpdateSubmission(c *gin.Context) {
	sub, ok := loadOwnSubmission(c)
	if !ok {
		return
	}

	if workflow.Status(sub.Status) != workflow.StatusIncomplete {
		c.JSON(http.StatusConflict, gin.H{"error": "Submission can no longer be edited"})
		return
	}

	var req struct {
		Title     *string `json:"title"`
		Abstract  *string `json:"abstract"`
		SectionID *int    `json:"section_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	if req.Title != nil {
		updates["title"] = utils.SanitizeInput(*req.Title)
	}
	if req.Abstract != nil {
		updates["abstract"] = utils.SanitizeInput(*req.Abstract)
	}
	if req.SectionID != nil {
		updates["section_id"] = *req.SectionID
	}

	if err := config.DB.Model(&models.Submission{}).
		Where("submission_id = ?", sub.SubmissionID).
		Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update submission"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SubmitSubmission completes intake: incomplete -> submitted.
func SubmitSubmission(c *gin.Context) {
	sub, ok := loadOwnSubmission(c)
	if !ok {
		return
	}

	from := workflow.Status(sub.Status)
	if !workflow.CanTransition(from, workflow.StatusSubmitted) {
		c.JSON(http.StatusConflict, gin.H{
			"error": fmt.Sprintf("Submission %d cannot be submitted from status %s", sub.SubmissionID, from),
		})
		return
	}

	var authorCount int64
	config.DB.Model(&models.SubmissionAuthor{}).
		Where("submission_id = ?", sub.SubmissionID).
		Count(&authorCount)
	if authorCount == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one author is required before submitting"})
		return
	}

	userID, _ := c.Get("userID")
	now := time.Now()
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Submission{}).
			Where("submission_id = ?", sub.SubmissionID).
			Updates(map[string]interface{}{
				"status":       string(workflow.StatusSubmitted),
				"submitted_at": now,
				"updated_at":   now,
			}).Error; err != nil {
			return err
		}
		old := sub.Status
		history := models.SubmissionStatusHistory{
			SubmissionID: sub.SubmissionID,
			OldStatus:    &old,
			NewStatus:    string(workflow.StatusSubmitted),
			ChangedBy:    userID.(int),
			CreatedAt:    now,
		}
		return tx.Create(&history).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  workflow.StatusSubmitted,
	})
}

// ReplaceAuthors swaps the ordered author list while intake is open.
func ReplaceAuthors(c *gin.Context) {
	sub, ok := loadOwnSubmission(c)
	if !ok {
		return
	}

	if workflow.Status(sub.Status) != workflow.StatusIncomplete {
		c.JSON(http.StatusConflict, gin.H{"error": "Author list can no longer be edited"})
		return
	}

	var req struct {
		Authors []struct {
			FirstName        string  `json:"first_name" binding:"required"`
			LastName         string  `json:"last_name" binding:"required"`
			Email            string  `json:"email" binding:"required"`
			Affiliation      *string `json:"affiliation"`
			IsPrimaryContact bool    `json:"is_primary_contact"`
		} `json:"authors" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	primaries := 0
	for _, a := range req.Authors {
		if !utils.ValidateEmail(a.Email) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid author email: %s", a.Email)})
			return
		}
		if a.IsPrimaryContact {
			primaries++
		}
	}
	if primaries != 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Exactly one author must be the primary contact"})
		return
	}

	now := time.Now()
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("submission_id = ?", sub.SubmissionID).
			Delete(&models.SubmissionAuthor{}).Error; err != nil {
			return err
		}
		for i, a := range req.Authors {
			author := models.SubmissionAuthor{
				SubmissionID:     sub.SubmissionID,
				FirstName:        utils.SanitizeInput(a.FirstName),
				LastName:         utils.SanitizeInput(a.LastName),
				Email:            a.Email,
				Affiliation:      a.Affiliation,
				IsPrimaryContact: a.IsPrimaryContact,
				DisplayOrder:     i + 1,
				CreateAt:         now,
			}
			if err := tx.Create(&author).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update authors"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetStatusHistory returns the audit trail of status changes.
func GetStatusHistory(c *gin.Context) {
	sub, ok := loadVisibleSubmission(c)
	if !ok {
		return
	}

	var history []models.SubmissionStatusHistory
	if err := config.DB.Where("submission_id = ?", sub.SubmissionID).
		Order("created_at ASC").
		Find(&history).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"history": history,
	})
}

// ===================== helpers =====================

func submissionIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return 0, false
	}
	return id, true
}

// loadVisibleSubmission fetches the submission if the caller may see it.
func loadVisibleSubmission(c *gin.Context) (*models.Submission, bool) {
	id, ok := submissionIDParam(c)
	if !ok {
		return nil, false
	}

	userID, _ := c.Get("userID")
	roleID, _ := c.Get("roleID")

	query := config.DB.Preload("Submitter").
		Preload("Journal").
		Preload("Section").
		Preload("Authors").
		Where("submission_id = ? AND deleted_at IS NULL", id)

	switch roleID.(int) {
	case models.RoleIDEditor:
	case models.RoleIDReviewer:
		query = query.Where(
			"submission_id IN (?)",
			config.DB.Model(&models.ReviewAssignment{}).
				Select("review_rounds.submission_id").
				Joins("JOIN review_rounds ON review_rounds.round_id = review_assignments.round_id").
				Where("review_assignments.reviewer_id = ? AND review_assignments.cancelled = ?", userID, false),
		)
	default:
		query = query.Where("submitter_id = ?", userID)
	}

	var sub models.Submission
	if err := query.First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load submission"})
		}
		return nil, false
	}
	return &sub, true
}

// loadOwnSubmission fetches the submission only if the caller submitted it.
func loadOwnSubmission(c *gin.Context) (*models.Submission, bool) {
	id, ok := submissionIDParam(c)
	if !ok {
		return nil, false
	}

	userID, _ := c.Get("userID")

	var sub models.Submission
	if err := config.DB.
		Where("submission_id = ? AND submitter_id = ? AND deleted_at IS NULL", id, userID).
		First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load submission"})
		}
		return nil, false
	}
	return &sub, true
}

func newSubmissionNumber(now time.Time) string {
	return fmt.Sprintf("SUB-%d-%s", now.Year(), uuid.NewString()[:8])
}
