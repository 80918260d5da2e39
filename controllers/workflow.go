// controllers/workflow.go
package controllers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"journal-api/config"
	"journal-api/metrics"
	"journal-api/models"
	"journal-api/services"
	"journal-api/workflow"

	"github.com/gin-gonic/gin"
)

// ===================== WORKFLOW COMMANDS =====================

func newEngine() *workflow.Engine {
	store := services.NewWorkflowStore(config.DB)
	notifier := services.NewWorkflowNotifier(config.DB)
	return workflow.NewEngine(store, notifier)
}

func currentActor(c *gin.Context) workflow.Actor {
	userID, _ := c.Get("userID")
	roleID, _ := c.Get("roleID")

	role := workflow.RoleSubmitter
	switch roleID.(int) {
	case models.RoleIDEditor:
		role = workflow.RoleEditor
	case models.RoleIDReviewer:
		role = workflow.RoleReviewer
	}
	return workflow.Actor{UserID: userID.(int), Role: role}
}

// SendToReview opens the first review round for a submission.
func SendToReview(c *gin.Context) {
	id, ok := submissionIDParam(c)
	if !ok {
		return
	}
	actor := currentActor(c)

	out, err := newEngine().SendToReview(c.Request.Context(), actor, id)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	metrics.RoundsCreated.Inc()
	writeWorkflowAudit(c, actor.UserID, "send_to_review", out, "Submission sent to review")

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  out,
	})
}

// AssignReviewer adds a reviewer to a round, opening round 1 first when
// review has not started yet.
func AssignReviewer(c *gin.Context) {
	id, ok := submissionIDParam(c)
	if !ok {
		return
	}
	actor := currentActor(c)

	var req struct {
		ReviewerID int    `json:"reviewer_id" binding:"required"`
		RoundID    *int   `json:"round_id"`
		DueDate    string `json:"due_date" binding:"required"` // YYYY-MM-DD
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "due_date must be YYYY-MM-DD"})
		return
	}

	// Reviewer must be an existing, active reviewer-capable account.
	var reviewer models.User
	if err := config.DB.Where("user_id = ? AND delete_at IS NULL", req.ReviewerID).First(&reviewer).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Reviewer not found"})
		return
	}

	hadRounds := roundCount(id) > 0

	out, err := newEngine().AssignReviewer(c.Request.Context(), actor, id, req.ReviewerID, req.RoundID, dueDate)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	metrics.AssignmentsCreated.Inc()
	if !hadRounds {
		metrics.RoundsCreated.Inc()
	}
	writeWorkflowAudit(c, actor.UserID, "assign_reviewer", out, "Reviewer assigned")

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  out,
	})
}

// RecordDecision appends an editorial decision on the latest round.
func RecordDecision(c *gin.Context) {
	id, ok := submissionIDParam(c)
	if !ok {
		return
	}
	actor := currentActor(c)

	var req struct {
		Decision string `json:"decision" binding:"required"`
		Comments string `json:"comments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decision := workflow.Decision(strings.ToLower(strings.TrimSpace(req.Decision)))

	out, err := newEngine().RecordDecision(c.Request.Context(), actor, id, decision, strings.TrimSpace(req.Comments))
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	metrics.DecisionsRecorded.WithLabelValues(string(decision)).Inc()
	writeWorkflowAudit(c, actor.UserID, "record_decision", out, "Editorial decision recorded")

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  out,
	})
}

// Resubmit lets the submitter return a revision-required submission to
// review; a fresh round is opened.
func Resubmit(c *gin.Context) {
	id, ok := submissionIDParam(c)
	if !ok {
		return
	}
	actor := currentActor(c)

	out, err := newEngine().Resubmit(c.Request.Context(), actor, id)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	metrics.RoundsCreated.Inc()
	writeWorkflowAudit(c, actor.UserID, "resubmit", out, "Revisions resubmitted")

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  out,
	})
}

// Publish marks an accepted submission as published.
func Publish(c *gin.Context) {
	id, ok := submissionIDParam(c)
	if !ok {
		return
	}
	actor := currentActor(c)

	out, err := newEngine().Publish(c.Request.Context(), actor, id)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	writeWorkflowAudit(c, actor.UserID, "publish", out, "Submission published")

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  out,
	})
}

// ===================== WORKFLOW QUERIES =====================

// GetAllowedActions returns the workflow commands available to the caller.
func GetAllowedActions(c *gin.Context) {
	id, ok := submissionIDParam(c)
	if !ok {
		return
	}
	actor := currentActor(c)

	actions, err := newEngine().AllowedActionsFor(c.Request.Context(), actor, id)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	if actions == nil {
		actions = []workflow.Action{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"actions": actions,
	})
}

// GetRounds lists a submission's review rounds with derived assignment states.
func GetRounds(c *gin.Context) {
	sub, ok := loadVisibleSubmission(c)
	if !ok {
		return
	}

	var rounds []models.ReviewRound
	if err := config.DB.Preload("Assignments").
		Where("submission_id = ?", sub.SubmissionID).
		Order("round ASC").
		Find(&rounds).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rounds"})
		return
	}

	now := time.Now()
	type assignmentView struct {
		models.ReviewAssignment
		State string `json:"status"`
	}
	type roundView struct {
		models.ReviewRound
		Progress    workflow.Progress `json:"progress"`
		Assignments []assignmentView  `json:"assignments"`
	}

	views := make([]roundView, 0, len(rounds))
	for _, r := range rounds {
		view := roundView{ReviewRound: r, Progress: workflow.ReviewProgress(r.Assignments)}
		for _, a := range r.Assignments {
			view.Assignments = append(view.Assignments, assignmentView{
				ReviewAssignment: a,
				State:            workflow.AssignmentState(&a, now),
			})
		}
		view.ReviewRound.Assignments = nil
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"rounds":  views,
	})
}

// GetRoundProgress returns completed/total counts for one round.
func GetRoundProgress(c *gin.Context) {
	roundID, err := strconv.Atoi(c.Param("round_id"))
	if err != nil || roundID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid round ID"})
		return
	}

	progress, perr := newEngine().RoundProgress(c.Request.Context(), roundID)
	if perr != nil {
		respondWorkflowError(c, perr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"progress": progress,
	})
}

// GetReviews returns the flattened reviewer assignments for a submission.
func GetReviews(c *gin.Context) {
	sub, ok := loadVisibleSubmission(c)
	if !ok {
		return
	}

	store := services.NewWorkflowStore(config.DB)
	reviews, err := store.Reviews().ListReviews(c.Request.Context(), sub.SubmissionID)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"reviews": reviews,
		"total":   len(reviews),
	})
}

// GetLatestDecision returns the most recent editorial decision.
func GetLatestDecision(c *gin.Context) {
	sub, ok := loadVisibleSubmission(c)
	if !ok {
		return
	}

	store := services.NewWorkflowStore(config.DB)
	decision, err := store.Decisions().Latest(c.Request.Context(), sub.SubmissionID)
	if err != nil {
		if errors.Is(err, workflow.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"success": true, "decision": nil})
			return
		}
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"decision": decision,
	})
}

// ===================== helpers =====================

// respondWorkflowError maps engine failures onto HTTP statuses with enough
// detail for the client to render an actionable message.
func respondWorkflowError(c *gin.Context, err error) {
	var invalid *workflow.InvalidStateTransitionError
	var duplicate *workflow.DuplicateAssignmentError
	var noRound *workflow.NoActiveRoundError
	var validation *workflow.ValidationError
	var unavailable *workflow.StoreUnavailableError

	switch {
	case errors.Is(err, workflow.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
	case errors.Is(err, workflow.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
	case errors.As(err, &invalid):
		c.JSON(http.StatusConflict, gin.H{
			"error":         invalid.Error(),
			"submission_id": invalid.SubmissionID,
			"status":        invalid.Status,
			"stage_id":      invalid.StageID,
		})
	case errors.As(err, &duplicate):
		c.JSON(http.StatusConflict, gin.H{"error": duplicate.Error()})
	case errors.As(err, &noRound):
		c.JSON(http.StatusNotFound, gin.H{"error": noRound.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	case errors.As(err, &unavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Backend temporarily unavailable, please retry"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unexpected workflow failure"})
	}
}

func roundCount(submissionID int) int64 {
	var n int64
	config.DB.Model(&models.ReviewRound{}).Where("submission_id = ?", submissionID).Count(&n)
	return n
}

func writeWorkflowAudit(c *gin.Context, userID int, action string, out *workflow.Outcome, description string) {
	serialized, _ := json.Marshal(out)
	entityID := out.SubmissionID
	values := string(serialized)

	audit := models.AuditLog{
		UserID:      userID,
		Action:      action,
		EntityType:  "submission",
		EntityID:    &entityID,
		NewValues:   &values,
		Description: &description,
		IPAddress:   c.ClientIP(),
		CreatedAt:   time.Now(),
	}
	if ua := c.GetHeader("User-Agent"); strings.TrimSpace(ua) != "" {
		audit.UserAgent = &ua
	}

	// Audit failures must not fail the command that already committed.
	if err := config.DB.Create(&audit).Error; err != nil {
		log.Printf("Warning: failed to write audit log for %s: %v", action, err)
	}
}
