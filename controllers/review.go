// controllers/review.go
package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"journal-api/config"
	"journal-api/models"
	"journal-api/workflow"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ===================== REVIEWER ACTIONS =====================

// GetMyAssignments lists the caller's review assignments with derived state.
func GetMyAssignments(c *gin.Context) {
	userID, _ := c.Get("userID")

	var assignments []models.ReviewAssignment
	if err := config.DB.
		Where("reviewer_id = ? AND cancelled = ?", userID, false).
		Order("date_due ASC").
		Find(&assignments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch assignments"})
		return
	}

	now := time.Now()
	type view struct {
		models.ReviewAssignment
		State string `json:"status"`
	}
	views := make([]view, 0, len(assignments))
	for i := range assignments {
		views = append(views, view{
			ReviewAssignment: assignments[i],
			State:            workflow.AssignmentState(&assignments[i], now),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"assignments": views,
		"total":       len(views),
	})
}

// ConfirmAssignment marks the review invitation accepted.
func ConfirmAssignment(c *gin.Context) {
	assignment, ok := loadOwnAssignment(c)
	if !ok {
		return
	}

	if assignment.DateConfirmed != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Assignment already confirmed"})
		return
	}
	if assignment.DateCompleted != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Assignment already completed"})
		return
	}

	now := time.Now()
	if err := config.DB.Model(&models.ReviewAssignment{}).
		Where("assignment_id = ?", assignment.AssignmentID).
		Update("date_confirmed", now).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to confirm assignment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CompleteReview records the reviewer's recommendation and closes the
// assignment. The recommendation feeds the editor's decision but never
// changes submission status by itself.
func CompleteReview(c *gin.Context) {
	assignment, ok := loadOwnAssignment(c)
	if !ok {
		return
	}

	if assignment.DateCompleted != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Review already completed"})
		return
	}

	var req struct {
		Recommendation   string `json:"recommendation" binding:"required"`
		CommentsToEditor string `json:"comments_to_editor"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recommendation := strings.ToLower(strings.TrimSpace(req.Recommendation))
	switch recommendation {
	case workflow.RecommendAccept, workflow.RecommendMinorRevisions,
		workflow.RecommendMajorRevisions, workflow.RecommendDecline:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recommendation"})
		return
	}

	now := time.Now()
	updates := map[string]interface{}{
		"date_completed": now,
		"recommendation": recommendation,
	}
	if comments := strings.TrimSpace(req.CommentsToEditor); comments != "" {
		updates["comments_to_editor"] = comments
	}

	if err := config.DB.Model(&models.ReviewAssignment{}).
		Where("assignment_id = ?", assignment.AssignmentID).
		Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to complete review"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CancelAssignment lets an editor withdraw a reviewer from a round.
func CancelAssignment(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("assignment_id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignment ID"})
		return
	}

	var assignment models.ReviewAssignment
	if err := config.DB.Where("assignment_id = ?", id).First(&assignment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Assignment not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load assignment"})
		}
		return
	}

	if assignment.Cancelled {
		c.JSON(http.StatusConflict, gin.H{"error": "Assignment already cancelled"})
		return
	}
	if assignment.DateCompleted != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Completed reviews cannot be cancelled"})
		return
	}

	if err := config.DB.Model(&models.ReviewAssignment{}).
		Where("assignment_id = ?", id).
		Update("cancelled", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel assignment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func loadOwnAssignment(c *gin.Context) (*models.ReviewAssignment, bool) {
	id, err := strconv.Atoi(c.Param("assignment_id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignment ID"})
		return nil, false
	}

	userID, _ := c.Get("userID")

	var assignment models.ReviewAssignment
	if err := config.DB.
		Where("assignment_id = ? AND reviewer_id = ? AND cancelled = ?", id, userID, false).
		First(&assignment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Assignment not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load assignment"})
		}
		return nil, false
	}
	return &assignment, true
}
