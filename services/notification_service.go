package services

import (
	"fmt"
	"log"

	"journal-api/config"
	"journal-api/models"
	"journal-api/workflow"

	"gorm.io/gorm"
)

// WorkflowNotifier writes in-app notifications and sends templated emails
// for workflow events. Every method is fire-and-forget: failures are logged
// and never propagate back into the command that triggered them.
type WorkflowNotifier struct {
	db *gorm.DB
}

func NewWorkflowNotifier(db *gorm.DB) *WorkflowNotifier {
	return &WorkflowNotifier{db: db}
}

func (n *WorkflowNotifier) SentToReview(sub *models.Submission, round *models.ReviewRound) {
	title := "Submission sent to review"
	message := fmt.Sprintf("Submission %s entered review round %d.", sub.SubmissionNumber, round.Round)
	n.deliver(sub.SubmitterID, title, message, "info", sub.SubmissionID)
}

func (n *WorkflowNotifier) ReviewerAssigned(sub *models.Submission, a *models.ReviewAssignment) {
	title := "New review assignment"
	message := fmt.Sprintf("You have been asked to review submission %s. The review is due on %s.",
		sub.SubmissionNumber, a.DateDue.Format("2 Jan 2006"))
	n.deliver(a.ReviewerID, title, message, "info", sub.SubmissionID)
}

func (n *WorkflowNotifier) DecisionRecorded(sub *models.Submission, d *models.EditorialDecision, newStatus workflow.Status) {
	var title, kind string
	switch newStatus {
	case workflow.StatusAccepted:
		title = "Submission accepted"
		kind = "success"
	case workflow.StatusDeclined:
		title = "Submission declined"
		kind = "error"
	default:
		title = "Revisions requested"
		kind = "warning"
	}
	message := fmt.Sprintf("An editorial decision (%s) was recorded on submission %s.", d.Decision, sub.SubmissionNumber)
	if d.Comments != nil && *d.Comments != "" {
		message += " Editor comments: " + *d.Comments
	}
	n.deliver(sub.SubmitterID, title, message, kind, sub.SubmissionID)
}

func (n *WorkflowNotifier) Resubmitted(sub *models.Submission, round *models.ReviewRound) {
	title := "Revisions resubmitted"
	message := fmt.Sprintf("The author resubmitted %s; review round %d is open.", sub.SubmissionNumber, round.Round)
	// Notify every editor, not just the submitter.
	var editors []models.User
	if err := n.db.Where("role_id = ? AND delete_at IS NULL", models.RoleIDEditor).Find(&editors).Error; err != nil {
		log.Printf("Warning: failed to load editors for notification: %v", err)
		return
	}
	for _, editor := range editors {
		n.deliver(editor.UserID, title, message, "info", sub.SubmissionID)
	}
}

// deliver writes the in-app row synchronously and sends the email copy in
// the background.
func (n *WorkflowNotifier) deliver(userID int, title, message, kind string, submissionID int) {
	related := uint(submissionID)
	notification := models.Notification{
		UserID:              uint(userID),
		Title:               title,
		Message:             message,
		Type:                kind,
		RelatedSubmissionID: &related,
	}
	if err := n.db.Create(&notification).Error; err != nil {
		log.Printf("Warning: failed to create notification for user %d: %v", userID, err)
	}

	var user models.User
	if err := n.db.Select("user_id", "email", "user_fname", "user_lname").
		Where("user_id = ? AND delete_at IS NULL", userID).
		First(&user).Error; err != nil {
		return
	}
	if user.Email == "" {
		return
	}

	go func(to, subject, body string) {
		html := fmt.Sprintf("<p>Dear %s,</p><p>%s</p><p>— The editorial team</p>", user.FullName(), body)
		if err := config.SendMail([]string{to}, subject, html); err != nil {
			log.Printf("Warning: failed to send %q email to %s: %v", subject, to, err)
		}
	}(user.Email, title, message)
}
