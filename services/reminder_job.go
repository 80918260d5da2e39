package services

import (
	"fmt"
	"log"
	"os"
	"time"

	"journal-api/models"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// StartReminderScheduler runs a daily scan for overdue review assignments
// and nudges the reviewer once per day. Schedule comes from REMINDER_CRON
// (default 08:00 every day).
func StartReminderScheduler(db *gorm.DB) *cron.Cron {
	schedule := os.Getenv("REMINDER_CRON")
	if schedule == "" {
		schedule = "0 8 * * *"
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(schedule, func() {
		count, err := SendOverdueReminders(db, time.Now())
		if err != nil {
			log.Printf("Reminder job failed: %v", err)
			return
		}
		if count > 0 {
			log.Printf("Reminder job sent %d overdue reminders", count)
		}
	}); err != nil {
		log.Printf("Warning: invalid REMINDER_CRON %q: %v", schedule, err)
		return scheduler
	}
	scheduler.Start()
	return scheduler
}

// SendOverdueReminders notifies reviewers whose assignments are past due
// and not completed or cancelled. Returns how many reminders went out.
func SendOverdueReminders(db *gorm.DB, now time.Time) (int, error) {
	cutoff := now.Add(-24 * time.Hour)

	var overdue []models.ReviewAssignment
	err := db.
		Joins("JOIN review_rounds ON review_rounds.round_id = review_assignments.round_id").
		Where("review_assignments.date_due < ?", now).
		Where("review_assignments.date_completed IS NULL").
		Where("review_assignments.cancelled = ?", false).
		Where("review_assignments.reminder_sent_at IS NULL OR review_assignments.reminder_sent_at < ?", cutoff).
		Preload("Reviewer").
		Find(&overdue).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load overdue assignments: %w", err)
	}

	notifier := NewWorkflowNotifier(db)
	sent := 0
	for i := range overdue {
		a := &overdue[i]

		var round models.ReviewRound
		if err := db.First(&round, a.RoundID).Error; err != nil {
			continue
		}
		var sub models.Submission
		if err := db.Where("submission_id = ?", round.SubmissionID).First(&sub).Error; err != nil {
			continue
		}

		days := int(now.Sub(a.DateDue).Hours() / 24)
		message := fmt.Sprintf("Your review of submission %s was due on %s (%d day(s) ago).",
			sub.SubmissionNumber, a.DateDue.Format("2 Jan 2006"), days)
		notifier.deliver(a.ReviewerID, "Review overdue", message, "warning", sub.SubmissionID)

		if err := db.Model(&models.ReviewAssignment{}).
			Where("assignment_id = ?", a.AssignmentID).
			Update("reminder_sent_at", now).Error; err != nil {
			log.Printf("Warning: failed to stamp reminder for assignment %d: %v", a.AssignmentID, err)
			continue
		}
		sent++
	}
	return sent, nil
}
