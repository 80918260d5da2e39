package models

import "time"

// ReviewAssignment pairs one reviewer with one review round. The overdue
// state is derived from date_due at read time and never persisted.
type ReviewAssignment struct {
	AssignmentID     int        `gorm:"primaryKey;column:assignment_id" json:"assignment_id"`
	RoundID          int        `gorm:"column:round_id" json:"round_id"`
	ReviewerID       int        `gorm:"column:reviewer_id" json:"reviewer_id"`
	DateAssigned     time.Time  `gorm:"column:date_assigned" json:"date_assigned"`
	DateDue          time.Time  `gorm:"column:date_due" json:"date_due"`
	DateConfirmed    *time.Time `gorm:"column:date_confirmed" json:"date_confirmed,omitempty"`
	DateCompleted    *time.Time `gorm:"column:date_completed" json:"date_completed,omitempty"`
	Recommendation   *string    `gorm:"column:recommendation" json:"recommendation,omitempty"`
	CommentsToEditor *string    `gorm:"column:comments_to_editor" json:"comments_to_editor,omitempty"`
	Cancelled        bool       `gorm:"column:cancelled" json:"cancelled"`
	ReminderSentAt   *time.Time `gorm:"column:reminder_sent_at" json:"reminder_sent_at,omitempty"`

	Reviewer *User `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
}

// TableName specifies the table for ReviewAssignment.
func (ReviewAssignment) TableName() string {
	return "review_assignments"
}
