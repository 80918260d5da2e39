package models

import "time"

// ReviewRound is one complete cycle of peer review for a submission.
// Rounds are never reused: a resubmission after requested revisions opens
// a new round. The unique index on (submission_id, round) is what makes
// concurrent send-to-review calls collapse to a single round.
type ReviewRound struct {
	RoundID      int       `gorm:"primaryKey;column:round_id" json:"round_id"`
	SubmissionID int       `gorm:"column:submission_id;uniqueIndex:uq_submission_round" json:"submission_id"`
	Round        int       `gorm:"column:round;uniqueIndex:uq_submission_round" json:"round"`
	DateCreated  time.Time `gorm:"column:date_created" json:"date_created"`

	Assignments []ReviewAssignment `gorm:"foreignKey:RoundID" json:"assignments,omitempty"`
}

// TableName specifies the table for ReviewRound.
func (ReviewRound) TableName() string {
	return "review_rounds"
}
