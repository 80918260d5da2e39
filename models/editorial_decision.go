package models

import "time"

// EditorialDecision is an append-only record of an editor's judgment on a
// review round. The unique index on round_id is the store-side guard
// against two conflicting decisions closing the same round.
type EditorialDecision struct {
	DecisionID   int       `gorm:"primaryKey;column:decision_id" json:"decision_id"`
	SubmissionID int       `gorm:"column:submission_id" json:"submission_id"`
	RoundID      int       `gorm:"column:round_id;uniqueIndex:uq_decision_round" json:"round_id"`
	Decision     string    `gorm:"column:decision" json:"decision"`
	Comments     *string   `gorm:"column:comments" json:"comments,omitempty"`
	DecidedBy    int       `gorm:"column:decided_by" json:"decided_by"`
	DateDecided  time.Time `gorm:"column:date_decided" json:"date_decided"`

	Editor *User `gorm:"foreignKey:DecidedBy" json:"editor,omitempty"`
}

// TableName specifies the table for EditorialDecision.
func (EditorialDecision) TableName() string {
	return "editorial_decisions"
}
