package models

import "time"

// Submission is the aggregate root of the editorial workflow. Status and
// stage_id are only mutated through workflow commands; rows are never
// deleted once a submission reaches a terminal status (audit requirement).
type Submission struct {
	SubmissionID     int        `gorm:"primaryKey;column:submission_id" json:"submission_id"`
	SubmissionNumber string     `gorm:"column:submission_number" json:"submission_number"`
	JournalID        int        `gorm:"column:journal_id" json:"journal_id"`
	SectionID        *int       `gorm:"column:section_id" json:"section_id,omitempty"`
	Title            string     `gorm:"column:title" json:"title"`
	Abstract         string     `gorm:"column:abstract" json:"abstract"`
	Status           string     `gorm:"column:status" json:"status"`
	StageID          int        `gorm:"column:stage_id" json:"stage_id"`
	CurrentRound     int        `gorm:"column:current_round" json:"current_round"`
	SubmitterID      int        `gorm:"column:submitter_id" json:"submitter_id"`
	SubmittedAt      *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	CreatedAt        time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt        *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`

	// Relations
	Submitter *User              `gorm:"foreignKey:SubmitterID" json:"submitter,omitempty"`
	Journal   *Journal           `gorm:"foreignKey:JournalID" json:"journal,omitempty"`
	Section   *Section           `gorm:"foreignKey:SectionID" json:"section,omitempty"`
	Authors   []SubmissionAuthor `gorm:"foreignKey:SubmissionID" json:"authors,omitempty"`
	Rounds    []ReviewRound      `gorm:"foreignKey:SubmissionID" json:"rounds,omitempty"`
}

// SubmissionAuthor is one entry of the ordered author list. Exactly one
// author per submission should carry the primary-contact flag.
type SubmissionAuthor struct {
	AuthorID         int        `gorm:"primaryKey;column:author_id" json:"author_id"`
	SubmissionID     int        `gorm:"column:submission_id" json:"submission_id"`
	FirstName        string     `gorm:"column:first_name" json:"first_name"`
	LastName         string     `gorm:"column:last_name" json:"last_name"`
	Email            string     `gorm:"column:email" json:"email"`
	Affiliation      *string    `gorm:"column:affiliation" json:"affiliation,omitempty"`
	IsPrimaryContact bool       `gorm:"column:is_primary_contact" json:"is_primary_contact"`
	DisplayOrder     int        `gorm:"column:display_order" json:"display_order"`
	CreateAt         time.Time  `gorm:"column:create_at" json:"create_at"`
	UpdateAt         *time.Time `gorm:"column:update_at" json:"update_at,omitempty"`
}

// TableName overrides
func (Submission) TableName() string {
	return "submissions"
}

func (SubmissionAuthor) TableName() string {
	return "submission_authors"
}
