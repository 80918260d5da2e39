package models

import "time"

// Journal is a read model only: journal configuration is managed by a
// separate admin surface and referenced here for context on submissions.
type Journal struct {
	JournalID   int        `gorm:"primaryKey;column:journal_id" json:"journal_id"`
	JournalName string     `gorm:"column:journal_name" json:"journal_name"`
	Path        string     `gorm:"column:path" json:"path"`
	ISSN        *string    `gorm:"column:issn" json:"issn,omitempty"`
	CreateAt    time.Time  `gorm:"column:create_at" json:"create_at"`
	UpdateAt    time.Time  `gorm:"column:update_at" json:"update_at"`
	DeleteAt    *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// Section is a read model for journal sections (articles, reviews, ...).
type Section struct {
	SectionID    int        `gorm:"primaryKey;column:section_id" json:"section_id"`
	JournalID    int        `gorm:"column:journal_id" json:"journal_id"`
	SectionTitle string     `gorm:"column:section_title" json:"section_title"`
	Abbrev       string     `gorm:"column:abbrev" json:"abbrev"`
	CreateAt     time.Time  `gorm:"column:create_at" json:"create_at"`
	UpdateAt     time.Time  `gorm:"column:update_at" json:"update_at"`
	DeleteAt     *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// TableName overrides
func (Journal) TableName() string {
	return "journals"
}

func (Section) TableName() string {
	return "sections"
}
