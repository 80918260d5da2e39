package models

import (
	"time"
)

// Role IDs as seeded in the roles table.
const (
	RoleIDAuthor   = 1
	RoleIDReviewer = 2
	RoleIDEditor   = 3
)

type User struct {
	UserID      int        `gorm:"primaryKey;column:user_id" json:"user_id"`
	UserFname   string     `gorm:"column:user_fname" json:"user_fname"`
	UserLname   string     `gorm:"column:user_lname" json:"user_lname"`
	Email       string     `gorm:"column:email;unique" json:"email"`
	Password    string     `gorm:"column:password" json:"-"`
	RoleID      int        `gorm:"column:role_id" json:"role_id"`
	Affiliation *string    `gorm:"column:affiliation" json:"affiliation,omitempty"`
	Country     *string    `gorm:"column:country" json:"country,omitempty"`
	OrcidID     *string    `gorm:"column:orcid_id" json:"orcid_id,omitempty"`
	CreateAt    *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt    *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt    *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	// Relations
	Role Role `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}

type Role struct {
	RoleID   int        `gorm:"primaryKey;column:role_id" json:"role_id"`
	Role     string     `gorm:"column:role" json:"role"`
	CreateAt *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// UserSession stores refresh-token sessions so individual devices can be
// revoked without touching the password.
type UserSession struct {
	SessionID    string     `gorm:"primaryKey;column:session_id" json:"session_id"`
	UserID       int        `gorm:"column:user_id" json:"user_id"`
	RefreshToken string     `gorm:"column:refresh_token" json:"-"`
	UserAgent    *string    `gorm:"column:user_agent" json:"user_agent,omitempty"`
	IPAddress    string     `gorm:"column:ip_address" json:"ip_address"`
	ExpiresAt    time.Time  `gorm:"column:expires_at" json:"expires_at"`
	RevokedAt    *time.Time `gorm:"column:revoked_at" json:"revoked_at,omitempty"`
	CreateAt     time.Time  `gorm:"column:create_at" json:"create_at"`
}

// TableName overrides
func (User) TableName() string {
	return "users"
}

func (Role) TableName() string {
	return "roles"
}

func (UserSession) TableName() string {
	return "user_sessions"
}

func (u *User) FullName() string {
	return u.UserFname + " " + u.UserLname
}
