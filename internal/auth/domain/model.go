// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User is a login account. Operators are bound to one hamlet.
type User struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"-"`
	Username     string       `gorm:"type:varchar(128);not null;uniqueIndex" json:"username"`
	PasswordHash string       `gorm:"column:password_hash;type:text;not null" json:"-"`
	Role         string       `gorm:"type:varchar(32);not null;index" json:"role"`
	Hamlet       *string      `gorm:"type:varchar(128)" json:"hamlet"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

func (u User) HamletName() string {
	if u.Hamlet == nil {
		return ""
	}
	return *u.Hamlet
}

// Session represents a persisted login session.
type Session struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	UserID           snowflake.ID `gorm:"column:user_id;not null;index"`
	SessionTokenHash string       `gorm:"column:session_token_hash;type:varchar(64);not null;uniqueIndex"`
	UserAgent        string       `gorm:"column:user_agent;type:text"`
	IPAddress        string       `gorm:"column:ip_address;type:text"`
	ExpiresAt        time.Time    `gorm:"column:expires_at;not null;index"`
	RevokedAt        *time.Time   `gorm:"column:revoked_at"`
	CreatedAt        time.Time    `gorm:"column:created_at;not null"`
	LastSeenAt       time.Time    `gorm:"column:last_seen_at;not null"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }
