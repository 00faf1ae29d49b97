package auth

import "time"

// Session is one admin login. Sessions are independent, so two browsers can be
// signed in at once.
type Session struct {
	SessionID string    `gorm:"primaryKey" json:"-"`
	Admin     bool      `gorm:"not null;default:false"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}

func (Session) TableName() string { return "admin_sessions" }
