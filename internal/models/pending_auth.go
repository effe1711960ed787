package models

import (
	"time"
)

// PendingAuthentication is a code-relay login waiting for the bot side. Code and
// PlatformID stay empty until the bot attaches them; ExpiresAt never moves. Attempts
// counts wrong codes tried against this record.
type PendingAuthentication struct {
	Username   string    `json:"username"`
	Code       string    `json:"code,omitempty"`
	PlatformID int64     `json:"platform_id,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
	Attempts   int       `json:"attempts,omitempty"`
}

// HasCode reports whether the bot side has attached a code yet.
func (p PendingAuthentication) HasCode() bool {
	return p.Code != ""
}

// Expired uses a strict comparison: a record is still valid at exactly ExpiresAt.
func (p PendingAuthentication) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
