package models

import (
	"time"
)

// Player is the local account behind a Telegram user. ID is the surrogate key carried
// in session tokens, TelegramID the platform identity it was resolved from.
type Player struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TelegramID  int64     `gorm:"uniqueIndex;not null" json:"telegram_id"`
	Username    string    `gorm:"index" json:"username"`
	DisplayName string    `json:"display_name"`
	Role        string    `gorm:"default:'player'" json:"role"`
	LastLoginAt time.Time `json:"last_login_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Player) TableName() string {
	return "players"
}

const (
	RolePlayer = "player"
	RoleAdmin  = "admin"
)
