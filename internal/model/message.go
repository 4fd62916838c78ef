package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one turn in a conversation. Messages are append-only and
// immutable once written; ordering within a session is by creation time.
type Message struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	SessionID string    `gorm:"type:char(36);not null;index" json:"session_id"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
