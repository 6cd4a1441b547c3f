package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Session is an opaque-token web session. Only the SHA-256 of the raw token
// is stored.
type Session struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID     snowflake.ID `gorm:"not null;index" json:"user_id"`
	TokenHash  string       `gorm:"not null;uniqueIndex" json:"-"`
	UserAgent  string       `json:"user_agent,omitempty"`
	IPAddress  string       `json:"ip_address,omitempty"`
	ExpiresAt  time.Time    `gorm:"not null" json:"expires_at"`
	RevokedAt  *time.Time   `json:"revoked_at,omitempty"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	LastSeenAt time.Time    `gorm:"not null" json:"last_seen_at"`
}

func (Session) TableName() string {
	return "sessions"
}
