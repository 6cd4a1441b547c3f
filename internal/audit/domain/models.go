package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AuditLog records sensitive transitions: approval decisions, rule changes,
// role changes, account lifecycle events.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	CompanyID  snowflake.ID      `gorm:"not null;index" json:"company_id"`
	ActorID    *snowflake.ID     `gorm:"index" json:"actor_id,omitempty"`
	Action     string            `gorm:"not null;index" json:"action"`
	TargetType string            `gorm:"not null" json:"target_type"`
	TargetID   *string           `json:"target_id,omitempty"`
	Detail     datatypes.JSONMap `gorm:"type:jsonb" json:"detail,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
