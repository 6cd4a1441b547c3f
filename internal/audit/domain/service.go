package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Action     string
	TargetType string
	StartAt    *time.Time
	EndAt      *time.Time
	Limit      int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, companyID snowflake.ID, filter ListFilter) ([]AuditLog, error)
}

// Recorder is the write side used by other features. Failures are logged,
// never propagated: an audit miss must not fail the business operation.
type Recorder interface {
	Record(ctx context.Context, action, targetType string, targetID string, detail map[string]any)
}

type Service interface {
	Recorder
	List(ctx context.Context, filter ListFilter) ([]AuditLog, error)
}

var ErrInvalidAction = errors.New("invalid audit action")
