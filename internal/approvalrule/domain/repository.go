package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, rule *ApprovalRule) error
	Update(ctx context.Context, rule *ApprovalRule) error
	Delete(ctx context.Context, companyID, id snowflake.ID) error
	FindByID(ctx context.Context, companyID, id snowflake.ID) (*ApprovalRule, error)
	List(ctx context.Context, companyID snowflake.ID) ([]ApprovalRule, error)
	// ListActive returns active rules in ascending threshold order, the order
	// in which approval steps are generated.
	ListActive(ctx context.Context, companyID snowflake.ID) ([]ApprovalRule, error)
	ActiveThresholdExists(ctx context.Context, companyID snowflake.ID, threshold float64, excludeID snowflake.ID) (bool, error)
}
