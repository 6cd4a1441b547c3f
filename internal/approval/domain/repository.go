package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status Status
	// ApproverID restricts to a single approver's assignments; zero means
	// company-wide (admin view).
	ApproverID snowflake.ID
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	InsertBatch(ctx context.Context, entries []Approval) error
	Update(ctx context.Context, entry *Approval) error
	// FindByID loads the entry with its expense and the expense owner. The
	// company check happens through the joined expense row.
	FindByID(ctx context.Context, companyID, id snowflake.ID) (*Approval, error)
	ListByExpense(ctx context.Context, expenseID snowflake.ID) ([]Approval, error)
	List(ctx context.Context, companyID snowflake.ID, filter ListFilter) ([]Approval, error)
	CountPending(ctx context.Context, expenseID snowflake.ID) (int64, error)
	// MinPendingOrder returns the lowest step order still pending, or 0 when
	// none remain.
	MinPendingOrder(ctx context.Context, expenseID snowflake.ID) (int, error)
	Stats(ctx context.Context, companyID, approverID snowflake.ID, monthStart time.Time) (*Stats, error)
	HasPendingAtOrAbove(ctx context.Context, companyID snowflake.ID, threshold float64) (bool, error)
	HasPendingByApprover(ctx context.Context, companyID, approverID snowflake.ID) (bool, error)
	DeleteByExpense(ctx context.Context, expenseID snowflake.ID) error
}
