package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListExpenseFilter struct {
	Status   Status
	Category Category
	UserID   snowflake.ID
	DateFrom *time.Time
	DateTo   *time.Time
}

// CategoryTotal is a dashboard aggregate row.
type CategoryTotal struct {
	Category Category `json:"category"`
	Count    int64    `json:"count"`
	Total    float64  `json:"total"`
}

type StatusCount struct {
	Status Status `json:"status"`
	Count  int64  `json:"count"`
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, expense *Expense) error
	Update(ctx context.Context, expense *Expense) error
	Delete(ctx context.Context, companyID, id snowflake.ID) error
	FindByID(ctx context.Context, companyID, id snowflake.ID) (*Expense, error)
	// List applies the filter within the company, restricted by scope (a gorm
	// scope built from the caller's visibility).
	List(ctx context.Context, companyID snowflake.ID, filter ListExpenseFilter, scope func(*gorm.DB) *gorm.DB) ([]Expense, error)

	CountByStatus(ctx context.Context, companyID snowflake.ID) ([]StatusCount, error)
	SumApproved(ctx context.Context, companyID snowflake.ID, from, to *time.Time) (float64, error)
	TotalsByCategory(ctx context.Context, companyID snowflake.ID) ([]CategoryTotal, error)
	HasSettledByUser(ctx context.Context, companyID, userID snowflake.ID) (bool, error)
	HasPendingByUser(ctx context.Context, companyID, userID snowflake.ID) (bool, error)
}
