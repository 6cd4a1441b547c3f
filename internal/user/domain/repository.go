package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListUserFilter struct {
	Role     Role
	IsActive *bool
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, companyID, id snowflake.ID) error
	FindByID(ctx context.Context, companyID, id snowflake.ID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// FindAnyByID looks a user up without a company scope; only session
	// authentication uses it.
	FindAnyByID(ctx context.Context, id snowflake.ID) (*User, error)
	List(ctx context.Context, companyID snowflake.ID, filter ListUserFilter) ([]User, error)
	// FirstActiveByRole returns the earliest-created active user holding role,
	// or nil when the company has none.
	FirstActiveByRole(ctx context.Context, companyID snowflake.ID, role Role) (*User, error)
	CountByManager(ctx context.Context, companyID, managerID snowflake.ID) (int64, error)
	// ClearManager detaches every report of managerID before a hard delete.
	ClearManager(ctx context.Context, companyID, managerID snowflake.ID) error
}
