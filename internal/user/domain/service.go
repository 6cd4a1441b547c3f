package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateUserRequest struct {
	Email     string        `json:"email"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	Role      Role          `json:"role"`
	ManagerID *snowflake.ID `json:"manager_id,string,omitempty"`
}

type UpdateUserRequest struct {
	FirstName *string       `json:"first_name,omitempty"`
	LastName  *string       `json:"last_name,omitempty"`
	Role      *Role         `json:"role,omitempty"`
	ManagerID *snowflake.ID `json:"manager_id,string,omitempty"`
	IsActive  *bool         `json:"is_active,omitempty"`
}

type ListUserRequest struct {
	Role     Role
	IsActive *bool
}

// ExpenseGuard breaks the dependency cycle with the expense feature: deleting
// a user must degrade to deactivation once they own settled expenses, and is
// refused while pending expenses or pending approval steps still reference
// them.
type ExpenseGuard interface {
	OwnsSettledExpenses(ctx context.Context, companyID, userID snowflake.ID) (bool, error)
	// HasOpenItems reports whether the user owns a pending expense or is the
	// assignee of a pending approval step.
	HasOpenItems(ctx context.Context, companyID, userID snowflake.ID) (bool, error)
}

type Service interface {
	Create(ctx context.Context, req CreateUserRequest) (*User, error)
	List(ctx context.Context, req ListUserRequest) ([]User, error)
	Get(ctx context.Context, id snowflake.ID) (*User, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateUserRequest) (*User, error)
	Delete(ctx context.Context, id snowflake.ID) error
	SendPassword(ctx context.Context, id snowflake.ID) error
}

var (
	ErrNotFound         = errors.New("user not found")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrInvalidName      = errors.New("invalid name")
	ErrInvalidRole      = errors.New("invalid role")
	ErrInvalidManager   = errors.New("invalid manager")
	ErrEmailTaken       = errors.New("email already registered")
	ErrSelfDemotion     = errors.New("cannot change own role")
	ErrSelfDeactivation = errors.New("cannot deactivate own account")
	ErrSelfDeletion     = errors.New("cannot delete own account")
	ErrUserInUse        = errors.New("user has open expenses or approvals")
	ErrMailDelivery     = errors.New("credential email delivery failed")
)
