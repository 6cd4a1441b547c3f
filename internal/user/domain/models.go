package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Role is the closed set of roles a user can hold within a company.
type Role string

const (
	RoleEmployee Role = "EMPLOYEE"
	RoleManager  Role = "MANAGER"
	RoleAdmin    Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// CanApprove reports whether the role may be assigned approval steps.
func (r Role) CanApprove() bool {
	return r == RoleManager || r == RoleAdmin
}

type User struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	CompanyID    snowflake.ID  `gorm:"not null;index" json:"company_id"`
	Email        string        `gorm:"not null;uniqueIndex" json:"email"`
	PasswordHash string        `gorm:"not null" json:"-"`
	FirstName    string        `gorm:"not null" json:"first_name"`
	LastName     string        `gorm:"not null" json:"last_name"`
	Role         Role          `gorm:"not null;index" json:"role"`
	ManagerID    *snowflake.ID `gorm:"index" json:"manager_id,omitempty"`
	Manager      *User         `gorm:"foreignKey:ManagerID" json:"manager,omitempty"`
	IsActive     bool          `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
