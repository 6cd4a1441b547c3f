package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	expensedomain "github.com/smallbiznis/expensio/internal/expense/domain"
	userdomain "github.com/smallbiznis/expensio/internal/user/domain"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Approval is one step of an expense's approval plan. Entries are created
// PENDING when the expense is submitted and each transitions exactly once.
type Approval struct {
	ID         snowflake.ID           `gorm:"primaryKey" json:"id"`
	ExpenseID  snowflake.ID           `gorm:"not null;index" json:"expense_id"`
	Expense    *expensedomain.Expense `gorm:"foreignKey:ExpenseID" json:"expense,omitempty"`
	ApproverID snowflake.ID           `gorm:"not null;index" json:"approver_id"`
	Approver   *userdomain.User       `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`
	StepOrder  int                    `gorm:"not null" json:"step_order"`
	Status     Status                 `gorm:"not null;index;default:PENDING" json:"status"`
	Comments   *string                `json:"comments,omitempty"`
	DecidedAt  *time.Time             `json:"decided_at,omitempty"`
	CreatedAt  time.Time              `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time              `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Approval) TableName() string {
	return "approvals"
}

// Stats summarizes an approver's (or, for admins, a company's) ledger.
type Stats struct {
	Pending        int64   `json:"pending"`
	Approved       int64   `json:"approved"`
	Rejected       int64   `json:"rejected"`
	ApprovedAmount float64 `json:"approved_amount"`
	DecidedMonth   int64   `json:"decided_this_month"`
}
