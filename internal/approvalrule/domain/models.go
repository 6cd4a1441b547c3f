package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/smallbiznis/expensio/internal/user/domain"
)

// RuleType decides how approval steps are derived for a matching expense.
type RuleType string

const (
	// RuleTypePercentage routes the expense to the owner's manager chain.
	RuleTypePercentage RuleType = "PERCENTAGE"
	// RuleTypeSpecificApprover routes to the rule's designated approver.
	RuleTypeSpecificApprover RuleType = "SPECIFIC_APPROVER"
	// RuleTypeHybrid adds the manager step, plus the designated approver once
	// the converted amount exceeds MaxAmount.
	RuleTypeHybrid RuleType = "HYBRID"
)

func (t RuleType) Valid() bool {
	switch t {
	case RuleTypePercentage, RuleTypeSpecificApprover, RuleTypeHybrid:
		return true
	}
	return false
}

// RequiresApprover reports whether the type needs SpecialApproverID set.
func (t RuleType) RequiresApprover() bool {
	return t == RuleTypeSpecificApprover || t == RuleTypeHybrid
}

type ApprovalRule struct {
	ID                snowflake.ID     `gorm:"primaryKey" json:"id"`
	CompanyID         snowflake.ID     `gorm:"not null;index" json:"company_id"`
	RuleType          RuleType         `gorm:"not null" json:"rule_type"`
	Threshold         float64          `gorm:"not null" json:"threshold"`
	MaxAmount         *float64         `json:"max_amount,omitempty"`
	SpecialApproverID *snowflake.ID    `gorm:"index" json:"special_approver_id,omitempty"`
	SpecialApprover   *userdomain.User `gorm:"foreignKey:SpecialApproverID" json:"special_approver,omitempty"`
	IsActive          bool             `gorm:"not null;default:true" json:"is_active"`
	CreatedAt         time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (ApprovalRule) TableName() string {
	return "approval_rules"
}

// Matches reports whether the rule applies to an expense of the given
// converted amount.
func (r ApprovalRule) Matches(convertedAmount float64) bool {
	return r.IsActive && convertedAmount >= r.Threshold
}
