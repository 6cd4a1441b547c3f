package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateRuleRequest struct {
	RuleType          RuleType      `json:"rule_type"`
	Threshold         float64       `json:"threshold"`
	MaxAmount         *float64      `json:"max_amount,omitempty"`
	SpecialApproverID *snowflake.ID `json:"special_approver_id,string,omitempty"`
}

type UpdateRuleRequest struct {
	RuleType          *RuleType     `json:"rule_type,omitempty"`
	Threshold         *float64      `json:"threshold,omitempty"`
	MaxAmount         *float64      `json:"max_amount,omitempty"`
	SpecialApproverID *snowflake.ID `json:"special_approver_id,string,omitempty"`
	IsActive          *bool         `json:"is_active,omitempty"`
}

// ApprovalGuard reports whether pending approval work still depends on rules
// at or above a threshold. Implemented by the approval feature.
type ApprovalGuard interface {
	HasPendingAtOrAbove(ctx context.Context, companyID snowflake.ID, threshold float64) (bool, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRuleRequest) (*ApprovalRule, error)
	List(ctx context.Context) ([]ApprovalRule, error)
	Get(ctx context.Context, id snowflake.ID) (*ApprovalRule, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateRuleRequest) (*ApprovalRule, error)
	Delete(ctx context.Context, id snowflake.ID) error
}

var (
	ErrNotFound           = errors.New("approval rule not found")
	ErrInvalidRuleType    = errors.New("invalid rule type")
	ErrInvalidThreshold   = errors.New("threshold must be greater than zero")
	ErrInvalidMaxAmount   = errors.New("max amount must be greater than zero")
	ErrDuplicateThreshold = errors.New("an active rule with this threshold already exists")
	ErrInvalidApprover    = errors.New("special approver must be an active manager or admin")
	ErrRuleInUse          = errors.New("rule has pending approvals and cannot be deleted")
)
