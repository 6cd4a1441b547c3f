// Package workflow derives the ordered approval plan for an expense from the
// company's active approval rules. It is pure: callers load the inputs and
// persist the resulting steps.
package workflow

import (
	"errors"
	"sort"

	"github.com/bwmarrin/snowflake"
	ruledomain "github.com/smallbiznis/expensio/internal/approvalrule/domain"
	userdomain "github.com/smallbiznis/expensio/internal/user/domain"
)

// ErrApproverUnavailable is returned when a matching rule designates an
// approver that is no longer an active manager or admin of the company. The
// plan fails loudly rather than silently shrinking.
var ErrApproverUnavailable = errors.New("designated approver unavailable")

// Step is one pending approval to create. Order is 1-based.
type Step struct {
	Order      int
	ApproverID snowflake.ID
}

// ResolveInput carries everything the resolver needs. Users must contain the
// company's users (the resolver only considers active ones); Rules may be in
// any order and may include inactive or non-matching rules.
type ResolveInput struct {
	Owner           userdomain.User
	Users           []userdomain.User
	Rules           []ruledomain.ApprovalRule
	ConvertedAmount float64
}

// Resolve produces the approval plan for an expense. An empty plan means the
// expense is auto-approved.
func Resolve(in ResolveInput) ([]Step, error) {
	matching := make([]ruledomain.ApprovalRule, 0, len(in.Rules))
	for _, rule := range in.Rules {
		if rule.Matches(in.ConvertedAmount) {
			matching = append(matching, rule)
		}
	}
	sort.SliceStable(matching, func(i, j int) bool {
		return matching[i].Threshold < matching[j].Threshold
	})

	var approvers []snowflake.ID

	if len(matching) == 0 {
		if m := resolveManager(in); m != nil {
			approvers = append(approvers, m.ID)
		}
	} else {
		for _, rule := range matching {
			switch rule.RuleType {
			case ruledomain.RuleTypePercentage:
				if m := resolveManager(in); m != nil {
					approvers = append(approvers, m.ID)
				}
			case ruledomain.RuleTypeSpecificApprover:
				a, err := designatedApprover(in, rule)
				if err != nil {
					return nil, err
				}
				approvers = append(approvers, a.ID)
			case ruledomain.RuleTypeHybrid:
				if m := resolveManager(in); m != nil {
					approvers = append(approvers, m.ID)
				}
				if rule.MaxAmount != nil && in.ConvertedAmount > *rule.MaxAmount {
					a, err := designatedApprover(in, rule)
					if err != nil {
						return nil, err
					}
					approvers = append(approvers, a.ID)
				}
			}
		}
	}

	steps := make([]Step, len(approvers))
	for i, id := range approvers {
		steps[i] = Step{Order: i + 1, ApproverID: id}
	}
	return steps, nil
}

// resolveManager finds the approver for a manager step: the owner's direct
// manager, then any active manager in the company, then any active admin.
// The owner is never chosen as their own approver.
func resolveManager(in ResolveInput) *userdomain.User {
	if in.Owner.ManagerID != nil {
		if m := findUser(in.Users, *in.Owner.ManagerID); m != nil && m.IsActive && m.Role.CanApprove() {
			return m
		}
	}
	if m := firstActiveByRole(in, userdomain.RoleManager); m != nil {
		return m
	}
	return firstActiveByRole(in, userdomain.RoleAdmin)
}

func designatedApprover(in ResolveInput, rule ruledomain.ApprovalRule) (*userdomain.User, error) {
	if rule.SpecialApproverID == nil {
		return nil, ErrApproverUnavailable
	}
	a := findUser(in.Users, *rule.SpecialApproverID)
	if a == nil || !a.IsActive || !a.Role.CanApprove() {
		return nil, ErrApproverUnavailable
	}
	return a, nil
}

func findUser(users []userdomain.User, id snowflake.ID) *userdomain.User {
	for i := range users {
		if users[i].ID == id {
			return &users[i]
		}
	}
	return nil
}

func firstActiveByRole(in ResolveInput, role userdomain.Role) *userdomain.User {
	for i := range in.Users {
		u := &in.Users[i]
		if u.ID == in.Owner.ID || !u.IsActive || u.Role != role {
			continue
		}
		return u
	}
	return nil
}
