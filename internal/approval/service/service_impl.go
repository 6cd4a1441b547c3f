package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/expensio/internal/approval/domain"
	auditdomain "github.com/smallbiznis/expensio/internal/audit/domain"
	expensedomain "github.com/smallbiznis/expensio/internal/expense/domain"
	userdomain "github.com/smallbiznis/expensio/internal/user/domain"
	"github.com/smallbiznis/expensio/pkg/tenantctx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type service struct {
	log      *zap.Logger
	db       *gorm.DB
	repo     domain.Repository
	expenses expensedomain.Repository
	audit    auditdomain.Recorder
}

func NewService(log *zap.Logger, gdb *gorm.DB, repo domain.Repository, expenses expensedomain.Repository, audit auditdomain.Recorder) domain.Service {
	return &service{
		log:      log.Named("approval.service"),
		db:       gdb,
		repo:     repo,
		expenses: expenses,
		audit:    audit,
	}
}

func (s *service) Approve(ctx context.Context, id snowflake.ID, req domain.DecisionRequest) (*domain.Approval, error) {
	return s.decide(ctx, id, domain.StatusApproved, req.Comments)
}

func (s *service) Reject(ctx context.Context, id snowflake.ID, req domain.DecisionRequest) (*domain.Approval, error) {
	return s.decide(ctx, id, domain.StatusRejected, req.Comments)
}

// decide applies one approval decision. Everything happens inside a single
// transaction so the entry status, the pending re-count and the expense
// transition commit together.
func (s *service) decide(ctx context.Context, id snowflake.ID, decision domain.Status, comments string) (*domain.Approval, error) {
	actor, ok := tenantctx.PrincipalFrom(ctx)
	if !ok {
		return nil, domain.ErrNotFound
	}

	var decided *domain.Approval
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		expenses := s.expenses.WithTx(tx)

		entry, err := repo.FindByID(ctx, actor.CompanyID, id)
		if err != nil {
			return err
		}
		if entry == nil || entry.Expense == nil {
			return domain.ErrNotFound
		}
		if entry.Status != domain.StatusPending {
			return domain.ErrAlreadyProcessed
		}
		// A settled expense accepts no further decisions: after a rejection
		// veto the leftover pending steps are frozen.
		if entry.Expense.Status != expensedomain.StatusPending {
			return domain.ErrAlreadyProcessed
		}

		if entry.ApproverID != actor.UserID && userdomain.Role(actor.Role) != userdomain.RoleAdmin {
			return domain.ErrNotAllowed
		}

		// Approvals advance strictly in step order. A rejection is a veto and
		// may land on any pending step.
		if decision == domain.StatusApproved {
			minOrder, err := repo.MinPendingOrder(ctx, entry.ExpenseID)
			if err != nil {
				return err
			}
			if entry.StepOrder != minOrder {
				return domain.ErrOutOfOrder
			}
		}

		now := time.Now().UTC()
		entry.Status = decision
		if c := strings.TrimSpace(comments); c != "" {
			entry.Comments = &c
		}
		entry.DecidedAt = &now
		entry.UpdatedAt = now

		expense := entry.Expense
		entry.Expense = nil
		entry.Approver = nil
		if err := repo.Update(ctx, entry); err != nil {
			return err
		}

		switch decision {
		case domain.StatusRejected:
			expense.Status = expensedomain.StatusRejected
		case domain.StatusApproved:
			pending, err := repo.CountPending(ctx, entry.ExpenseID)
			if err != nil {
				return err
			}
			if pending == 0 {
				expense.Status = expensedomain.StatusApproved
			}
		}

		if expense.Status != expensedomain.StatusPending {
			expense.UpdatedAt = now
			expense.User = nil
			if err := expenses.Update(ctx, expense); err != nil {
				return err
			}
		}

		decided = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, "approval."+strings.ToLower(string(decision)), "approval", decided.ID.String(), map[string]any{
		"expense_id": decided.ExpenseID.String(),
		"step_order": decided.StepOrder,
	})

	return s.repo.FindByID(ctx, actor.CompanyID, decided.ID)
}

func (s *service) List(ctx context.Context, status domain.Status) ([]domain.Approval, error) {
	actor, ok := tenantctx.PrincipalFrom(ctx)
	if !ok {
		return nil, domain.ErrNotFound
	}

	filter := domain.ListFilter{Status: status}
	// Admins see the whole company ledger; everyone else their assignments.
	if userdomain.Role(actor.Role) != userdomain.RoleAdmin {
		filter.ApproverID = actor.UserID
	}
	return s.repo.List(ctx, actor.CompanyID, filter)
}

func (s *service) ListByExpense(ctx context.Context, expenseID snowflake.ID) ([]domain.Approval, error) {
	actor, ok := tenantctx.PrincipalFrom(ctx)
	if !ok {
		return nil, domain.ErrNotFound
	}

	expense, err := s.expenses.FindByID(ctx, actor.CompanyID, expenseID)
	if err != nil {
		return nil, err
	}
	if expense == nil {
		return nil, domain.ErrNotFound
	}
	return s.repo.ListByExpense(ctx, expenseID)
}

func (s *service) Stats(ctx context.Context) (*domain.Stats, error) {
	actor, ok := tenantctx.PrincipalFrom(ctx)
	if !ok {
		return nil, domain.ErrNotFound
	}

	approverID := actor.UserID
	if userdomain.Role(actor.Role) == userdomain.RoleAdmin {
		approverID = 0
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return s.repo.Stats(ctx, actor.CompanyID, approverID, monthStart)
}
