package expense

import (
	"context"

	"github.com/bwmarrin/snowflake"
	approvaldomain "github.com/smallbiznis/expensio/internal/approval/domain"
	"github.com/smallbiznis/expensio/internal/expense/domain"
	"github.com/smallbiznis/expensio/internal/expense/repository"
	"github.com/smallbiznis/expensio/internal/expense/service"
	userdomain "github.com/smallbiznis/expensio/internal/user/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("expense.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
	fx.Provide(func(r domain.Repository, a approvaldomain.Repository) userdomain.ExpenseGuard {
		return expenseGuard{repo: r, approvals: a}
	}),
)

type expenseGuard struct {
	repo      domain.Repository
	approvals approvaldomain.Repository
}

func (g expenseGuard) OwnsSettledExpenses(ctx context.Context, companyID, userID snowflake.ID) (bool, error) {
	return g.repo.HasSettledByUser(ctx, companyID, userID)
}

func (g expenseGuard) HasOpenItems(ctx context.Context, companyID, userID snowflake.ID) (bool, error) {
	pending, err := g.repo.HasPendingByUser(ctx, companyID, userID)
	if err != nil || pending {
		return pending, err
	}
	return g.approvals.HasPendingByApprover(ctx, companyID, userID)
}
