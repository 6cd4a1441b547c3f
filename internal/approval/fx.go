package approval

import (
	"github.com/smallbiznis/expensio/internal/approval/domain"
	"github.com/smallbiznis/expensio/internal/approval/repository"
	"github.com/smallbiznis/expensio/internal/approval/service"
	approvalruledomain "github.com/smallbiznis/expensio/internal/approvalrule/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("approval.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
	fx.Provide(func(r domain.Repository) approvalruledomain.ApprovalGuard { return r }),
)
