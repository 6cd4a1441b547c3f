package audit

import (
	auditdomain "github.com/smallbiznis/expensio/internal/audit/domain"
	"github.com/smallbiznis/expensio/internal/audit/repository"
	"github.com/smallbiznis/expensio/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(s auditdomain.Service) auditdomain.Recorder { return s }),
)
