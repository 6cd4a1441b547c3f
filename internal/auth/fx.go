package auth

import (
	"github.com/smallbiznis/expensio/internal/auth/repository"
	"github.com/smallbiznis/expensio/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.NewSessionRepository),
	fx.Provide(service.New),
)
