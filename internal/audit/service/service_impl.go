package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/expensio/internal/audit/domain"
	"github.com/smallbiznis/expensio/pkg/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, action, targetType string, targetID string, detail map[string]any) {
	action = strings.TrimSpace(action)
	if action == "" {
		return
	}

	actor, ok := tenantctx.PrincipalFrom(ctx)
	if !ok {
		return
	}

	entry := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		CompanyID:  actor.CompanyID,
		ActorID:    &actor.UserID,
		Action:     action,
		TargetType: strings.TrimSpace(targetType),
		Detail:     datatypes.JSONMap(detail),
		CreatedAt:  time.Now().UTC(),
	}
	if id := strings.TrimSpace(targetID); id != "" {
		entry.TargetID = &id
	}
	if entry.TargetType == "" {
		entry.TargetType = "unknown"
	}

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

func (s *Service) List(ctx context.Context, filter auditdomain.ListFilter) ([]auditdomain.AuditLog, error) {
	actor, ok := tenantctx.PrincipalFrom(ctx)
	if !ok {
		return nil, auditdomain.ErrInvalidAction
	}
	return s.repo.List(ctx, s.db, actor.CompanyID, filter)
}
