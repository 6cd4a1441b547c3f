package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/expensio/internal/approvalrule/domain"
	userdomain "github.com/smallbiznis/expensio/internal/user/domain"
	"github.com/smallbiznis/expensio/pkg/tenantctx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type service struct {
	log   *zap.Logger
	db    *gorm.DB
	repo  domain.Repository
	users userdomain.Repository
	guard domain.ApprovalGuard
	genID *snowflake.Node
}

func NewService(log *zap.Logger, gdb *gorm.DB, repo domain.Repository, users userdomain.Repository, guard domain.ApprovalGuard, genID *snowflake.Node) domain.Service {
	return &service{
		log:   log.Named("approvalrule.service"),
		db:    gdb,
		repo:  repo,
		users: users,
		guard: guard,
		genID: genID,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateRuleRequest) (*domain.ApprovalRule, error) {
	actor, ok := tenantctx.PrincipalFrom(ctx)
	if !ok {
		return nil, domain.ErrNotFound
	}

	if !req.RuleType.Valid() {
		return nil, domain.ErrInvalidRuleType
	}
	if req.Threshold <= 0 {
		return nil, domain.ErrInvalidThreshold
	}
	if req.MaxAmount != nil && *req.MaxAmount <= 0 {
		return nil, domain.ErrInvalidMaxAmount
	}

	if exists, err := s.repo.ActiveThresholdExists(ctx, actor.CompanyID, req.Threshold, 0); err != nil {
		return nil, err
	} else if exists {
		return nil, domain.ErrDuplicateThreshold
	}

	var approverID *snowflake.ID
	if req.RuleType.RequiresApprover() {
		if req.SpecialApproverID == nil {
			return nil, domain.ErrInvalidApprover
		}
		approver, err := s.validApprover(ctx, actor.CompanyID, *req.SpecialApproverID)
		if err != nil {
			return nil, err
		}
		approverID = &approver.ID
	}

	now := time.Now().UTC()
	rule := &domain.ApprovalRule{
		ID:                s.genID.Generate(),
		CompanyID:         actor.CompanyID,
		RuleType:          req.RuleType,
		Threshold:         req.Threshold,
		MaxAmount:         req.MaxAmount,
		SpecialApproverID: approverID,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.Insert(ctx, rule); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, actor.CompanyID, rule.ID)
}

func (s *service) List(ctx context.Context) ([]domain.ApprovalRule, error) {
	actor, ok := tenantctx.PrincipalFrom(ctx)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.repo.List(ctx, actor.CompanyID)
}

func (s *service) Get(ctx context.Context, id snowflake.ID) (*domain.ApprovalRule, error) {
	actor, ok := tenantctx.PrincipalFrom(ctx)
	if !ok {
		return nil, domain.ErrNotFound
	}
	rule, err := s.repo.FindByID(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, domain.ErrNotFound
	}
	return rule, nil
}

func (s *service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateRuleRequest) (*domain.ApprovalRule, error) {
	actor, ok := tenantctx.PrincipalFrom(ctx)
	if !ok {
		return nil, domain.ErrNotFound
	}

	rule, err := s.repo.FindByID(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, domain.ErrNotFound
	}

	if req.RuleType != nil {
		if !req.RuleType.Valid() {
			return nil, domain.ErrInvalidRuleType
		}
		rule.RuleType = *req.RuleType
	}
	if req.Threshold != nil {
		if *req.Threshold <= 0 {
			return nil, domain.ErrInvalidThreshold
		}
		rule.Threshold = *req.Threshold
	}
	if req.MaxAmount != nil {
		if *req.MaxAmount <= 0 {
			return nil, domain.ErrInvalidMaxAmount
		}
		rule.MaxAmount = req.MaxAmount
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	if req.SpecialApproverID != nil {
		approver, err := s.validApprover(ctx, actor.CompanyID, *req.SpecialApproverID)
		if err != nil {
			return nil, err
		}
		rule.SpecialApproverID = &approver.ID
	}

	if rule.RuleType.RequiresApprover() && rule.SpecialApproverID == nil {
		return nil, domain.ErrInvalidApprover
	}

	if rule.IsActive {
		if exists, err := s.repo.ActiveThresholdExists(ctx, actor.CompanyID, rule.Threshold, rule.ID); err != nil {
			return nil, err
		} else if exists {
			return nil, domain.ErrDuplicateThreshold
		}
	}

	rule.UpdatedAt = time.Now().UTC()
	rule.SpecialApprover = nil
	if err := s.repo.Update(ctx, rule); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, actor.CompanyID, id)
}

func (s *service) Delete(ctx context.Context, id snowflake.ID) error {
	actor, ok := tenantctx.PrincipalFrom(ctx)
	if !ok {
		return domain.ErrNotFound
	}

	rule, err := s.repo.FindByID(ctx, actor.CompanyID, id)
	if err != nil {
		return err
	}
	if rule == nil {
		return domain.ErrNotFound
	}

	// Expenses at or above the threshold may still be waiting on steps this
	// rule produced.
	busy, err := s.guard.HasPendingAtOrAbove(ctx, actor.CompanyID, rule.Threshold)
	if err != nil {
		return err
	}
	if busy {
		return domain.ErrRuleInUse
	}

	return s.repo.Delete(ctx, actor.CompanyID, id)
}

func (s *service) validApprover(ctx context.Context, companyID, id snowflake.ID) (*userdomain.User, error) {
	approver, err := s.users.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if approver == nil || !approver.IsActive || !approver.Role.CanApprove() {
		return nil, domain.ErrInvalidApprover
	}
	return approver, nil
}
