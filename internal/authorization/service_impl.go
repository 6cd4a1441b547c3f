package authorization

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectExpense      = "expense"
	ObjectApproval     = "approval"
	ObjectUser         = "user"
	ObjectApprovalRule = "approval_rule"
	ObjectDashboard    = "dashboard"
	ObjectExport       = "export"
	ObjectAuditLog     = "audit_log"
)

const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionDecide = "decide"
	ActionManage = "manage"
	ActionRun    = "run"
)

var (
	ErrInvalidRole   = errors.New("invalid role")
	ErrInvalidObject = errors.New("invalid object")
	ErrInvalidAction = errors.New("invalid action")
	ErrForbidden     = errors.New("forbidden")
)

type Service interface {
	// Authorize checks whether a role may perform action on object. Row-level
	// visibility stays with the expense policy package; this gate covers the
	// route level only.
	Authorize(ctx context.Context, role, object, action string) error
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewService(log *zap.Logger, enforcer *casbin.SyncedEnforcer) Service {
	return &ServiceImpl{
		log:      log.Named("authorization.service"),
		enforcer: enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, role, object, action string) error {
	role = strings.TrimSpace(role)
	if role == "" {
		return ErrInvalidRole
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := fmt.Sprintf("role:%s", strings.ToLower(role))
	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("subject", subject),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Everyone submits and manages their own expenses; ownership is
		// enforced below the route gate.
		{"role:employee", ObjectExpense, ActionView},
		{"role:employee", ObjectExpense, ActionCreate},
		{"role:employee", ObjectExpense, ActionUpdate},
		{"role:employee", ObjectExpense, ActionDelete},

		// Managers additionally work the approval queue.
		{"role:manager", ObjectApproval, ActionView},
		{"role:manager", ObjectApproval, ActionDecide},

		// Admins administer the tenant.
		{"role:admin", ObjectUser, ActionManage},
		{"role:admin", ObjectApprovalRule, ActionManage},
		{"role:admin", ObjectDashboard, ActionView},
		{"role:admin", ObjectExport, ActionRun},
		{"role:admin", ObjectAuditLog, ActionView},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	groupings := [][]string{
		{"role:manager", "role:employee"},
		{"role:admin", "role:manager"},
	}
	for _, g := range groupings {
		if _, err := enforcer.AddGroupingPolicy(g); err != nil {
			return err
		}
	}
	return nil
}

var Module = fx.Module("authorization.service",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)
