package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/expensio/internal/auth/password"
	"github.com/smallbiznis/expensio/internal/providers/email"
	"github.com/smallbiznis/expensio/internal/user/domain"
	"github.com/smallbiznis/expensio/pkg/db"
	"github.com/smallbiznis/expensio/pkg/tenantctx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const generatedPasswordLength = 12

type service struct {
	log    *zap.Logger
	db     *gorm.DB
	repo   domain.Repository
	guard  domain.ExpenseGuard
	mailer email.Provider
	genID  *snowflake.Node
}

func NewService(log *zap.Logger, gdb *gorm.DB, repo domain.Repository, guard domain.ExpenseGuard, mailer email.Provider, genID *snowflake.Node) domain.Service {
	return &service{
		log:    log.Named("user.service"),
		db:     gdb,
		repo:   repo,
		guard:  guard,
		mailer: mailer,
		genID:  genID,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	actor, ok := tenantctx.PrincipalFrom(ctx)
	if !ok {
		return nil, domain.ErrNotFound
	}

	emailAddr, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	if firstName == "" || lastName == "" {
		return nil, domain.ErrInvalidName
	}
	if !req.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	if existing, err := s.repo.FindByEmail(ctx, emailAddr); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, domain.ErrEmailTaken
	}

	var managerID *snowflake.ID
	if req.ManagerID != nil {
		manager, err := s.validManager(ctx, actor.CompanyID, *req.ManagerID)
		if err != nil {
			return nil, err
		}
		managerID = &manager.ID
	}

	plain, err := password.Generate(generatedPasswordLength)
	if err != nil {
		return nil, err
	}
	hashed, err := password.Hash(plain)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           s.genID.Generate(),
		CompanyID:    actor.CompanyID,
		Email:        emailAddr,
		PasswordHash: hashed,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         req.Role,
		ManagerID:    managerID,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, err
	}

	// The account is committed either way; on delivery failure the admin can
	// re-issue the credential via SendPassword.
	if err := s.sendCredentials(ctx, user, plain); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *service) List(ctx context.Context, req domain.ListUserRequest) ([]domain.User, error) {
	actor, ok := tenantctx.PrincipalFrom(ctx)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.repo.List(ctx, actor.CompanyID, domain.ListUserFilter{
		Role:     req.Role,
		IsActive: req.IsActive,
	})
}

func (s *service) Get(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	actor, ok := tenantctx.PrincipalFrom(ctx)
	if !ok {
		return nil, domain.ErrNotFound
	}
	user, err := s.repo.FindByID(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (s *service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateUserRequest) (*domain.User, error) {
	actor, ok := tenantctx.PrincipalFrom(ctx)
	if !ok {
		return nil, domain.ErrNotFound
	}

	user, err := s.repo.FindByID(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}

	if req.FirstName != nil {
		if strings.TrimSpace(*req.FirstName) == "" {
			return nil, domain.ErrInvalidName
		}
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		if strings.TrimSpace(*req.LastName) == "" {
			return nil, domain.ErrInvalidName
		}
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, domain.ErrInvalidRole
		}
		if id == actor.UserID && *req.Role != user.Role {
			return nil, domain.ErrSelfDemotion
		}
		user.Role = *req.Role
	}
	if req.ManagerID != nil {
		if *req.ManagerID == id {
			return nil, domain.ErrInvalidManager
		}
		manager, err := s.validManager(ctx, actor.CompanyID, *req.ManagerID)
		if err != nil {
			return nil, err
		}
		user.ManagerID = &manager.ID
	}
	if req.IsActive != nil {
		if !*req.IsActive && id == actor.UserID {
			return nil, domain.ErrSelfDeactivation
		}
		user.IsActive = *req.IsActive
	}

	user.UpdatedAt = time.Now().UTC()
	user.Manager = nil
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, actor.CompanyID, id)
}

func (s *service) Delete(ctx context.Context, id snowflake.ID) error {
	actor, ok := tenantctx.PrincipalFrom(ctx)
	if !ok {
		return domain.ErrNotFound
	}
	if id == actor.UserID {
		return domain.ErrSelfDeletion
	}

	user, err := s.repo.FindByID(ctx, actor.CompanyID, id)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrNotFound
	}

	settled, err := s.guard.OwnsSettledExpenses(ctx, actor.CompanyID, id)
	if err != nil {
		return err
	}
	if settled {
		// Preserve history: deactivate instead of removing the row.
		user.IsActive = false
		user.UpdatedAt = time.Now().UTC()
		user.Manager = nil
		return s.repo.Update(ctx, user)
	}

	// Pending expenses and pending approval steps still reference the row;
	// a hard delete would break the FK chain mid-flight.
	open, err := s.guard.HasOpenItems(ctx, actor.CompanyID, id)
	if err != nil {
		return err
	}
	if open {
		return domain.ErrUserInUse
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.ClearManager(ctx, actor.CompanyID, id); err != nil {
			return err
		}
		return repo.Delete(ctx, actor.CompanyID, id)
	})
}

func (s *service) SendPassword(ctx context.Context, id snowflake.ID) error {
	actor, ok := tenantctx.PrincipalFrom(ctx)
	if !ok {
		return domain.ErrNotFound
	}

	user, err := s.repo.FindByID(ctx, actor.CompanyID, id)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrNotFound
	}

	plain, err := password.Generate(generatedPasswordLength)
	if err != nil {
		return err
	}
	hashed, err := password.Hash(plain)
	if err != nil {
		return err
	}

	user.PasswordHash = hashed
	user.UpdatedAt = time.Now().UTC()
	user.Manager = nil
	if err := s.repo.Update(ctx, user); err != nil {
		return err
	}

	return s.sendCredentials(ctx, user, plain)
}

func (s *service) validManager(ctx context.Context, companyID, id snowflake.ID) (*domain.User, error) {
	manager, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if manager == nil || !manager.IsActive || !manager.Role.CanApprove() {
		return nil, domain.ErrInvalidManager
	}
	return manager, nil
}

// sendCredentials delivers a generated password. Delivery failure never rolls
// back the account change; it surfaces as ErrMailDelivery so the caller knows
// to re-send.
func (s *service) sendCredentials(ctx context.Context, user *domain.User, plain string) error {
	body := fmt.Sprintf(
		"<p>Hello %s,</p><p>Your Expensio password is: <b>%s</b></p><p>Please change it after signing in.</p>",
		user.FirstName, plain,
	)
	if err := s.mailer.Send(ctx, []string{user.Email}, "Your Expensio credentials", body); err != nil {
		s.log.Warn("failed to send credentials email",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		return domain.ErrMailDelivery
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}
