package signup

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	authdomain "github.com/smallbiznis/expensio/internal/auth/domain"
	"github.com/smallbiznis/expensio/internal/auth/password"
	companydomain "github.com/smallbiznis/expensio/internal/company/domain"
	referencedomain "github.com/smallbiznis/expensio/internal/reference/domain"
	"github.com/smallbiznis/expensio/internal/signup/domain"
	userdomain "github.com/smallbiznis/expensio/internal/user/domain"
	"github.com/smallbiznis/expensio/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultCurrency   = "USD"
	minPasswordLength = 8
)

type service struct {
	log       *zap.Logger
	db        *gorm.DB
	companies companydomain.Repository
	users     userdomain.Repository
	reference referencedomain.Repository
	authsvc   authdomain.Service
	genID     *snowflake.Node
}

func NewService(log *zap.Logger, gdb *gorm.DB, companies companydomain.Repository, users userdomain.Repository, reference referencedomain.Repository, authsvc authdomain.Service, genID *snowflake.Node) domain.Service {
	return &service{
		log:       log.Named("signup.service"),
		db:        gdb,
		companies: companies,
		users:     users,
		reference: reference,
		authsvc:   authsvc,
		genID:     genID,
	}
}

// Signup creates the company and its admin in one transaction, then opens a
// session for the new admin.
func (s *service) Signup(ctx context.Context, req domain.Request) (*domain.Result, error) {
	companyName := strings.TrimSpace(req.CompanyName)
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	if companyName == "" || firstName == "" || lastName == "" {
		return nil, domain.ErrInvalidRequest
	}

	emailAddr, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidRequest
	}
	if len(strings.TrimSpace(req.Password)) < minPasswordLength {
		return nil, domain.ErrWeakPassword
	}

	countryCode := strings.ToUpper(strings.TrimSpace(req.Country))
	currency := defaultCurrency
	if countryCode != "" {
		country, err := s.reference.GetCountry(ctx, countryCode)
		if err != nil {
			return nil, err
		}
		if country == nil {
			return nil, domain.ErrInvalidCountry
		}
		if country.CurrencyCode != "" {
			currency = country.CurrencyCode
		}
	}

	if existing, err := s.users.FindByEmail(ctx, emailAddr); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, domain.ErrEmailTaken
	}

	hashed, err := password.Hash(strings.TrimSpace(req.Password))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	company := &companydomain.Company{
		ID:        s.genID.Generate(),
		Name:      companyName,
		Country:   countryCode,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	admin := &userdomain.User{
		ID:           s.genID.Generate(),
		CompanyID:    company.ID,
		Email:        emailAddr,
		PasswordHash: hashed,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         userdomain.RoleAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		companies := s.companies.WithTx(tx)
		users := s.users.WithTx(tx)

		companySlug, err := s.uniqueSlug(ctx, companies, companyName)
		if err != nil {
			return err
		}
		company.Slug = companySlug

		if err := companies.Insert(ctx, company); err != nil {
			return err
		}
		if err := users.Insert(ctx, admin); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrEmailTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("company provisioned",
		zap.String("company_id", company.ID.String()),
		zap.String("currency", company.Currency),
	)

	session, err := s.authsvc.Login(ctx, authdomain.LoginRequest{
		Email:     emailAddr,
		Password:  strings.TrimSpace(req.Password),
		UserAgent: req.UserAgent,
		IPAddress: req.IPAddress,
	})
	if err != nil {
		return nil, err
	}

	return &domain.Result{
		Company:   company,
		User:      admin,
		RawToken:  session.RawToken,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *service) uniqueSlug(ctx context.Context, companies companydomain.Repository, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "company"
	}

	exists, err := companies.SlugExists(ctx, base)
	if err != nil {
		return "", err
	}
	if !exists {
		return base, nil
	}
	return fmt.Sprintf("%s-%s", base, s.genID.Generate().Base36()), nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}
