package domain

import (
	"context"
	"errors"
	"time"

	companydomain "github.com/smallbiznis/expensio/internal/company/domain"
	userdomain "github.com/smallbiznis/expensio/internal/user/domain"
)

// Request bootstraps a tenant: the company plus its first admin account.
type Request struct {
	CompanyName string `json:"company_name"`
	Country     string `json:"country"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	UserAgent   string `json:"-"`
	IPAddress   string `json:"-"`
}

type Result struct {
	Company   *companydomain.Company
	User      *userdomain.User
	RawToken  string
	ExpiresAt time.Time
}

type Service interface {
	Signup(ctx context.Context, req Request) (*Result, error)
}

var (
	ErrInvalidRequest = errors.New("invalid signup request")
	ErrInvalidCountry = errors.New("unknown country")
	ErrEmailTaken     = errors.New("email already registered")
	ErrWeakPassword   = errors.New("password too short")
)
