package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/smallbiznis/expensio/internal/user/domain"
	"gorm.io/gorm"
)

type LoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	UserAgent string `json:"-"`
	IPAddress string `json:"-"`
}

type LoginResult struct {
	User      *userdomain.User
	RawToken  string
	ExpiresAt time.Time
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type SessionRepository interface {
	WithTx(tx *gorm.DB) SessionRepository
	Create(ctx context.Context, session *Session) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
	Revoke(ctx context.Context, id snowflake.ID, at time.Time) error
	UpdateLastSeen(ctx context.Context, id snowflake.ID, at time.Time) error
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	// Authenticate resolves a raw session token to its active user.
	Authenticate(ctx context.Context, rawToken string) (*userdomain.User, error)
	ChangePassword(ctx context.Context, req ChangePasswordRequest) error
	// ForgotPassword issues a new generated password and emails it. It always
	// succeeds for unknown emails so the endpoint cannot enumerate accounts.
	ForgotPassword(ctx context.Context, email string) error
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid session")
	ErrSessionExpired     = errors.New("session expired")
	ErrSessionRevoked     = errors.New("session revoked")
	ErrInactiveUser       = errors.New("account is deactivated")
	ErrWeakPassword       = errors.New("password too short")
)
