package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/expensio/internal/auth/domain"
	"github.com/smallbiznis/expensio/internal/auth/password"
	"github.com/smallbiznis/expensio/internal/providers/email"
	userdomain "github.com/smallbiznis/expensio/internal/user/domain"
	"github.com/smallbiznis/expensio/pkg/tenantctx"
	"go.uber.org/zap"
)

const (
	sessionTokenBytes = 32
	sessionTTL        = 7 * 24 * time.Hour

	minPasswordLength = 8
)

type Service struct {
	log      *zap.Logger
	users    userdomain.Repository
	sessions domain.SessionRepository
	mailer   email.Provider
	genID    *snowflake.Node
}

func New(log *zap.Logger, users userdomain.Repository, sessions domain.SessionRepository, mailer email.Provider, genID *snowflake.Node) domain.Service {
	return &Service{
		log:      log.Named("auth.service"),
		users:    users,
		sessions: sessions,
		mailer:   mailer,
		genID:    genID,
	}
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	emailAddr, err := normalizeEmail(req.Email)
	if err != nil || strings.TrimSpace(req.Password) == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		return nil, err
	}
	if user == nil || !password.Verify(req.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, domain.ErrInactiveUser
	}

	rawToken, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &domain.Session{
		ID:         s.genID.Generate(),
		UserID:     user.ID,
		TokenHash:  hashToken(rawToken),
		UserAgent:  strings.TrimSpace(req.UserAgent),
		IPAddress:  strings.TrimSpace(req.IPAddress),
		ExpiresAt:  now.Add(sessionTTL),
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	return &domain.LoginResult{
		User:      user,
		RawToken:  rawToken,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *Service) Logout(ctx context.Context, rawToken string) error {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return domain.ErrInvalidSession
	}

	session, err := s.sessions.FindByTokenHash(ctx, hashToken(token))
	if err != nil {
		return err
	}
	if session == nil {
		return domain.ErrInvalidSession
	}

	return s.sessions.Revoke(ctx, session.ID, time.Now().UTC())
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*userdomain.User, error) {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return nil, domain.ErrInvalidSession
	}

	session, err := s.sessions.FindByTokenHash(ctx, hashToken(token))
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrInvalidSession
	}

	now := time.Now().UTC()
	if session.RevokedAt != nil {
		return nil, domain.ErrSessionRevoked
	}
	if now.After(session.ExpiresAt) {
		return nil, domain.ErrSessionExpired
	}

	user, err := s.users.FindAnyByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, domain.ErrInvalidSession
	}

	if err := s.sessions.UpdateLastSeen(ctx, session.ID, now); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Service) ChangePassword(ctx context.Context, req domain.ChangePasswordRequest) error {
	actor, err := currentUser(ctx, s.users)
	if err != nil {
		return err
	}

	if !password.Verify(req.CurrentPassword, actor.PasswordHash) {
		return domain.ErrInvalidCredentials
	}
	if len(strings.TrimSpace(req.NewPassword)) < minPasswordLength {
		return domain.ErrWeakPassword
	}

	hashed, err := password.Hash(strings.TrimSpace(req.NewPassword))
	if err != nil {
		return err
	}

	actor.PasswordHash = hashed
	actor.UpdatedAt = time.Now().UTC()
	actor.Manager = nil
	return s.users.Update(ctx, actor)
}

func (s *Service) ForgotPassword(ctx context.Context, rawEmail string) error {
	emailAddr, err := normalizeEmail(rawEmail)
	if err != nil {
		return nil
	}

	user, err := s.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		return err
	}
	if user == nil || !user.IsActive {
		// Same response as success; do not reveal which emails exist.
		return nil
	}

	plain, err := password.Generate(12)
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
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	body := fmt.Sprintf(
		"<p>Hello %s,</p><p>Your new Expensio password is: <b>%s</b></p><p>Please change it after signing in.</p>",
		user.FirstName, plain,
	)
	if err := s.mailer.Send(ctx, []string{user.Email}, "Expensio password reset", body); err != nil {
		s.log.Warn("failed to send reset email", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	return nil
}

func currentUser(ctx context.Context, users userdomain.Repository) (*userdomain.User, error) {
	principal, ok := tenantctx.PrincipalFrom(ctx)
	if !ok {
		return nil, domain.ErrInvalidSession
	}
	user, err := users.FindByID(ctx, principal.CompanyID, principal.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrInvalidSession
	}
	return user, nil
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}
