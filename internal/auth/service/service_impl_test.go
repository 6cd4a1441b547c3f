package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/expensio/internal/auth/domain"
	"github.com/smallbiznis/expensio/internal/auth/password"
	authrepo "github.com/smallbiznis/expensio/internal/auth/repository"
	companydomain "github.com/smallbiznis/expensio/internal/company/domain"
	"github.com/smallbiznis/expensio/internal/migration"
	"github.com/smallbiznis/expensio/internal/providers/email"
	userdomain "github.com/smallbiznis/expensio/internal/user/domain"
	userrepo "github.com/smallbiznis/expensio/internal/user/repository"
	"github.com/smallbiznis/expensio/pkg/db"
	"github.com/smallbiznis/expensio/pkg/tenantctx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testPassword = "correct horse battery"

type authFixture struct {
	t        *testing.T
	conn     *gorm.DB
	node     *snowflake.Node
	svc      domain.Service
	sessions domain.SessionRepository
	user     userdomain.User
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := migration.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(4)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	f := &authFixture{
		t:        t,
		conn:     conn,
		node:     node,
		sessions: authrepo.NewSessionRepository(conn),
	}
	f.svc = New(zap.NewNop(), userrepo.NewRepository(conn), f.sessions, &email.NoOpProvider{}, node)

	company := companydomain.Company{
		ID:       node.Generate(),
		Name:     "Acme",
		Slug:     "acme",
		Country:  "US",
		Currency: "USD",
	}
	if err := conn.Create(&company).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}

	hashed, err := password.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	f.user = userdomain.User{
		ID:           node.Generate(),
		CompanyID:    company.ID,
		Email:        "owner@acme.test",
		PasswordHash: hashed,
		FirstName:    "Olive",
		LastName:     "Owner",
		Role:         userdomain.RoleAdmin,
		IsActive:     true,
	}
	if err := conn.Create(&f.user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	return f
}

func (f *authFixture) login() *domain.LoginResult {
	f.t.Helper()

	res, err := f.svc.Login(context.Background(), domain.LoginRequest{
		Email:    f.user.Email,
		Password: testPassword,
	})
	if err != nil {
		f.t.Fatalf("login: %v", err)
	}
	return res
}

func TestLoginAndAuthenticate(t *testing.T) {
	f := newAuthFixture(t)

	res := f.login()
	if res.RawToken == "" {
		t.Fatal("missing session token")
	}
	if !res.ExpiresAt.After(time.Now().UTC().Add(6 * 24 * time.Hour)) {
		t.Fatalf("expires too soon: %v", res.ExpiresAt)
	}

	user, err := f.svc.Authenticate(context.Background(), res.RawToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.ID != f.user.ID {
		t.Fatalf("user = %s, want %s", user.ID, f.user.ID)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Login(context.Background(), domain.LoginRequest{
		Email:    f.user.Email,
		Password: "not it",
	})
	if err != domain.ErrInvalidCredentials {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginInactiveUser(t *testing.T) {
	f := newAuthFixture(t)

	if err := f.conn.Model(&userdomain.User{}).Where("id = ?", f.user.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err := f.svc.Login(context.Background(), domain.LoginRequest{
		Email:    f.user.Email,
		Password: testPassword,
	})
	if err != domain.ErrInactiveUser {
		t.Fatalf("err = %v, want ErrInactiveUser", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newAuthFixture(t)
	res := f.login()

	if err := f.svc.Logout(context.Background(), res.RawToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := f.svc.Authenticate(context.Background(), res.RawToken); err != domain.ErrSessionRevoked {
		t.Fatalf("err = %v, want ErrSessionRevoked", err)
	}
}

func TestAuthenticateExpiredSession(t *testing.T) {
	f := newAuthFixture(t)
	res := f.login()

	past := time.Now().UTC().Add(-time.Hour)
	if err := f.conn.Model(&domain.Session{}).Where("user_id = ?", f.user.ID).Update("expires_at", past).Error; err != nil {
		t.Fatalf("expire: %v", err)
	}

	if _, err := f.svc.Authenticate(context.Background(), res.RawToken); err != domain.ErrSessionExpired {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
}

func TestAuthenticateUnknownToken(t *testing.T) {
	f := newAuthFixture(t)

	if _, err := f.svc.Authenticate(context.Background(), "bogus"); err != domain.ErrInvalidSession {
		t.Fatalf("err = %v, want ErrInvalidSession", err)
	}
}

func TestChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := tenantctx.WithPrincipal(context.Background(), tenantctx.Principal{
		UserID:    f.user.ID,
		CompanyID: f.user.CompanyID,
		Role:      string(f.user.Role),
	})

	err := f.svc.ChangePassword(ctx, domain.ChangePasswordRequest{
		CurrentPassword: "not it",
		NewPassword:     "brand new secret",
	})
	if err != domain.ErrInvalidCredentials {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}

	err = f.svc.ChangePassword(ctx, domain.ChangePasswordRequest{
		CurrentPassword: testPassword,
		NewPassword:     "short",
	})
	if err != domain.ErrWeakPassword {
		t.Fatalf("err = %v, want ErrWeakPassword", err)
	}

	if err := f.svc.ChangePassword(ctx, domain.ChangePasswordRequest{
		CurrentPassword: testPassword,
		NewPassword:     "brand new secret",
	}); err != nil {
		t.Fatalf("change: %v", err)
	}

	if _, err := f.svc.Login(context.Background(), domain.LoginRequest{
		Email:    f.user.Email,
		Password: "brand new secret",
	}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestForgotPasswordUnknownEmailSilent(t *testing.T) {
	f := newAuthFixture(t)

	if err := f.svc.ForgotPassword(context.Background(), "nobody@acme.test"); err != nil {
		t.Fatalf("err = %v, want silent success", err)
	}
}

func TestForgotPasswordRotatesCredential(t *testing.T) {
	f := newAuthFixture(t)

	if err := f.svc.ForgotPassword(context.Background(), f.user.Email); err != nil {
		t.Fatalf("forgot: %v", err)
	}

	_, err := f.svc.Login(context.Background(), domain.LoginRequest{
		Email:    f.user.Email,
		Password: testPassword,
	})
	if err != domain.ErrInvalidCredentials {
		t.Fatalf("old password still valid: %v", err)
	}
}
