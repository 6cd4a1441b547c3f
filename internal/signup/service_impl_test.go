package signup

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	authrepo "github.com/smallbiznis/expensio/internal/auth/repository"
	authservice "github.com/smallbiznis/expensio/internal/auth/service"
	companydomain "github.com/smallbiznis/expensio/internal/company/domain"
	companyrepo "github.com/smallbiznis/expensio/internal/company/repository"
	"github.com/smallbiznis/expensio/internal/migration"
	"github.com/smallbiznis/expensio/internal/providers/email"
	"github.com/smallbiznis/expensio/internal/reference"
	"github.com/smallbiznis/expensio/internal/seed"
	"github.com/smallbiznis/expensio/internal/signup/domain"
	userdomain "github.com/smallbiznis/expensio/internal/user/domain"
	userrepo "github.com/smallbiznis/expensio/internal/user/repository"
	"github.com/smallbiznis/expensio/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type signupFixture struct {
	conn *gorm.DB
	svc  domain.Service
	auth interface {
		Authenticate(ctx context.Context, token string) (*userdomain.User, error)
	}
}

func newSignupFixture(t *testing.T) *signupFixture {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := migration.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := seed.EnsureReferenceData(conn); err != nil {
		t.Fatalf("seed reference data: %v", err)
	}
	node, err := snowflake.NewNode(5)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	users := userrepo.NewRepository(conn)
	authsvc := authservice.New(zap.NewNop(), users, authrepo.NewSessionRepository(conn), &email.NoOpProvider{}, node)

	return &signupFixture{
		conn: conn,
		auth: authsvc,
		svc: NewService(
			zap.NewNop(),
			conn,
			companyrepo.NewRepository(conn),
			users,
			reference.NewRepository(conn),
			authsvc,
			node,
		),
	}
}

func validRequest() domain.Request {
	return domain.Request{
		CompanyName: "Initech",
		Country:     "GB",
		FirstName:   "Ada",
		LastName:    "Admin",
		Email:       "ada@initech.test",
		Password:    "a long password",
	}
}

func TestSignupBootstrapsTenant(t *testing.T) {
	f := newSignupFixture(t)

	res, err := f.svc.Signup(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	if res.Company.Currency != "GBP" {
		t.Fatalf("currency = %s, want GBP from country", res.Company.Currency)
	}
	if res.Company.Slug == "" {
		t.Fatal("missing slug")
	}
	if res.User.Role != userdomain.RoleAdmin {
		t.Fatalf("role = %s, want ADMIN", res.User.Role)
	}
	if res.User.CompanyID != res.Company.ID {
		t.Fatal("admin not attached to company")
	}

	// Signup ends with a live session.
	user, err := f.auth.Authenticate(context.Background(), res.RawToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.ID != res.User.ID {
		t.Fatal("session resolves to wrong user")
	}
}

func TestSignupUnknownCountry(t *testing.T) {
	f := newSignupFixture(t)

	req := validRequest()
	req.Country = "ZZ"
	if _, err := f.svc.Signup(context.Background(), req); err != domain.ErrInvalidCountry {
		t.Fatalf("err = %v, want ErrInvalidCountry", err)
	}
}

func TestSignupWeakPassword(t *testing.T) {
	f := newSignupFixture(t)

	req := validRequest()
	req.Password = "short"
	if _, err := f.svc.Signup(context.Background(), req); err != domain.ErrWeakPassword {
		t.Fatalf("err = %v, want ErrWeakPassword", err)
	}
}

func TestSignupDuplicateEmailRollsBackCompany(t *testing.T) {
	f := newSignupFixture(t)

	if _, err := f.svc.Signup(context.Background(), validRequest()); err != nil {
		t.Fatalf("signup: %v", err)
	}

	req := validRequest()
	req.CompanyName = "Globex"
	if _, err := f.svc.Signup(context.Background(), req); err != domain.ErrEmailTaken {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}

	var companies int64
	if err := f.conn.Model(&companydomain.Company{}).Count(&companies).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if companies != 1 {
		t.Fatalf("companies = %d, want orphaned company rolled back", companies)
	}
}

func TestSignupSlugCollision(t *testing.T) {
	f := newSignupFixture(t)

	first, err := f.svc.Signup(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	req := validRequest()
	req.Email = "other@initech.test"
	second, err := f.svc.Signup(context.Background(), req)
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	if first.Company.Slug == second.Company.Slug {
		t.Fatalf("slug %q reused across companies", first.Company.Slug)
	}
}
