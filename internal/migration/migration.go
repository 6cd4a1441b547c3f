package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	approvaldomain "github.com/smallbiznis/expensio/internal/approval/domain"
	ruledomain "github.com/smallbiznis/expensio/internal/approvalrule/domain"
	auditdomain "github.com/smallbiznis/expensio/internal/audit/domain"
	authdomain "github.com/smallbiznis/expensio/internal/auth/domain"
	companydomain "github.com/smallbiznis/expensio/internal/company/domain"
	expensedomain "github.com/smallbiznis/expensio/internal/expense/domain"
	referencedomain "github.com/smallbiznis/expensio/internal/reference/domain"
	userdomain "github.com/smallbiznis/expensio/internal/user/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// RunMigrations applies the embedded SQL migrations. Postgres only; other
// dialects go through AutoMigrate.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate creates the schema from the domain models.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&companydomain.Company{},
		&userdomain.User{},
		&authdomain.Session{},
		&expensedomain.Expense{},
		&ruledomain.ApprovalRule{},
		&approvaldomain.Approval{},
		&auditdomain.AuditLog{},
		&referencedomain.Country{},
		&referencedomain.Currency{},
	)
}
