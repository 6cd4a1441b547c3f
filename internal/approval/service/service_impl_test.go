package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/expensio/internal/approval/domain"
	approvalrepo "github.com/smallbiznis/expensio/internal/approval/repository"
	companydomain "github.com/smallbiznis/expensio/internal/company/domain"
	expensedomain "github.com/smallbiznis/expensio/internal/expense/domain"
	expenserepo "github.com/smallbiznis/expensio/internal/expense/repository"
	"github.com/smallbiznis/expensio/internal/migration"
	userdomain "github.com/smallbiznis/expensio/internal/user/domain"
	"github.com/smallbiznis/expensio/pkg/db"
	"github.com/smallbiznis/expensio/pkg/tenantctx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type noopRecorder struct{}

func (noopRecorder) Record(context.Context, string, string, string, map[string]any) {}

type ledgerFixture struct {
	t       *testing.T
	conn    *gorm.DB
	node    *snowflake.Node
	svc     domain.Service
	repo    domain.Repository
	company companydomain.Company

	admin    userdomain.User
	manager  userdomain.User
	finance  userdomain.User
	employee userdomain.User
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := migration.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	f := &ledgerFixture{
		t:    t,
		conn: conn,
		node: node,
		repo: approvalrepo.NewRepository(conn),
	}
	f.svc = NewService(zap.NewNop(), conn, f.repo, expenserepo.NewRepository(conn), noopRecorder{})

	f.company = companydomain.Company{
		ID:       node.Generate(),
		Name:     "Acme",
		Slug:     "acme",
		Country:  "US",
		Currency: "USD",
	}
	if err := conn.Create(&f.company).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}

	f.admin = f.addUser(userdomain.RoleAdmin, nil)
	f.manager = f.addUser(userdomain.RoleManager, nil)
	f.finance = f.addUser(userdomain.RoleManager, nil)
	f.employee = f.addUser(userdomain.RoleEmployee, &f.manager.ID)

	return f
}

func (f *ledgerFixture) addUser(role userdomain.Role, managerID *snowflake.ID) userdomain.User {
	f.t.Helper()

	id := f.node.Generate()
	user := userdomain.User{
		ID:           id,
		CompanyID:    f.company.ID,
		Email:        id.String() + "@acme.test",
		PasswordHash: "x",
		FirstName:    "Test",
		LastName:     string(role),
		Role:         role,
		ManagerID:    managerID,
		IsActive:     true,
	}
	if err := f.conn.Create(&user).Error; err != nil {
		f.t.Fatalf("seed user: %v", err)
	}
	return user
}

func (f *ledgerFixture) ctxFor(user userdomain.User) context.Context {
	return tenantctx.WithPrincipal(context.Background(), tenantctx.Principal{
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		Role:      string(user.Role),
		ManagerID: user.ManagerID,
	})
}

// seedPlan inserts a pending expense owned by the employee with one pending
// approval entry per approver, ordered as given.
func (f *ledgerFixture) seedPlan(approvers ...userdomain.User) (expensedomain.Expense, []domain.Approval) {
	f.t.Helper()

	now := time.Now().UTC()
	expense := expensedomain.Expense{
		ID:              f.node.Generate(),
		CompanyID:       f.company.ID,
		UserID:          f.employee.ID,
		Amount:          250,
		Currency:        "USD",
		ConvertedAmount: 250,
		CompanyCurrency: "USD",
		Category:        expensedomain.CategoryTravel,
		Description:     "conference",
		Status:          expensedomain.StatusPending,
		ExpenseDate:     now,
	}
	if err := f.conn.Create(&expense).Error; err != nil {
		f.t.Fatalf("seed expense: %v", err)
	}

	entries := make([]domain.Approval, len(approvers))
	for i, approver := range approvers {
		entries[i] = domain.Approval{
			ID:         f.node.Generate(),
			ExpenseID:  expense.ID,
			ApproverID: approver.ID,
			StepOrder:  i + 1,
			Status:     domain.StatusPending,
		}
		if err := f.conn.Create(&entries[i]).Error; err != nil {
			f.t.Fatalf("seed approval: %v", err)
		}
	}
	return expense, entries
}

func (f *ledgerFixture) expenseStatus(id snowflake.ID) expensedomain.Status {
	f.t.Helper()

	var expense expensedomain.Expense
	if err := f.conn.First(&expense, "id = ?", id).Error; err != nil {
		f.t.Fatalf("load expense: %v", err)
	}
	return expense.Status
}

func TestApproveFinalStepApprovesExpense(t *testing.T) {
	f := newLedgerFixture(t)
	expense, entries := f.seedPlan(f.manager)

	decided, err := f.svc.Approve(f.ctxFor(f.manager), entries[0].ID, domain.DecisionRequest{Comments: "ok"})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if decided.Status != domain.StatusApproved {
		t.Fatalf("status = %s, want APPROVED", decided.Status)
	}
	if decided.DecidedAt == nil || decided.Comments == nil || *decided.Comments != "ok" {
		t.Fatal("decision metadata missing")
	}
	if got := f.expenseStatus(expense.ID); got != expensedomain.StatusApproved {
		t.Fatalf("expense status = %s, want APPROVED", got)
	}
}

func TestApproveIntermediateStepKeepsExpensePending(t *testing.T) {
	f := newLedgerFixture(t)
	expense, entries := f.seedPlan(f.manager, f.finance)

	if _, err := f.svc.Approve(f.ctxFor(f.manager), entries[0].ID, domain.DecisionRequest{}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got := f.expenseStatus(expense.ID); got != expensedomain.StatusPending {
		t.Fatalf("expense status = %s, want PENDING", got)
	}

	if _, err := f.svc.Approve(f.ctxFor(f.finance), entries[1].ID, domain.DecisionRequest{}); err != nil {
		t.Fatalf("approve final: %v", err)
	}
	if got := f.expenseStatus(expense.ID); got != expensedomain.StatusApproved {
		t.Fatalf("expense status = %s, want APPROVED", got)
	}
}

func TestRejectIsVeto(t *testing.T) {
	f := newLedgerFixture(t)
	expense, entries := f.seedPlan(f.manager, f.finance)

	// A rejection may land on any pending step, not just the lowest.
	decided, err := f.svc.Reject(f.ctxFor(f.finance), entries[1].ID, domain.DecisionRequest{Comments: "over budget"})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if decided.Status != domain.StatusRejected {
		t.Fatalf("status = %s, want REJECTED", decided.Status)
	}
	if got := f.expenseStatus(expense.ID); got != expensedomain.StatusRejected {
		t.Fatalf("expense status = %s, want REJECTED", got)
	}
}

func TestRejectFreezesLeftoverSteps(t *testing.T) {
	f := newLedgerFixture(t)
	expense, entries := f.seedPlan(f.manager, f.finance)

	if _, err := f.svc.Reject(f.ctxFor(f.finance), entries[1].ID, domain.DecisionRequest{}); err != nil {
		t.Fatalf("reject: %v", err)
	}

	// Step 1 is still pending, but the rejection settled the expense;
	// approving the leftover step must not resurrect it.
	if _, err := f.svc.Approve(f.ctxFor(f.manager), entries[0].ID, domain.DecisionRequest{}); err != domain.ErrAlreadyProcessed {
		t.Fatalf("err = %v, want ErrAlreadyProcessed", err)
	}
	if got := f.expenseStatus(expense.ID); got != expensedomain.StatusRejected {
		t.Fatalf("expense status = %s, want REJECTED", got)
	}
}

func TestApproveOutOfOrderRefused(t *testing.T) {
	f := newLedgerFixture(t)
	_, entries := f.seedPlan(f.manager, f.finance)

	if _, err := f.svc.Approve(f.ctxFor(f.finance), entries[1].ID, domain.DecisionRequest{}); err != domain.ErrOutOfOrder {
		t.Fatalf("err = %v, want ErrOutOfOrder", err)
	}
}

func TestDecideTwiceConflicts(t *testing.T) {
	f := newLedgerFixture(t)
	_, entries := f.seedPlan(f.manager)

	if _, err := f.svc.Approve(f.ctxFor(f.manager), entries[0].ID, domain.DecisionRequest{}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := f.svc.Reject(f.ctxFor(f.manager), entries[0].ID, domain.DecisionRequest{}); err != domain.ErrAlreadyProcessed {
		t.Fatalf("err = %v, want ErrAlreadyProcessed", err)
	}
}

func TestOnlyAssigneeOrAdminMayDecide(t *testing.T) {
	f := newLedgerFixture(t)
	_, entries := f.seedPlan(f.manager)

	if _, err := f.svc.Approve(f.ctxFor(f.finance), entries[0].ID, domain.DecisionRequest{}); err != domain.ErrNotAllowed {
		t.Fatalf("err = %v, want ErrNotAllowed", err)
	}

	if _, err := f.svc.Approve(f.ctxFor(f.admin), entries[0].ID, domain.DecisionRequest{}); err != nil {
		t.Fatalf("admin approve err = %v, want allowed", err)
	}
}

func TestListScopedToAssignee(t *testing.T) {
	f := newLedgerFixture(t)
	f.seedPlan(f.manager)
	f.seedPlan(f.finance)

	mine, err := f.svc.List(f.ctxFor(f.manager), domain.StatusPending)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("manager sees %d entries, want 1", len(mine))
	}

	all, err := f.svc.List(f.ctxFor(f.admin), domain.StatusPending)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("admin sees %d entries, want 2", len(all))
	}
}

func TestStatsCountsDecisions(t *testing.T) {
	f := newLedgerFixture(t)
	_, first := f.seedPlan(f.manager)
	f.seedPlan(f.manager)

	if _, err := f.svc.Approve(f.ctxFor(f.manager), first[0].ID, domain.DecisionRequest{}); err != nil {
		t.Fatalf("approve: %v", err)
	}

	stats, err := f.svc.Stats(f.ctxFor(f.manager))
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Pending != 1 {
		t.Fatalf("pending = %d, want 1", stats.Pending)
	}
	if stats.Approved != 1 {
		t.Fatalf("approved = %d, want 1", stats.Approved)
	}
	if stats.ApprovedAmount != 250 {
		t.Fatalf("approved amount = %v, want 250", stats.ApprovedAmount)
	}
}
