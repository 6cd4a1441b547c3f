package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	approvaldomain "github.com/smallbiznis/expensio/internal/approval/domain"
	approvalrepo "github.com/smallbiznis/expensio/internal/approval/repository"
	ruledomain "github.com/smallbiznis/expensio/internal/approvalrule/domain"
	rulerepo "github.com/smallbiznis/expensio/internal/approvalrule/repository"
	companydomain "github.com/smallbiznis/expensio/internal/company/domain"
	companyrepo "github.com/smallbiznis/expensio/internal/company/repository"
	"github.com/smallbiznis/expensio/internal/currency"
	"github.com/smallbiznis/expensio/internal/expense/domain"
	expenserepo "github.com/smallbiznis/expensio/internal/expense/repository"
	"github.com/smallbiznis/expensio/internal/migration"
	userdomain "github.com/smallbiznis/expensio/internal/user/domain"
	userrepo "github.com/smallbiznis/expensio/internal/user/repository"
	"github.com/smallbiznis/expensio/pkg/db"
	"github.com/smallbiznis/expensio/pkg/tenantctx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubConverter struct {
	rate float64
	err  error
}

func (s stubConverter) Convert(_ context.Context, amount float64, from, to string) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if from == to {
		return amount, nil
	}
	return amount * s.rate, nil
}

type noopRecorder struct{}

func (noopRecorder) Record(context.Context, string, string, string, map[string]any) {}

type fixture struct {
	t         *testing.T
	conn      *gorm.DB
	node      *snowflake.Node
	svc       domain.Service
	approvals approvaldomain.Repository
	rules     ruledomain.Repository
	users     userdomain.Repository
	company   companydomain.Company
}

func newFixture(t *testing.T, converter currency.Converter) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := migration.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	f := &fixture{
		t:         t,
		conn:      conn,
		node:      node,
		approvals: approvalrepo.NewRepository(conn),
		rules:     rulerepo.NewRepository(conn),
		users:     userrepo.NewRepository(conn),
	}

	f.svc = NewService(Params{
		Log:       zap.NewNop(),
		DB:        conn,
		Repo:      expenserepo.NewRepository(conn),
		Approvals: f.approvals,
		Rules:     f.rules,
		Users:     f.users,
		Companies: companyrepo.NewRepository(conn),
		Converter: converter,
		Audit:     noopRecorder{},
		GenID:     node,
	})

	now := time.Now().UTC()
	f.company = companydomain.Company{
		ID:        node.Generate(),
		Name:      "Acme",
		Slug:      "acme",
		Country:   "US",
		Currency:  "USD",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := conn.Create(&f.company).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}

	return f
}

func (f *fixture) addUser(role userdomain.Role, managerID *snowflake.ID, active bool) userdomain.User {
	f.t.Helper()

	now := time.Now().UTC()
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
		IsActive:     active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := f.conn.Create(&user).Error; err != nil {
		f.t.Fatalf("seed user: %v", err)
	}
	return user
}

func (f *fixture) ctxFor(user userdomain.User) context.Context {
	return tenantctx.WithPrincipal(context.Background(), tenantctx.Principal{
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		Role:      string(user.Role),
		ManagerID: user.ManagerID,
	})
}

func (f *fixture) createRequest() domain.CreateExpenseRequest {
	return domain.CreateExpenseRequest{
		Amount:      120,
		Currency:    "USD",
		Category:    domain.CategoryTravel,
		Description: "client visit",
		ExpenseDate: time.Now().UTC(),
	}
}

func TestCreateAutoApprovesWithoutApprovers(t *testing.T) {
	f := newFixture(t, stubConverter{rate: 1})
	admin := f.addUser(userdomain.RoleAdmin, nil, true)

	created, err := f.svc.Create(f.ctxFor(admin), f.createRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != domain.StatusApproved {
		t.Fatalf("status = %s, want APPROVED", created.Status)
	}

	entries, err := f.approvals.ListByExpense(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("list approvals: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("approvals = %d, want none", len(entries))
	}
}

func TestCreateRoutesToManager(t *testing.T) {
	f := newFixture(t, stubConverter{rate: 1})
	manager := f.addUser(userdomain.RoleManager, nil, true)
	employee := f.addUser(userdomain.RoleEmployee, &manager.ID, true)

	created, err := f.svc.Create(f.ctxFor(employee), f.createRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != domain.StatusPending {
		t.Fatalf("status = %s, want PENDING", created.Status)
	}

	entries, err := f.approvals.ListByExpense(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("list approvals: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("approvals = %d, want 1", len(entries))
	}
	if entries[0].ApproverID != manager.ID || entries[0].StepOrder != 1 {
		t.Fatalf("step = (%s, %d), want manager at order 1", entries[0].ApproverID, entries[0].StepOrder)
	}
}

func TestCreateRoutesToDesignatedApprover(t *testing.T) {
	f := newFixture(t, stubConverter{rate: 1})
	manager := f.addUser(userdomain.RoleManager, nil, true)
	admin := f.addUser(userdomain.RoleAdmin, nil, true)
	employee := f.addUser(userdomain.RoleEmployee, &manager.ID, true)

	rule := ruledomain.ApprovalRule{
		ID:                f.node.Generate(),
		CompanyID:         f.company.ID,
		RuleType:          ruledomain.RuleTypeSpecificApprover,
		Threshold:         100,
		SpecialApproverID: &admin.ID,
		IsActive:          true,
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}
	if err := f.conn.Create(&rule).Error; err != nil {
		t.Fatalf("seed rule: %v", err)
	}

	created, err := f.svc.Create(f.ctxFor(employee), f.createRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	entries, err := f.approvals.ListByExpense(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("list approvals: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("approvals = %d, want 1", len(entries))
	}
	if entries[0].ApproverID != admin.ID {
		t.Fatalf("approver = %s, want designated admin", entries[0].ApproverID)
	}
}

func TestCreateRateFailureLeavesNothingBehind(t *testing.T) {
	f := newFixture(t, stubConverter{err: currency.ErrRateUnavailable})
	admin := f.addUser(userdomain.RoleAdmin, nil, true)

	req := f.createRequest()
	req.Currency = "EUR"
	if _, err := f.svc.Create(f.ctxFor(admin), req); err == nil {
		t.Fatal("expected rate error")
	}

	var count int64
	if err := f.conn.Model(&domain.Expense{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expenses = %d, want 0", count)
	}
}

func TestGetScopedToCompany(t *testing.T) {
	f := newFixture(t, stubConverter{rate: 1})
	admin := f.addUser(userdomain.RoleAdmin, nil, true)

	created, err := f.svc.Create(f.ctxFor(admin), f.createRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	other := companydomain.Company{
		ID:       f.node.Generate(),
		Name:     "Globex",
		Slug:     "globex",
		Country:  "US",
		Currency: "USD",
	}
	if err := f.conn.Create(&other).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}
	outsider := userdomain.User{
		ID:           f.node.Generate(),
		CompanyID:    other.ID,
		Email:        "outsider@globex.test",
		PasswordHash: "x",
		FirstName:    "Out",
		LastName:     "Sider",
		Role:         userdomain.RoleAdmin,
		IsActive:     true,
	}
	if err := f.conn.Create(&outsider).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	if _, err := f.svc.Get(f.ctxFor(outsider), created.ID); err != domain.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestEmployeeCannotSeeUnrelatedExpense(t *testing.T) {
	f := newFixture(t, stubConverter{rate: 1})
	manager := f.addUser(userdomain.RoleManager, nil, true)
	owner := f.addUser(userdomain.RoleEmployee, &manager.ID, true)
	peer := f.addUser(userdomain.RoleEmployee, &manager.ID, true)

	created, err := f.svc.Create(f.ctxFor(owner), f.createRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.svc.Get(f.ctxFor(peer), created.ID); err != domain.ErrAccessDenied {
		t.Fatalf("peer err = %v, want ErrAccessDenied", err)
	}
	if _, err := f.svc.Get(f.ctxFor(manager), created.ID); err != nil {
		t.Fatalf("manager err = %v, want access", err)
	}
}

func TestListManagerScope(t *testing.T) {
	f := newFixture(t, stubConverter{rate: 1})
	manager := f.addUser(userdomain.RoleManager, nil, true)
	other := f.addUser(userdomain.RoleManager, nil, true)
	report := f.addUser(userdomain.RoleEmployee, &manager.ID, true)
	stranger := f.addUser(userdomain.RoleEmployee, &other.ID, true)

	mine, err := f.svc.Create(f.ctxFor(manager), f.createRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	reported, err := f.svc.Create(f.ctxFor(report), f.createRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Create(f.ctxFor(stranger), f.createRequest()); err != nil {
		t.Fatalf("create: %v", err)
	}

	// A foreign company's expense must never show up, whatever the role.
	otherCo := companydomain.Company{
		ID:       f.node.Generate(),
		Name:     "Globex",
		Slug:     "globex",
		Country:  "US",
		Currency: "USD",
	}
	if err := f.conn.Create(&otherCo).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}
	outsider := userdomain.User{
		ID:           f.node.Generate(),
		CompanyID:    otherCo.ID,
		Email:        "outsider@globex.test",
		PasswordHash: "x",
		FirstName:    "Out",
		LastName:     "Sider",
		Role:         userdomain.RoleEmployee,
		IsActive:     true,
	}
	if err := f.conn.Create(&outsider).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	foreign := domain.Expense{
		ID:              f.node.Generate(),
		CompanyID:       otherCo.ID,
		UserID:          outsider.ID,
		Amount:          50,
		Currency:        "USD",
		ConvertedAmount: 50,
		CompanyCurrency: "USD",
		Category:        domain.CategoryTravel,
		Description:     "taxi",
		Status:          domain.StatusPending,
		ExpenseDate:     time.Now().UTC(),
	}
	if err := f.conn.Create(&foreign).Error; err != nil {
		t.Fatalf("seed expense: %v", err)
	}

	listed, err := f.svc.List(f.ctxFor(manager), domain.ListExpenseRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("manager sees %d expenses, want own + direct report", len(listed))
	}
	seen := map[snowflake.ID]bool{}
	for _, e := range listed {
		seen[e.ID] = true
	}
	if !seen[mine.ID] || !seen[reported.ID] {
		t.Fatalf("manager scope = %v, want {%s, %s}", seen, mine.ID, reported.ID)
	}

	own, err := f.svc.List(f.ctxFor(report), domain.ListExpenseRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(own) != 1 || own[0].ID != reported.ID {
		t.Fatalf("employee sees %d expenses, want only their own", len(own))
	}

	admin := f.addUser(userdomain.RoleAdmin, nil, true)
	all, err := f.svc.List(f.ctxFor(admin), domain.ListExpenseRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("admin sees %d expenses, want the whole company and nothing beyond", len(all))
	}
}

func TestUpdateAmountRebuildsPlan(t *testing.T) {
	f := newFixture(t, stubConverter{rate: 1})
	manager := f.addUser(userdomain.RoleManager, nil, true)
	admin := f.addUser(userdomain.RoleAdmin, nil, true)
	employee := f.addUser(userdomain.RoleEmployee, &manager.ID, true)

	rule := ruledomain.ApprovalRule{
		ID:                f.node.Generate(),
		CompanyID:         f.company.ID,
		RuleType:          ruledomain.RuleTypeSpecificApprover,
		Threshold:         500,
		SpecialApproverID: &admin.ID,
		IsActive:          true,
	}
	if err := f.conn.Create(&rule).Error; err != nil {
		t.Fatalf("seed rule: %v", err)
	}

	created, err := f.svc.Create(f.ctxFor(employee), f.createRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	amount := 900.0
	updated, err := f.svc.Update(f.ctxFor(employee), created.ID, domain.UpdateExpenseRequest{Amount: &amount})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ConvertedAmount != 900 {
		t.Fatalf("converted = %v, want 900", updated.ConvertedAmount)
	}

	entries, err := f.approvals.ListByExpense(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("list approvals: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("approvals = %d, want plan rebuilt to 1 step", len(entries))
	}
	if entries[0].ApproverID != admin.ID {
		t.Fatalf("approver = %s, want designated admin after reroute", entries[0].ApproverID)
	}
}

func TestUpdateDiscardsPartialApprovals(t *testing.T) {
	f := newFixture(t, stubConverter{rate: 1})
	manager := f.addUser(userdomain.RoleManager, nil, true)
	admin := f.addUser(userdomain.RoleAdmin, nil, true)
	employee := f.addUser(userdomain.RoleEmployee, &manager.ID, true)

	maxAmount := 500.0
	rule := ruledomain.ApprovalRule{
		ID:                f.node.Generate(),
		CompanyID:         f.company.ID,
		RuleType:          ruledomain.RuleTypeHybrid,
		Threshold:         100,
		MaxAmount:         &maxAmount,
		SpecialApproverID: &admin.ID,
		IsActive:          true,
	}
	if err := f.conn.Create(&rule).Error; err != nil {
		t.Fatalf("seed rule: %v", err)
	}

	req := f.createRequest()
	req.Amount = 900
	created, err := f.svc.Create(f.ctxFor(employee), req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	entries, err := f.approvals.ListByExpense(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("list approvals: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("approvals = %d, want manager + designated approver", len(entries))
	}
	if err := f.conn.Model(&approvaldomain.Approval{}).Where("id = ?", entries[0].ID).
		Update("status", approvaldomain.StatusApproved).Error; err != nil {
		t.Fatalf("approve first step: %v", err)
	}

	// The amount the first approver signed off on no longer exists, so the
	// rebuilt plan starts from scratch.
	amount := 300.0
	if _, err := f.svc.Update(f.ctxFor(employee), created.ID, domain.UpdateExpenseRequest{Amount: &amount}); err != nil {
		t.Fatalf("update: %v", err)
	}

	rebuilt, err := f.approvals.ListByExpense(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("list approvals: %v", err)
	}
	if len(rebuilt) != 1 {
		t.Fatalf("approvals = %d, want fresh single-step plan", len(rebuilt))
	}
	if rebuilt[0].Status != approvaldomain.StatusPending || rebuilt[0].ApproverID != manager.ID {
		t.Fatalf("step = (%s, %s), want pending manager step", rebuilt[0].Status, rebuilt[0].ApproverID)
	}
}

func TestDeleteSettledExpenseRefused(t *testing.T) {
	f := newFixture(t, stubConverter{rate: 1})
	admin := f.addUser(userdomain.RoleAdmin, nil, true)
	manager := f.addUser(userdomain.RoleManager, nil, true)
	employee := f.addUser(userdomain.RoleEmployee, &manager.ID, true)

	created, err := f.svc.Create(f.ctxFor(employee), f.createRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := f.conn.Model(&domain.Expense{}).Where("id = ?", created.ID).Update("status", domain.StatusApproved).Error; err != nil {
		t.Fatalf("settle: %v", err)
	}

	if err := f.svc.Delete(f.ctxFor(employee), created.ID); err != domain.ErrNotEditable {
		t.Fatalf("owner delete err = %v, want ErrNotEditable", err)
	}
	if err := f.svc.Delete(f.ctxFor(admin), created.ID); err != nil {
		t.Fatalf("admin delete err = %v, want allowed", err)
	}
}

func TestDashboardTotals(t *testing.T) {
	f := newFixture(t, stubConverter{rate: 1})
	admin := f.addUser(userdomain.RoleAdmin, nil, true)
	ctx := f.ctxFor(admin)

	if _, err := f.svc.Create(ctx, f.createRequest()); err != nil {
		t.Fatalf("create: %v", err)
	}
	req := f.createRequest()
	req.Amount = 80
	req.Category = domain.CategoryFood
	if _, err := f.svc.Create(ctx, req); err != nil {
		t.Fatalf("create: %v", err)
	}

	report, err := f.svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	// The sole admin's expenses auto-approve, so both count as approved spend.
	if report.ApprovedTotal != 200 {
		t.Fatalf("approved total = %v, want 200", report.ApprovedTotal)
	}
	if report.Currency != "USD" {
		t.Fatalf("currency = %s, want USD", report.Currency)
	}
	if len(report.CategoryTotals) != 2 {
		t.Fatalf("category totals = %d, want 2", len(report.CategoryTotals))
	}
}
