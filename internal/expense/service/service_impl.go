package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	approvaldomain "github.com/smallbiznis/expensio/internal/approval/domain"
	ruledomain "github.com/smallbiznis/expensio/internal/approvalrule/domain"
	auditdomain "github.com/smallbiznis/expensio/internal/audit/domain"
	companydomain "github.com/smallbiznis/expensio/internal/company/domain"
	"github.com/smallbiznis/expensio/internal/currency"
	"github.com/smallbiznis/expensio/internal/expense/domain"
	"github.com/smallbiznis/expensio/internal/expense/policy"
	userdomain "github.com/smallbiznis/expensio/internal/user/domain"
	"github.com/smallbiznis/expensio/internal/workflow"
	"github.com/smallbiznis/expensio/pkg/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	DB        *gorm.DB
	Repo      domain.Repository
	Approvals approvaldomain.Repository
	Rules     ruledomain.Repository
	Users     userdomain.Repository
	Companies companydomain.Repository
	Converter currency.Converter
	Audit     auditdomain.Recorder
	GenID     *snowflake.Node
}

type service struct {
	log       *zap.Logger
	db        *gorm.DB
	repo      domain.Repository
	approvals approvaldomain.Repository
	rules     ruledomain.Repository
	users     userdomain.Repository
	companies companydomain.Repository
	converter currency.Converter
	audit     auditdomain.Recorder
	genID     *snowflake.Node
}

func NewService(p Params) domain.Service {
	return &service{
		log:       p.Log.Named("expense.service"),
		db:        p.DB,
		repo:      p.Repo,
		approvals: p.Approvals,
		rules:     p.Rules,
		users:     p.Users,
		companies: p.Companies,
		converter: p.Converter,
		audit:     p.Audit,
		genID:     p.GenID,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateExpenseRequest) (*domain.Expense, error) {
	actor, ok := tenantctx.PrincipalFrom(ctx)
	if !ok {
		return nil, domain.ErrNotFound
	}

	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if !req.Category.Valid() {
		return nil, domain.ErrInvalidCategory
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, domain.ErrInvalidDescription
	}
	cur := strings.ToUpper(strings.TrimSpace(req.Currency))
	if len(cur) != 3 {
		return nil, domain.ErrInvalidCurrency
	}

	company, err := s.companies.FindByID(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}

	// Conversion happens before the transaction: a rate failure must leave
	// nothing behind.
	converted, err := s.converter.Convert(ctx, req.Amount, cur, company.Currency)
	if err != nil {
		return nil, err
	}

	expenseDate := req.ExpenseDate
	if expenseDate.IsZero() {
		expenseDate = time.Now().UTC()
	}

	now := time.Now().UTC()
	expense := &domain.Expense{
		ID:              s.genID.Generate(),
		CompanyID:       actor.CompanyID,
		UserID:          actor.UserID,
		Amount:          req.Amount,
		Currency:        cur,
		ConvertedAmount: converted,
		CompanyCurrency: company.Currency,
		Category:        req.Category,
		Description:     strings.TrimSpace(req.Description),
		Status:          domain.StatusPending,
		ExpenseDate:     expenseDate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Insert(ctx, expense); err != nil {
			return err
		}
		return s.buildPlan(ctx, tx, expense)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("expense submitted",
		zap.String("expense_id", expense.ID.String()),
		zap.String("status", string(expense.Status)),
		zap.Float64("converted_amount", expense.ConvertedAmount),
	)

	return s.repo.FindByID(ctx, actor.CompanyID, expense.ID)
}

// buildPlan resolves the approval plan for expense and persists it inside tx.
// An empty plan approves the expense immediately.
func (s *service) buildPlan(ctx context.Context, tx *gorm.DB, expense *domain.Expense) error {
	users := s.users.WithTx(tx)
	rules := s.rules.WithTx(tx)
	approvals := s.approvals.WithTx(tx)
	repo := s.repo.WithTx(tx)

	owner, err := users.FindByID(ctx, expense.CompanyID, expense.UserID)
	if err != nil {
		return err
	}
	if owner == nil {
		return domain.ErrNotFound
	}

	companyUsers, err := users.List(ctx, expense.CompanyID, userdomain.ListUserFilter{})
	if err != nil {
		return err
	}
	activeRules, err := rules.ListActive(ctx, expense.CompanyID)
	if err != nil {
		return err
	}

	steps, err := workflow.Resolve(workflow.ResolveInput{
		Owner:           *owner,
		Users:           companyUsers,
		Rules:           activeRules,
		ConvertedAmount: expense.ConvertedAmount,
	})
	if err != nil {
		return err
	}

	if len(steps) == 0 {
		expense.Status = domain.StatusApproved
		expense.UpdatedAt = time.Now().UTC()
		expense.User = nil
		return repo.Update(ctx, expense)
	}

	now := time.Now().UTC()
	entries := make([]approvaldomain.Approval, len(steps))
	for i, step := range steps {
		entries[i] = approvaldomain.Approval{
			ID:         s.genID.Generate(),
			ExpenseID:  expense.ID,
			ApproverID: step.ApproverID,
			StepOrder:  step.Order,
			Status:     approvaldomain.StatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}
	return approvals.InsertBatch(ctx, entries)
}

func (s *service) List(ctx context.Context, req domain.ListExpenseRequest) ([]domain.Expense, error) {
	actor, ok := tenantctx.PrincipalFrom(ctx)
	if !ok {
		return nil, domain.ErrNotFound
	}

	filter := domain.ListExpenseFilter{
		Status:   req.Status,
		Category: req.Category,
		DateFrom: req.DateFrom,
		DateTo:   req.DateTo,
	}
	// The userId filter is only meaningful for roles that can see beyond
	// their own rows; the visibility scope still bounds the result.
	if userdomain.Role(actor.Role) != userdomain.RoleEmployee {
		filter.UserID = req.UserID
	}

	return s.repo.List(ctx, actor.CompanyID, filter, policy.Scope(actor))
}

func (s *service) Get(ctx context.Context, id snowflake.ID) (*domain.Expense, error) {
	actor, ok := tenantctx.PrincipalFrom(ctx)
	if !ok {
		return nil, domain.ErrNotFound
	}

	expense, err := s.repo.FindByID(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, err
	}
	if expense == nil {
		return nil, domain.ErrNotFound
	}

	var ownerManagerID *snowflake.ID
	if expense.User != nil {
		ownerManagerID = expense.User.ManagerID
	}
	if !policy.CanView(actor, expense.UserID, ownerManagerID) {
		return nil, domain.ErrAccessDenied
	}
	return expense, nil
}

func (s *service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateExpenseRequest) (*domain.Expense, error) {
	actor, ok := tenantctx.PrincipalFrom(ctx)
	if !ok {
		return nil, domain.ErrNotFound
	}

	expense, err := s.repo.FindByID(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, err
	}
	if expense == nil {
		return nil, domain.ErrNotFound
	}
	if !policy.CanModify(actor, expense.UserID) {
		return nil, domain.ErrAccessDenied
	}
	if expense.Status != domain.StatusPending {
		return nil, domain.ErrNotEditable
	}

	reroute := false
	if req.Amount != nil {
		if *req.Amount <= 0 {
			return nil, domain.ErrInvalidAmount
		}
		if *req.Amount != expense.Amount {
			expense.Amount = *req.Amount
			reroute = true
		}
	}
	if req.Currency != nil {
		cur := strings.ToUpper(strings.TrimSpace(*req.Currency))
		if len(cur) != 3 {
			return nil, domain.ErrInvalidCurrency
		}
		if cur != expense.Currency {
			expense.Currency = cur
			reroute = true
		}
	}
	if req.Category != nil {
		if !req.Category.Valid() {
			return nil, domain.ErrInvalidCategory
		}
		expense.Category = *req.Category
	}
	if req.Description != nil {
		if strings.TrimSpace(*req.Description) == "" {
			return nil, domain.ErrInvalidDescription
		}
		expense.Description = strings.TrimSpace(*req.Description)
	}
	if req.ExpenseDate != nil {
		expense.ExpenseDate = *req.ExpenseDate
	}

	if reroute {
		converted, err := s.converter.Convert(ctx, expense.Amount, expense.Currency, expense.CompanyCurrency)
		if err != nil {
			return nil, err
		}
		expense.ConvertedAmount = converted
	}

	expense.UpdatedAt = time.Now().UTC()
	expense.User = nil

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Update(ctx, expense); err != nil {
			return err
		}
		if !reroute {
			return nil
		}
		// The converted amount moved, so the routing plan is stale. Replace
		// it wholesale: any step already approved signed off on the old
		// amount and must be re-taken.
		if err := s.approvals.WithTx(tx).DeleteByExpense(ctx, expense.ID); err != nil {
			return err
		}
		return s.buildPlan(ctx, tx, expense)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, actor.CompanyID, id)
}

func (s *service) Delete(ctx context.Context, id snowflake.ID) error {
	actor, ok := tenantctx.PrincipalFrom(ctx)
	if !ok {
		return domain.ErrNotFound
	}

	expense, err := s.repo.FindByID(ctx, actor.CompanyID, id)
	if err != nil {
		return err
	}
	if expense == nil {
		return domain.ErrNotFound
	}
	if !policy.CanModify(actor, expense.UserID) {
		return domain.ErrAccessDenied
	}
	// Owners can withdraw a pending expense; admins can remove any.
	if userdomain.Role(actor.Role) != userdomain.RoleAdmin && expense.Status != domain.StatusPending {
		return domain.ErrNotEditable
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.approvals.WithTx(tx).DeleteByExpense(ctx, expense.ID); err != nil {
			return err
		}
		return s.repo.WithTx(tx).Delete(ctx, actor.CompanyID, expense.ID)
	})
}

func (s *service) Dashboard(ctx context.Context) (*domain.DashboardReport, error) {
	actor, ok := tenantctx.PrincipalFrom(ctx)
	if !ok {
		return nil, domain.ErrNotFound
	}

	company, err := s.companies.FindByID(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}

	counts, err := s.repo.CountByStatus(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.SumApproved(ctx, actor.CompanyID, nil, nil)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthTotal, err := s.repo.SumApproved(ctx, actor.CompanyID, &monthStart, nil)
	if err != nil {
		return nil, err
	}

	categories, err := s.repo.TotalsByCategory(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}

	return &domain.DashboardReport{
		StatusCounts:       counts,
		ApprovedTotal:      total,
		ApprovedTotalMonth: monthTotal,
		CategoryTotals:     categories,
		Currency:           company.Currency,
	}, nil
}

func (s *service) ExportCSV(ctx context.Context, w io.Writer) error {
	actor, ok := tenantctx.PrincipalFrom(ctx)
	if !ok {
		return domain.ErrNotFound
	}

	expenses, err := s.repo.List(ctx, actor.CompanyID, domain.ListExpenseFilter{}, nil)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{"id", "date", "employee", "category", "description", "amount", "currency", "converted_amount", "company_currency", "status"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, e := range expenses {
		employee := ""
		if e.User != nil {
			employee = e.User.FullName()
		}
		record := []string{
			e.ID.String(),
			e.ExpenseDate.Format("2006-01-02"),
			employee,
			string(e.Category),
			e.Description,
			fmt.Sprintf("%.2f", e.Amount),
			e.Currency,
			fmt.Sprintf("%.2f", e.ConvertedAmount),
			e.CompanyCurrency,
			string(e.Status),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
