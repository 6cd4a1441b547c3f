package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/expensio/internal/expense/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, expense *domain.Expense) error {
	return r.db.WithContext(ctx).Create(expense).Error
}

func (r *repository) Update(ctx context.Context, expense *domain.Expense) error {
	return r.db.WithContext(ctx).Save(expense).Error
}

func (r *repository) Delete(ctx context.Context, companyID, id snowflake.ID) error {
	return r.db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		Delete(&domain.Expense{}).Error
}

func (r *repository) FindByID(ctx context.Context, companyID, id snowflake.ID) (*domain.Expense, error) {
	var expense domain.Expense
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("company_id = ? AND id = ?", companyID, id).
		First(&expense).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &expense, nil
}

func (r *repository) List(ctx context.Context, companyID snowflake.ID, filter domain.ListExpenseFilter, scope func(*gorm.DB) *gorm.DB) ([]domain.Expense, error) {
	q := r.db.WithContext(ctx).
		Preload("User").
		Where("expenses.company_id = ?", companyID)
	if scope != nil {
		q = q.Scopes(scope)
	}

	if filter.Status != "" {
		q = q.Where("expenses.status = ?", filter.Status)
	}
	if filter.Category != "" {
		q = q.Where("expenses.category = ?", filter.Category)
	}
	if filter.UserID != 0 {
		q = q.Where("expenses.user_id = ?", filter.UserID)
	}
	if filter.DateFrom != nil {
		q = q.Where("expenses.expense_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		q = q.Where("expenses.expense_date <= ?", *filter.DateTo)
	}

	var expenses []domain.Expense
	if err := q.Order("expenses.created_at DESC").Find(&expenses).Error; err != nil {
		return nil, err
	}
	return expenses, nil
}

func (r *repository) CountByStatus(ctx context.Context, companyID snowflake.ID) ([]domain.StatusCount, error) {
	var counts []domain.StatusCount
	err := r.db.WithContext(ctx).
		Model(&domain.Expense{}).
		Select("status, COUNT(*) AS count").
		Where("company_id = ?", companyID).
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *repository) SumApproved(ctx context.Context, companyID snowflake.ID, from, to *time.Time) (float64, error) {
	q := r.db.WithContext(ctx).
		Model(&domain.Expense{}).
		Where("company_id = ? AND status = ?", companyID, domain.StatusApproved)
	if from != nil {
		q = q.Where("expense_date >= ?", *from)
	}
	if to != nil {
		q = q.Where("expense_date <= ?", *to)
	}

	var total *float64
	if err := q.Select("SUM(converted_amount)").Scan(&total).Error; err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (r *repository) TotalsByCategory(ctx context.Context, companyID snowflake.ID) ([]domain.CategoryTotal, error) {
	var totals []domain.CategoryTotal
	err := r.db.WithContext(ctx).
		Model(&domain.Expense{}).
		Select("category, COUNT(*) AS count, SUM(converted_amount) AS total").
		Where("company_id = ?", companyID).
		Group("category").
		Order("category ASC").
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return totals, nil
}

func (r *repository) HasSettledByUser(ctx context.Context, companyID, userID snowflake.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Expense{}).
		Where("company_id = ? AND user_id = ? AND status <> ?", companyID, userID, domain.StatusPending).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) HasPendingByUser(ctx context.Context, companyID, userID snowflake.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Expense{}).
		Where("company_id = ? AND user_id = ? AND status = ?", companyID, userID, domain.StatusPending).
		Count(&count).Error
	return count > 0, err
}
