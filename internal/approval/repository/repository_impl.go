package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/expensio/internal/approval/domain"
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

func (r *repository) InsertBatch(ctx context.Context, entries []domain.Approval) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&entries).Error
}

func (r *repository) Update(ctx context.Context, entry *domain.Approval) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

func (r *repository) FindByID(ctx context.Context, companyID, id snowflake.ID) (*domain.Approval, error) {
	var entry domain.Approval
	err := r.db.WithContext(ctx).
		Preload("Expense").
		Preload("Expense.User").
		Preload("Approver").
		Joins("JOIN expenses ON expenses.id = approvals.expense_id").
		Where("approvals.id = ? AND expenses.company_id = ?", id, companyID).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListByExpense(ctx context.Context, expenseID snowflake.ID) ([]domain.Approval, error) {
	var entries []domain.Approval
	err := r.db.WithContext(ctx).
		Preload("Approver").
		Where("expense_id = ?", expenseID).
		Order("step_order ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) List(ctx context.Context, companyID snowflake.ID, filter domain.ListFilter) ([]domain.Approval, error) {
	q := r.db.WithContext(ctx).
		Preload("Expense").
		Preload("Expense.User").
		Preload("Approver").
		Joins("JOIN expenses ON expenses.id = approvals.expense_id").
		Where("expenses.company_id = ?", companyID)

	if filter.Status != "" {
		q = q.Where("approvals.status = ?", filter.Status)
	}
	if filter.ApproverID != 0 {
		q = q.Where("approvals.approver_id = ?", filter.ApproverID)
	}

	var entries []domain.Approval
	if err := q.Order("approvals.created_at DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) CountPending(ctx context.Context, expenseID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Approval{}).
		Where("expense_id = ? AND status = ?", expenseID, domain.StatusPending).
		Count(&count).Error
	return count, err
}

func (r *repository) MinPendingOrder(ctx context.Context, expenseID snowflake.ID) (int, error) {
	var order *int
	err := r.db.WithContext(ctx).
		Model(&domain.Approval{}).
		Select("MIN(step_order)").
		Where("expense_id = ? AND status = ?", expenseID, domain.StatusPending).
		Scan(&order).Error
	if err != nil {
		return 0, err
	}
	if order == nil {
		return 0, nil
	}
	return *order, nil
}

func (r *repository) Stats(ctx context.Context, companyID, approverID snowflake.ID, monthStart time.Time) (*domain.Stats, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).
			Model(&domain.Approval{}).
			Joins("JOIN expenses ON expenses.id = approvals.expense_id").
			Where("expenses.company_id = ?", companyID)
		if approverID != 0 {
			q = q.Where("approvals.approver_id = ?", approverID)
		}
		return q
	}

	var stats domain.Stats
	if err := base().Where("approvals.status = ?", domain.StatusPending).Count(&stats.Pending).Error; err != nil {
		return nil, err
	}
	if err := base().Where("approvals.status = ?", domain.StatusApproved).Count(&stats.Approved).Error; err != nil {
		return nil, err
	}
	if err := base().Where("approvals.status = ?", domain.StatusRejected).Count(&stats.Rejected).Error; err != nil {
		return nil, err
	}

	var total *float64
	err := base().
		Where("approvals.status = ?", domain.StatusApproved).
		Select("SUM(expenses.converted_amount)").
		Scan(&total).Error
	if err != nil {
		return nil, err
	}
	if total != nil {
		stats.ApprovedAmount = *total
	}

	err = base().
		Where("approvals.status <> ? AND approvals.decided_at >= ?", domain.StatusPending, monthStart).
		Count(&stats.DecidedMonth).Error
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

func (r *repository) HasPendingAtOrAbove(ctx context.Context, companyID snowflake.ID, threshold float64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Approval{}).
		Joins("JOIN expenses ON expenses.id = approvals.expense_id").
		Where("expenses.company_id = ? AND approvals.status = ? AND expenses.converted_amount >= ?",
			companyID, domain.StatusPending, threshold).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) HasPendingByApprover(ctx context.Context, companyID, approverID snowflake.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Approval{}).
		Joins("JOIN expenses ON expenses.id = approvals.expense_id").
		Where("expenses.company_id = ? AND approvals.approver_id = ? AND approvals.status = ?",
			companyID, approverID, domain.StatusPending).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) DeleteByExpense(ctx context.Context, expenseID snowflake.ID) error {
	return r.db.WithContext(ctx).
		Where("expense_id = ?", expenseID).
		Delete(&domain.Approval{}).Error
}
