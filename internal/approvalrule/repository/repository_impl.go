package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/expensio/internal/approvalrule/domain"
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

func (r *repository) Insert(ctx context.Context, rule *domain.ApprovalRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *repository) Update(ctx context.Context, rule *domain.ApprovalRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

func (r *repository) Delete(ctx context.Context, companyID, id snowflake.ID) error {
	return r.db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		Delete(&domain.ApprovalRule{}).Error
}

func (r *repository) FindByID(ctx context.Context, companyID, id snowflake.ID) (*domain.ApprovalRule, error) {
	var rule domain.ApprovalRule
	err := r.db.WithContext(ctx).
		Preload("SpecialApprover").
		Where("company_id = ? AND id = ?", companyID, id).
		First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *repository) List(ctx context.Context, companyID snowflake.ID) ([]domain.ApprovalRule, error) {
	var rules []domain.ApprovalRule
	err := r.db.WithContext(ctx).
		Preload("SpecialApprover").
		Where("company_id = ?", companyID).
		Order("threshold ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repository) ListActive(ctx context.Context, companyID snowflake.ID) ([]domain.ApprovalRule, error) {
	var rules []domain.ApprovalRule
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Order("threshold ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repository) ActiveThresholdExists(ctx context.Context, companyID snowflake.ID, threshold float64, excludeID snowflake.ID) (bool, error) {
	q := r.db.WithContext(ctx).
		Model(&domain.ApprovalRule{}).
		Where("company_id = ? AND threshold = ? AND is_active = ?", companyID, threshold, true)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
