package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/expensio/internal/user/domain"
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

func (r *repository) Insert(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repository) Update(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *repository) Delete(ctx context.Context, companyID, id snowflake.ID) error {
	return r.db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		Delete(&domain.User{}).Error
}

func (r *repository) FindByID(ctx context.Context, companyID, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Preload("Manager").
		Where("company_id = ? AND id = ?", companyID, id).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindAnyByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) List(ctx context.Context, companyID snowflake.ID, filter domain.ListUserFilter) ([]domain.User, error) {
	q := r.db.WithContext(ctx).
		Preload("Manager").
		Where("company_id = ?", companyID)

	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}

	var users []domain.User
	if err := q.Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repository) FirstActiveByRole(ctx context.Context, companyID snowflake.ID, role domain.Role) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND role = ? AND is_active = ?", companyID, role, true).
		Order("created_at ASC").
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) CountByManager(ctx context.Context, companyID, managerID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("company_id = ? AND manager_id = ?", companyID, managerID).
		Count(&count).Error
	return count, err
}

func (r *repository) ClearManager(ctx context.Context, companyID, managerID snowflake.ID) error {
	return r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("company_id = ? AND manager_id = ?", companyID, managerID).
		Update("manager_id", nil).Error
}
