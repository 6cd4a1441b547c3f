package reference

import (
	"context"
	"errors"
	"strings"

	"github.com/smallbiznis/expensio/internal/reference/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) ListCountries(ctx context.Context) ([]domain.Country, error) {
	var countries []domain.Country
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&countries).Error; err != nil {
		return nil, err
	}
	return countries, nil
}

func (r *repository) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	var currencies []domain.Currency
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("code ASC").Find(&currencies).Error; err != nil {
		return nil, err
	}
	return currencies, nil
}

func (r *repository) GetCountry(ctx context.Context, code string) (*domain.Country, error) {
	var country domain.Country
	err := r.db.WithContext(ctx).First(&country, "code = ?", strings.ToUpper(strings.TrimSpace(code))).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &country, nil
}

func (r *repository) CurrencyExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Currency{}).
		Where("code = ? AND is_active = ?", strings.ToUpper(strings.TrimSpace(code)), true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
