package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, company *Company) error
	FindByID(ctx context.Context, id snowflake.ID) (*Company, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
}

var (
	ErrNotFound    = errors.New("company not found")
	ErrInvalidName = errors.New("invalid company name")
)
