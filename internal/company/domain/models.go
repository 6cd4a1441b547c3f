package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Company is the tenant boundary. Every user, expense, rule and approval
// belongs to exactly one company.
type Company struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null" json:"name"`
	Slug      string       `gorm:"not null;uniqueIndex" json:"slug"`
	Country   string       `gorm:"type:char(2);not null" json:"country"`
	Currency  string       `gorm:"type:char(3);not null" json:"currency"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Company) TableName() string {
	return "companies"
}
