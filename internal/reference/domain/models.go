// Package domain contains reference data models shared across the application.
package domain

import "time"

// Country is a seeded lookup row. CurrencyCode is the reporting currency a
// new company in that country defaults to.
type Country struct {
	Code         string    `json:"code" gorm:"type:char(2);primaryKey;column:code"`
	Name         string    `json:"name" gorm:"type:text;not null"`
	CurrencyCode string    `json:"currency_code" gorm:"type:char(3);not null;column:currency_code"`
	CreatedAt    time.Time `json:"created_at,omitempty" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Country) TableName() string { return "countries" }

type Currency struct {
	Code      string    `json:"code" gorm:"type:char(3);primaryKey;column:code"`
	Name      string    `json:"name" gorm:"type:text;not null"`
	Symbol    *string   `json:"symbol,omitempty" gorm:"type:text"`
	IsActive  bool      `json:"is_active,omitempty" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at,omitempty" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Currency) TableName() string { return "currencies" }
