package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/smallbiznis/expensio/internal/user/domain"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

type Category string

const (
	CategoryTravel         Category = "TRAVEL"
	CategoryFood           Category = "FOOD"
	CategoryAccommodation  Category = "ACCOMMODATION"
	CategoryTransportation Category = "TRANSPORTATION"
	CategoryOfficeSupplies Category = "OFFICE_SUPPLIES"
	CategorySoftware       Category = "SOFTWARE"
	CategoryMarketing      Category = "MARKETING"
	CategoryOther          Category = "OTHER"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryTravel, CategoryFood, CategoryAccommodation, CategoryTransportation,
		CategoryOfficeSupplies, CategorySoftware, CategoryMarketing, CategoryOther:
		return true
	}
	return false
}

// Expense stores both the submitted amount and its conversion into the
// company currency at submission time. Routing thresholds always compare
// against ConvertedAmount.
type Expense struct {
	ID              snowflake.ID     `gorm:"primaryKey" json:"id"`
	CompanyID       snowflake.ID     `gorm:"not null;index" json:"company_id"`
	UserID          snowflake.ID     `gorm:"not null;index" json:"user_id"`
	User            *userdomain.User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Amount          float64          `gorm:"not null" json:"amount"`
	Currency        string           `gorm:"type:char(3);not null" json:"currency"`
	ConvertedAmount float64          `gorm:"not null" json:"converted_amount"`
	CompanyCurrency string           `gorm:"type:char(3);not null" json:"company_currency"`
	Category        Category         `gorm:"not null;index" json:"category"`
	Description     string           `gorm:"not null" json:"description"`
	Status          Status           `gorm:"not null;index;default:PENDING" json:"status"`
	ExpenseDate     time.Time        `gorm:"not null" json:"expense_date"`
	CreatedAt       time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Expense) TableName() string {
	return "expenses"
}
