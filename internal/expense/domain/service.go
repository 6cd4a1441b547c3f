package domain

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
)

type CreateExpenseRequest struct {
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Category    Category  `json:"category"`
	Description string    `json:"description"`
	ExpenseDate time.Time `json:"expense_date"`
}

type UpdateExpenseRequest struct {
	Amount      *float64   `json:"amount,omitempty"`
	Currency    *string    `json:"currency,omitempty"`
	Category    *Category  `json:"category,omitempty"`
	Description *string    `json:"description,omitempty"`
	ExpenseDate *time.Time `json:"expense_date,omitempty"`
}

type ListExpenseRequest struct {
	Status   Status
	Category Category
	UserID   snowflake.ID
	DateFrom *time.Time
	DateTo   *time.Time
}

// DashboardReport is the admin overview of company spend.
type DashboardReport struct {
	StatusCounts       []StatusCount   `json:"status_counts"`
	ApprovedTotal      float64         `json:"approved_total"`
	ApprovedTotalMonth float64         `json:"approved_total_month"`
	CategoryTotals     []CategoryTotal `json:"category_totals"`
	Currency           string          `json:"currency"`
}

type Service interface {
	Create(ctx context.Context, req CreateExpenseRequest) (*Expense, error)
	List(ctx context.Context, req ListExpenseRequest) ([]Expense, error)
	Get(ctx context.Context, id snowflake.ID) (*Expense, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateExpenseRequest) (*Expense, error)
	Delete(ctx context.Context, id snowflake.ID) error
	Dashboard(ctx context.Context) (*DashboardReport, error)
	ExportCSV(ctx context.Context, w io.Writer) error
}

var (
	ErrNotFound           = errors.New("expense not found")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidCurrency    = errors.New("invalid currency")
	ErrInvalidDescription = errors.New("description is required")
	ErrAccessDenied       = errors.New("expense access denied")
	ErrNotEditable        = errors.New("only pending expenses can be modified")
)
