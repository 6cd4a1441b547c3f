package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type DecisionRequest struct {
	Comments string `json:"comments"`
}

type Service interface {
	Approve(ctx context.Context, id snowflake.ID, req DecisionRequest) (*Approval, error)
	Reject(ctx context.Context, id snowflake.ID, req DecisionRequest) (*Approval, error)
	List(ctx context.Context, status Status) ([]Approval, error)
	ListByExpense(ctx context.Context, expenseID snowflake.ID) ([]Approval, error)
	Stats(ctx context.Context) (*Stats, error)
}

var (
	ErrNotFound         = errors.New("approval not found")
	ErrAlreadyProcessed = errors.New("approval already processed")
	ErrOutOfOrder       = errors.New("an earlier approval step is still pending")
	ErrNotAllowed       = errors.New("not allowed to decide this approval")
	ErrInvalidStatus    = errors.New("invalid approval status")
)
