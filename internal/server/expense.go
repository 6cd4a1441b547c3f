package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	expensedomain "github.com/smallbiznis/expensio/internal/expense/domain"
)

type createExpenseRequest struct {
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	ExpenseDate string  `json:"expense_date"`
}

func (s *Server) CreateExpense(c *gin.Context) {
	var req createExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	expenseDate, err := parseOptionalTime(req.ExpenseDate, false)
	if err != nil {
		AbortWithError(c, newValidationError("expense_date", "invalid_expense_date", "invalid expense_date"))
		return
	}
	if expenseDate == nil {
		now := time.Now().UTC()
		expenseDate = &now
	}

	resp, err := s.expenseSvc.Create(c.Request.Context(), expensedomain.CreateExpenseRequest{
		Amount:      req.Amount,
		Currency:    strings.ToUpper(strings.TrimSpace(req.Currency)),
		Category:    expensedomain.Category(strings.ToUpper(strings.TrimSpace(req.Category))),
		Description: strings.TrimSpace(req.Description),
		ExpenseDate: *expenseDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Record(c.Request.Context(), "expense.create", "expense", resp.ID.String(), map[string]any{
		"amount":           resp.Amount,
		"currency":         resp.Currency,
		"converted_amount": resp.ConvertedAmount,
		"category":         resp.Category,
		"status":           resp.Status,
	})

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListExpenses(c *gin.Context) {
	var query struct {
		Status   string `form:"status"`
		Category string `form:"category"`
		UserID   string `form:"user_id"`
		DateFrom string `form:"date_from"`
		DateTo   string `form:"date_to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	dateFrom, err := parseOptionalTime(query.DateFrom, false)
	if err != nil {
		AbortWithError(c, newValidationError("date_from", "invalid_date_from", "invalid date_from"))
		return
	}
	dateTo, err := parseOptionalTime(query.DateTo, true)
	if err != nil {
		AbortWithError(c, newValidationError("date_to", "invalid_date_to", "invalid date_to"))
		return
	}

	var userID snowflake.ID
	if trimmed := strings.TrimSpace(query.UserID); trimmed != "" {
		userID, err = snowflake.ParseString(trimmed)
		if err != nil {
			AbortWithError(c, newValidationError("user_id", "invalid_user_id", "invalid user_id"))
			return
		}
	}

	resp, err := s.expenseSvc.List(c.Request.Context(), expensedomain.ListExpenseRequest{
		Status:   expensedomain.Status(strings.ToUpper(strings.TrimSpace(query.Status))),
		Category: expensedomain.Category(strings.ToUpper(strings.TrimSpace(query.Category))),
		UserID:   userID,
		DateFrom: dateFrom,
		DateTo:   dateTo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetExpenseByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := s.expenseSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateExpenseRequest struct {
	Amount      *float64 `json:"amount"`
	Currency    *string  `json:"currency"`
	Category    *string  `json:"category"`
	Description *string  `json:"description"`
	ExpenseDate *string  `json:"expense_date"`
}

func (s *Server) UpdateExpense(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req updateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := expensedomain.UpdateExpenseRequest{
		Amount: req.Amount,
	}
	if req.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*req.Currency))
		update.Currency = &currency
	}
	if req.Category != nil {
		category := expensedomain.Category(strings.ToUpper(strings.TrimSpace(*req.Category)))
		update.Category = &category
	}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		update.Description = &description
	}
	if req.ExpenseDate != nil {
		expenseDate, err := parseOptionalTime(*req.ExpenseDate, false)
		if err != nil || expenseDate == nil {
			AbortWithError(c, newValidationError("expense_date", "invalid_expense_date", "invalid expense_date"))
			return
		}
		update.ExpenseDate = expenseDate
	}

	resp, err := s.expenseSvc.Update(c.Request.Context(), id, update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Record(c.Request.Context(), "expense.update", "expense", resp.ID.String(), map[string]any{
		"amount":           resp.Amount,
		"currency":         resp.Currency,
		"converted_amount": resp.ConvertedAmount,
		"status":           resp.Status,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteExpense(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := s.expenseSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Record(c.Request.Context(), "expense.delete", "expense", id.String(), nil)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ListExpenseApprovals(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	// Row-level access runs inside Get; the approval timeline is only
	// visible to actors who can see the expense itself.
	if _, err := s.expenseSvc.Get(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.approvals.ListByExpense(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func parseOptionalTime(raw string, endOfDay bool) (*time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}

	if ts, err := time.Parse(time.RFC3339, trimmed); err == nil {
		utc := ts.UTC()
		return &utc, nil
	}

	ts, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		ts = ts.Add(24*time.Hour - time.Nanosecond)
	}
	utc := ts.UTC()
	return &utc, nil
}
