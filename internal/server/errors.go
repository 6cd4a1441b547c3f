package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	approvaldomain "github.com/smallbiznis/expensio/internal/approval/domain"
	ruledomain "github.com/smallbiznis/expensio/internal/approvalrule/domain"
	authdomain "github.com/smallbiznis/expensio/internal/auth/domain"
	"github.com/smallbiznis/expensio/internal/authorization"
	"github.com/smallbiznis/expensio/internal/currency"
	expensedomain "github.com/smallbiznis/expensio/internal/expense/domain"
	signupdomain "github.com/smallbiznis/expensio/internal/signup/domain"
	userdomain "github.com/smallbiznis/expensio/internal/user/domain"
	"github.com/smallbiznis/expensio/internal/workflow"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(err),
					Code:    "invalid_value",
					Message: err.Error(),
				},
			},
		}
	}

	switch {
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, currency.ErrRateUnavailable):
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_error",
			Message: "exchange rate unavailable",
		}
	case errors.Is(err, userdomain.ErrMailDelivery):
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_error",
			Message: "credential email delivery failed",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, signupdomain.ErrInvalidRequest),
		errors.Is(err, signupdomain.ErrInvalidCountry),
		errors.Is(err, signupdomain.ErrWeakPassword),
		errors.Is(err, authdomain.ErrWeakPassword),
		errors.Is(err, userdomain.ErrInvalidEmail),
		errors.Is(err, userdomain.ErrInvalidName),
		errors.Is(err, userdomain.ErrInvalidRole),
		errors.Is(err, userdomain.ErrInvalidManager),
		errors.Is(err, expensedomain.ErrInvalidAmount),
		errors.Is(err, expensedomain.ErrInvalidCategory),
		errors.Is(err, expensedomain.ErrInvalidCurrency),
		errors.Is(err, expensedomain.ErrInvalidDescription),
		errors.Is(err, currency.ErrInvalidCurrency),
		errors.Is(err, ruledomain.ErrInvalidRuleType),
		errors.Is(err, ruledomain.ErrInvalidThreshold),
		errors.Is(err, ruledomain.ErrInvalidMaxAmount),
		errors.Is(err, ruledomain.ErrInvalidApprover),
		errors.Is(err, approvaldomain.ErrInvalidStatus):
		return true
	default:
		return false
	}
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked):
		return true
	default:
		return false
	}
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, authdomain.ErrInactiveUser),
		errors.Is(err, approvaldomain.ErrNotAllowed),
		errors.Is(err, expensedomain.ErrAccessDenied):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, userdomain.ErrNotFound),
		errors.Is(err, expensedomain.ErrNotFound),
		errors.Is(err, ruledomain.ErrNotFound),
		errors.Is(err, approvaldomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, userdomain.ErrEmailTaken),
		errors.Is(err, signupdomain.ErrEmailTaken),
		errors.Is(err, userdomain.ErrSelfDemotion),
		errors.Is(err, userdomain.ErrSelfDeactivation),
		errors.Is(err, userdomain.ErrSelfDeletion),
		errors.Is(err, userdomain.ErrUserInUse),
		errors.Is(err, ruledomain.ErrDuplicateThreshold),
		errors.Is(err, ruledomain.ErrRuleInUse),
		errors.Is(err, approvaldomain.ErrAlreadyProcessed),
		errors.Is(err, approvaldomain.ErrOutOfOrder),
		errors.Is(err, expensedomain.ErrNotEditable),
		errors.Is(err, workflow.ErrApproverUnavailable):
		return true
	default:
		return false
	}
}

func validationErrorField(err error) string {
	code := err.Error()
	if strings.HasPrefix(code, "invalid ") {
		return strings.ReplaceAll(strings.TrimPrefix(code, "invalid "), " ", "_")
	}
	return "request"
}

// classifyErrorForLog feeds the request logger's error_type/error_code fields.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= 500:
		return "server_error", payload.Type
	case status >= 400:
		return "client_error", payload.Type
	default:
		return "", ""
	}
}
