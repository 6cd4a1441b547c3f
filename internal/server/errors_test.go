package server

import (
	"net/http"
	"testing"

	approvaldomain "github.com/smallbiznis/expensio/internal/approval/domain"
	ruledomain "github.com/smallbiznis/expensio/internal/approvalrule/domain"
	authdomain "github.com/smallbiznis/expensio/internal/auth/domain"
	"github.com/smallbiznis/expensio/internal/currency"
	expensedomain "github.com/smallbiznis/expensio/internal/expense/domain"
	userdomain "github.com/smallbiznis/expensio/internal/user/domain"
	"github.com/smallbiznis/expensio/internal/workflow"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation", expensedomain.ErrInvalidAmount, http.StatusBadRequest, "validation_error"},
		{"weak password", authdomain.ErrWeakPassword, http.StatusBadRequest, "validation_error"},
		{"bad session", authdomain.ErrSessionExpired, http.StatusUnauthorized, "unauthorized"},
		{"row policy", expensedomain.ErrAccessDenied, http.StatusForbidden, "forbidden"},
		{"wrong approver", approvaldomain.ErrNotAllowed, http.StatusForbidden, "forbidden"},
		{"missing expense", expensedomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"double decision", approvaldomain.ErrAlreadyProcessed, http.StatusConflict, "conflict"},
		{"step order", approvaldomain.ErrOutOfOrder, http.StatusConflict, "conflict"},
		{"email taken", userdomain.ErrEmailTaken, http.StatusConflict, "conflict"},
		{"rule in use", ruledomain.ErrRuleInUse, http.StatusConflict, "conflict"},
		{"user in use", userdomain.ErrUserInUse, http.StatusConflict, "conflict"},
		{"no approver available", workflow.ErrApproverUnavailable, http.StatusConflict, "conflict"},
		{"rate outage", currency.ErrRateUnavailable, http.StatusBadGateway, "upstream_error"},
		{"mail outage", userdomain.ErrMailDelivery, http.StatusBadGateway, "upstream_error"},
		{"unknown", errFake, http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			if status != tc.wantStatus {
				t.Fatalf("status = %d, want %d", status, tc.wantStatus)
			}
			if payload.Type != tc.wantType {
				t.Fatalf("type = %s, want %s", payload.Type, tc.wantType)
			}
		})
	}
}

var errFake = &fakeError{}

type fakeError struct{}

func (*fakeError) Error() string { return "boom" }

func TestMapErrorFieldErrors(t *testing.T) {
	status, payload := mapError(newValidationError("amount", "invalid_amount", "invalid amount"))
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if len(payload.Errors) != 1 || payload.Errors[0].Field != "amount" {
		t.Fatalf("payload = %+v, want field error on amount", payload.Errors)
	}
}
