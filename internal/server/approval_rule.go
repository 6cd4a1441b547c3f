package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	ruledomain "github.com/smallbiznis/expensio/internal/approvalrule/domain"
)

func (s *Server) CreateApprovalRule(c *gin.Context) {
	var req ruledomain.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ruleSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Record(c.Request.Context(), "approval_rule.create", "approval_rule", resp.ID.String(), map[string]any{
		"rule_type": resp.RuleType,
		"threshold": resp.Threshold,
	})

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListApprovalRules(c *gin.Context) {
	resp, err := s.ruleSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetApprovalRuleByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := s.ruleSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateApprovalRule(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ruledomain.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ruleSvc.Update(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Record(c.Request.Context(), "approval_rule.update", "approval_rule", resp.ID.String(), map[string]any{
		"rule_type": resp.RuleType,
		"threshold": resp.Threshold,
		"is_active": resp.IsActive,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteApprovalRule(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := s.ruleSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Record(c.Request.Context(), "approval_rule.delete", "approval_rule", id.String(), nil)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
