package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	approvaldomain "github.com/smallbiznis/expensio/internal/approval/domain"
)

func (s *Server) ListApprovals(c *gin.Context) {
	var query struct {
		Status string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.approvals.List(c.Request.Context(), approvaldomain.Status(strings.ToUpper(strings.TrimSpace(query.Status))))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ApprovalStats(c *gin.Context) {
	resp, err := s.approvals.Stats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ApproveApproval(c *gin.Context) {
	s.decideApproval(c, s.approvals.Approve)
}

func (s *Server) RejectApproval(c *gin.Context) {
	s.decideApproval(c, s.approvals.Reject)
}

type decideFunc func(ctx context.Context, id snowflake.ID, req approvaldomain.DecisionRequest) (*approvaldomain.Approval, error)

// The service records the audit entry for decisions; the handler only
// translates the HTTP surface.
func (s *Server) decideApproval(c *gin.Context, decide decideFunc) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	// Comments are optional, so an empty body is a valid decision.
	var req approvaldomain.DecisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := decide(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
