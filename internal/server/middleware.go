package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/expensio/pkg/tenantctx"
)

const sessionCookieName = "expensio_session"

// AuthRequired resolves the session cookie to an active user and injects the
// acting principal into the request context. Services downstream read the
// principal, never the cookie.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(sessionCookieName)
		if err != nil || strings.TrimSpace(token) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actor, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		principal := tenantctx.Principal{
			UserID:    actor.ID,
			CompanyID: actor.CompanyID,
			Role:      string(actor.Role),
			ManagerID: actor.ManagerID,
		}
		c.Request = c.Request.WithContext(tenantctx.WithPrincipal(c.Request.Context(), principal))
		c.Next()
	}
}

// RequireAuthorize gates a route on the role policy. Must run after
// AuthRequired.
func (s *Server) RequireAuthorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := tenantctx.PrincipalFrom(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		if err := s.authzSvc.Authorize(c.Request.Context(), principal.Role, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func parseIDParam(c *gin.Context, name string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param(name)))
	if err != nil {
		AbortWithError(c, newValidationError(name, "invalid_id", "invalid identifier"))
		return 0, false
	}
	return id, true
}
