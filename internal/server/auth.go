package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/expensio/internal/auth/domain"
	signupdomain "github.com/smallbiznis/expensio/internal/signup/domain"
	userdomain "github.com/smallbiznis/expensio/internal/user/domain"
	"github.com/smallbiznis/expensio/pkg/tenantctx"
)

type signupRequest struct {
	CompanyName string `json:"company_name"`
	Country     string `json:"country"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

func (s *Server) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	res, err := s.signupsvc.Signup(c.Request.Context(), signupdomain.Request{
		CompanyName: strings.TrimSpace(req.CompanyName),
		Country:     strings.TrimSpace(req.Country),
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Email:       strings.TrimSpace(req.Email),
		Password:    req.Password,
		UserAgent:   c.Request.UserAgent(),
		IPAddress:   c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.setSessionCookie(c, res.RawToken, res.ExpiresAt)
	s.recordAs(c, res.User, "company.signup", "company", res.Company.ID.String(), map[string]any{
		"company_name": res.Company.Name,
		"country":      res.Company.Country,
		"currency":     res.Company.Currency,
	})

	c.JSON(http.StatusCreated, gin.H{
		"company": res.Company,
		"user":    res.User,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	res, err := s.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Email:     strings.TrimSpace(req.Email),
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.setSessionCookie(c, res.RawToken, res.ExpiresAt)
	s.recordAs(c, res.User, "auth.login", "user", res.User.ID.String(), nil)

	c.JSON(http.StatusOK, gin.H{"user": res.User})
}

func (s *Server) Logout(c *gin.Context) {
	token, err := c.Cookie(sessionCookieName)
	if err == nil && strings.TrimSpace(token) != "" {
		if err := s.authsvc.Logout(c.Request.Context(), token); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	s.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Me(c *gin.Context) {
	principal, ok := tenantctx.PrincipalFrom(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	actor, err := s.userSvc.Get(c.Request.Context(), principal.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": actor})
}

func (s *Server) ChangePassword(c *gin.Context) {
	var req authdomain.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.authsvc.ChangePassword(c.Request.Context(), req); err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Record(c.Request.Context(), "auth.change_password", "user", "", nil)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (s *Server) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.authsvc.ForgotPassword(c.Request.Context(), strings.TrimSpace(req.Email)); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, token, maxAge, "/", "", s.cfg.AuthCookieSecure, true)
}

func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, "", -1, "/", "", s.cfg.AuthCookieSecure, true)
}

// recordAs writes an audit entry for requests that authenticate inside the
// handler, where no principal is in the request context yet.
func (s *Server) recordAs(c *gin.Context, actor *userdomain.User, action, targetType, targetID string, detail map[string]any) {
	ctx := tenantctx.WithPrincipal(c.Request.Context(), tenantctx.Principal{
		UserID:    actor.ID,
		CompanyID: actor.CompanyID,
		Role:      string(actor.Role),
		ManagerID: actor.ManagerID,
	})
	s.auditSvc.Record(ctx, action, targetType, targetID, detail)
}
