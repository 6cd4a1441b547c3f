package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/expensio/internal/approval"
	approvaldomain "github.com/smallbiznis/expensio/internal/approval/domain"
	"github.com/smallbiznis/expensio/internal/approvalrule"
	ruledomain "github.com/smallbiznis/expensio/internal/approvalrule/domain"
	"github.com/smallbiznis/expensio/internal/audit"
	auditdomain "github.com/smallbiznis/expensio/internal/audit/domain"
	"github.com/smallbiznis/expensio/internal/auth"
	authdomain "github.com/smallbiznis/expensio/internal/auth/domain"
	"github.com/smallbiznis/expensio/internal/authorization"
	"github.com/smallbiznis/expensio/internal/company"
	"github.com/smallbiznis/expensio/internal/config"
	"github.com/smallbiznis/expensio/internal/currency"
	"github.com/smallbiznis/expensio/internal/expense"
	expensedomain "github.com/smallbiznis/expensio/internal/expense/domain"
	"github.com/smallbiznis/expensio/internal/observability"
	obsmiddleware "github.com/smallbiznis/expensio/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/expensio/internal/observability/metrics"
	obstracing "github.com/smallbiznis/expensio/internal/observability/tracing"
	"github.com/smallbiznis/expensio/internal/providers"
	"github.com/smallbiznis/expensio/internal/reference"
	referencedomain "github.com/smallbiznis/expensio/internal/reference/domain"
	"github.com/smallbiznis/expensio/internal/signup"
	signupdomain "github.com/smallbiznis/expensio/internal/signup/domain"
	"github.com/smallbiznis/expensio/internal/user"
	userdomain "github.com/smallbiznis/expensio/internal/user/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	providers.Module,
	auth.Module,
	signup.Module,
	company.Module,
	user.Module,
	currency.Module,
	approvalrule.Module,
	approval.Module,
	expense.Module,
	reference.Module,
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	db         *gorm.DB
	genID      *snowflake.Node
	authsvc    authdomain.Service
	signupsvc  signupdomain.Service
	authzSvc   authorization.Service
	auditSvc   auditdomain.Service
	userSvc    userdomain.Service
	expenseSvc expensedomain.Service
	approvals  approvaldomain.Service
	ruleSvc    ruledomain.Service
	refrepo    referencedomain.Repository
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	DB         *gorm.DB
	GenID      *snowflake.Node
	Authsvc    authdomain.Service
	Signupsvc  signupdomain.Service
	AuthzSvc   authorization.Service
	AuditSvc   auditdomain.Service
	UserSvc    userdomain.Service
	ExpenseSvc expensedomain.Service
	Approvals  approvaldomain.Service
	RuleSvc    ruledomain.Service
	Refrepo    referencedomain.Repository
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		db:         p.DB,
		genID:      p.GenID,
		authsvc:    p.Authsvc,
		signupsvc:  p.Signupsvc,
		authzSvc:   p.AuthzSvc,
		auditSvc:   p.AuditSvc,
		userSvc:    p.UserSvc,
		expenseSvc: p.ExpenseSvc,
		approvals:  p.Approvals,
		ruleSvc:    p.RuleSvc,
		refrepo:    p.Refrepo,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/signup", s.Signup)
	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.POST("/forgot-password", s.ForgotPassword)
	auth.GET("/me", s.AuthRequired(), s.Me)
	auth.POST("/change-password", s.AuthRequired(), s.ChangePassword)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// Reference data is public: the signup form needs countries before
	// any session exists.
	api.GET("/countries", s.ListCountries)
	api.GET("/currencies", s.ListCurrencies)

	api.Use(s.AuthRequired())

	// -------- Expenses --------
	api.POST("/expenses", s.RequireAuthorize(authorization.ObjectExpense, authorization.ActionCreate), s.CreateExpense)
	api.GET("/expenses", s.RequireAuthorize(authorization.ObjectExpense, authorization.ActionView), s.ListExpenses)
	api.GET("/expenses/:id", s.RequireAuthorize(authorization.ObjectExpense, authorization.ActionView), s.GetExpenseByID)
	api.PATCH("/expenses/:id", s.RequireAuthorize(authorization.ObjectExpense, authorization.ActionUpdate), s.UpdateExpense)
	api.DELETE("/expenses/:id", s.RequireAuthorize(authorization.ObjectExpense, authorization.ActionDelete), s.DeleteExpense)
	api.GET("/expenses/:id/approvals", s.RequireAuthorize(authorization.ObjectExpense, authorization.ActionView), s.ListExpenseApprovals)

	// -------- Approvals --------
	api.GET("/approvals", s.RequireAuthorize(authorization.ObjectApproval, authorization.ActionView), s.ListApprovals)
	api.GET("/approvals/stats", s.RequireAuthorize(authorization.ObjectApproval, authorization.ActionView), s.ApprovalStats)
	api.POST("/approvals/:id/approve", s.RequireAuthorize(authorization.ObjectApproval, authorization.ActionDecide), s.ApproveApproval)
	api.POST("/approvals/:id/reject", s.RequireAuthorize(authorization.ObjectApproval, authorization.ActionDecide), s.RejectApproval)

	// -------- Users --------
	api.GET("/users", s.RequireAuthorize(authorization.ObjectUser, authorization.ActionManage), s.ListUsers)
	api.POST("/users", s.RequireAuthorize(authorization.ObjectUser, authorization.ActionManage), s.CreateUser)
	api.GET("/users/:id", s.RequireAuthorize(authorization.ObjectUser, authorization.ActionManage), s.GetUserByID)
	api.PATCH("/users/:id", s.RequireAuthorize(authorization.ObjectUser, authorization.ActionManage), s.UpdateUser)
	api.DELETE("/users/:id", s.RequireAuthorize(authorization.ObjectUser, authorization.ActionManage), s.DeleteUser)
	api.POST("/users/:id/send-password", s.RequireAuthorize(authorization.ObjectUser, authorization.ActionManage), s.SendUserPassword)

	admin := api.Group("/admin")

	// -------- Approval rules --------
	admin.GET("/approval-rules", s.RequireAuthorize(authorization.ObjectApprovalRule, authorization.ActionManage), s.ListApprovalRules)
	admin.POST("/approval-rules", s.RequireAuthorize(authorization.ObjectApprovalRule, authorization.ActionManage), s.CreateApprovalRule)
	admin.GET("/approval-rules/:id", s.RequireAuthorize(authorization.ObjectApprovalRule, authorization.ActionManage), s.GetApprovalRuleByID)
	admin.PATCH("/approval-rules/:id", s.RequireAuthorize(authorization.ObjectApprovalRule, authorization.ActionManage), s.UpdateApprovalRule)
	admin.DELETE("/approval-rules/:id", s.RequireAuthorize(authorization.ObjectApprovalRule, authorization.ActionManage), s.DeleteApprovalRule)

	// -------- Admin reporting --------
	admin.GET("/dashboard", s.RequireAuthorize(authorization.ObjectDashboard, authorization.ActionView), s.GetDashboard)
	admin.GET("/export/expenses", s.RequireAuthorize(authorization.ObjectExport, authorization.ActionRun), s.ExportExpenses)
	admin.GET("/audit-logs", s.RequireAuthorize(authorization.ObjectAuditLog, authorization.ActionView), s.ListAuditLogs)
}
