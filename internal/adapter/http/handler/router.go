package handler

import (
	"campus-coin-ledger/internal/adapter/http/middleware"
	"campus-coin-ledger/internal/core/domain"
	"campus-coin-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	LedgerSvc      ports.LedgerService
	HistorySvc     ports.HistoryService
	TokenSvc       ports.TokenService
	RateLimitStore middleware.Limiter // nil = rate limiting disabled
	RateLimitRules map[string]middleware.RateLimitRule
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(middleware.MaxRequestBody))

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Deep health check: pings the ledger store and Redis
	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := deps.RateLimitRules
	if rules == nil {
		rules = middleware.DefaultRateLimitRules()
	}

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	ledgerHandler := NewLedgerHandler(deps.LedgerSvc)
	historyHandler := NewHistoryHandler(deps.HistorySvc)

	v1 := r.Group("/api/v1", middleware.JWTAuth(deps.TokenSvc, deps.Logger))

	v1.POST("/transfers",
		middleware.RequireRole(domain.RoleInstructor), rl(middleware.GroupTransfers), ledgerHandler.Transfer)
	v1.POST("/redemptions",
		middleware.RequireRole(domain.RoleStudent), rl(middleware.GroupRedemptions), ledgerHandler.Redeem)
	v1.POST("/coupons/validate",
		middleware.RequireRole(domain.RolePartner), rl(middleware.GroupCouponsValidate), ledgerHandler.ValidateCoupon)

	admin := v1.Group("/admin", middleware.RequireRole(domain.RoleAdmin))
	{
		admin.POST("/top-up", ledgerHandler.TopUp)
	}

	accounts := v1.Group("/accounts/:id")
	{
		accounts.GET("/entries", historyHandler.ListEntries)
		accounts.GET("/balance", historyHandler.GetBalance)
	}

	v1.GET("/entries/:id", historyHandler.GetEntry)
	v1.GET("/rewards", historyHandler.ListRewards)

	return r
}
