// Package router assembles the gin engine: global middleware including the
// edge guard, the session endpoints, the guarded dashboard surfaces, and the
// authenticated API proxy.
package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/stridefit/admin-gateway/config"
	"github.com/stridefit/admin-gateway/handlers"
	"github.com/stridefit/admin-gateway/middleware"
	"github.com/stridefit/admin-gateway/session"
	"github.com/stridefit/admin-gateway/types"
)

// Dependencies holds everything SetupRouter needs to wire the routes.
type Dependencies struct {
	Config         *config.Config
	Manager        *session.Manager
	PolicyTable    *types.PolicyTable
	RedisClient    redis.UniversalClient
	SessionHandler *handlers.SessionHandler
	ProxyHandler   *handlers.ProxyHandler
	HealthHandler  *handlers.HealthHandler
	PageHandler    *handlers.PageHandler
	Logger         *zap.SugaredLogger
}

// SetupRouter configures and returns the main gin engine with all routes
// defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()

	// Global middleware. The edge guard runs last in the chain so its
	// redirects already carry request IDs and security headers; it covers
	// every request, including ones for unregistered paths ("/" has no
	// handler — the edge guard always redirects it before routing matters).
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.SecurityHeadersMiddleware(deps.Config))
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))
	r.Use(middleware.EdgeGuard(deps.Config, deps.PolicyTable))

	// Health and metrics (no auth; the policy table leaves these public).
	r.GET("/health/liveness", deps.HealthHandler.LivenessCheck)
	r.GET("/health/readiness", deps.HealthHandler.ReadinessCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Session lifecycle endpoints for the dashboard shell.
	sessionRoutes := r.Group("/session")
	{
		sessionRoutes.POST("/login",
			middleware.LoginRateLimiter(deps.RedisClient, 10, time.Minute),
			deps.SessionHandler.Login)
		sessionRoutes.POST("/logout", deps.SessionHandler.Logout)
		sessionRoutes.GET("", deps.SessionHandler.Current)
		sessionRoutes.POST("/refresh", deps.SessionHandler.Refresh)
	}

	// Public-only login surface: the route guard bounces authenticated
	// visitors back to their recorded target.
	loginRoutes := r.Group(deps.Config.Routes.LoginPath)
	loginRoutes.Use(middleware.RouteGuard(deps.Manager, deps.Config, deps.PolicyTable,
		middleware.GuardOptions{AllowAnonymous: true}))
	loginRoutes.GET("", deps.PageHandler.Login)

	unauthorizedRoutes := r.Group(deps.Config.Routes.UnauthorizedPath)
	unauthorizedRoutes.Use(middleware.RouteGuard(deps.Manager, deps.Config, deps.PolicyTable,
		middleware.GuardOptions{AllowAnonymous: true}))
	unauthorizedRoutes.GET("", deps.PageHandler.Unauthorized)

	// Admin surfaces. Role restrictions beyond "any authenticated admin
	// user" live in the policy table (e.g. /admin/settings), so both guard
	// layers and this group read the same rules.
	adminRoutes := r.Group("/admin")
	adminRoutes.Use(middleware.RouteGuard(deps.Manager, deps.Config, deps.PolicyTable,
		middleware.GuardOptions{}))
	{
		adminRoutes.GET("/dashboard", deps.PageHandler.Dashboard)
		adminRoutes.GET("/settings", deps.PageHandler.Settings)
	}

	// Everything else under /api is proxied to the backend with the session
	// credential swapped in. API callers get status codes, never redirects.
	apiRoutes := r.Group("/api")
	apiRoutes.Use(middleware.RouteGuard(deps.Manager, deps.Config, deps.PolicyTable,
		middleware.GuardOptions{}))
	apiRoutes.Any("/*path", deps.ProxyHandler.Proxy)

	return r
}
