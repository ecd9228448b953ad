package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stridefit/admin-gateway/config"
	"github.com/stridefit/admin-gateway/logger"
	"github.com/stridefit/admin-gateway/metrics"
	"github.com/stridefit/admin-gateway/session"
	"github.com/stridefit/admin-gateway/types"
)

// GuardOptions configures a RouteGuard instance.
type GuardOptions struct {
	// AllowAnonymous disables the authentication requirement for the wrapped
	// routes. Ignored when Roles is non-empty: a role requirement always
	// implies authentication.
	AllowAnonymous bool
	// Roles restricts the wrapped routes to the listed roles. Empty means
	// any authenticated role.
	Roles []types.Role
	// RedirectTarget overrides the login surface as the denial redirect.
	RedirectTarget string
}

// RouteGuard wraps protected route groups. It resolves the session through
// the manager, then enforces authentication and role requirements against
// both the per-group options and the shared policy table. Handlers are never
// invoked while any denial condition holds — not even transiently.
func RouteGuard(mgr *session.Manager, cfg *config.Config, table *types.PolicyTable, opts GuardOptions) gin.HandlerFunc {
	routes := cfg.Routes
	log := logger.GetLogger()

	return func(c *gin.Context) {
		sess := mgr.Resolve(c.Request.Context(), c.Writer, c.Request)
		c.Set(SessionKey, sess)

		if sess.IsLoading() {
			// Resolution never reached a terminal state (the caller
			// abandoned the request mid-verification). Withhold content.
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}

		path := c.Request.URL.Path
		policy := table.Lookup(path)

		if path == "/" {
			target := routes.LoginPath
			if sess.IsAuthenticated() {
				target = routes.DashboardPath
			}
			redirect(c, target, "root")
			return
		}

		if policy.PublicOnly && sess.IsAuthenticated() {
			// Consume the redirect target exactly once: it travels only in
			// the query string, so following the redirect is the consumption.
			target := SafeRedirectTarget(c.Query(routes.RedirectParam), routes.DashboardPath)
			redirect(c, target, "authenticated")
			return
		}

		authRequired := !opts.AllowAnonymous || len(opts.Roles) > 0 || policy.AuthRequired

		if authRequired && !sess.IsAuthenticated() {
			target := opts.RedirectTarget
			if target == "" {
				target = routes.LoginPath
			}
			if wantsJSON(c) {
				log.Debugw("Route guard denied anonymous API request", "path", path)
				metrics.GuardRedirects.WithLabelValues("route", "anonymous").Inc()
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "Authentication required",
				})
				return
			}
			// Preserve where the user was headed so login can return them.
			redirect(c, target+"?"+routes.RedirectParam+"="+url.QueryEscape(path), "anonymous")
			return
		}

		if sess.IsAuthenticated() {
			role := sess.User.Role
			if !policy.Allows(role) || !roleAllowed(opts.Roles, role) {
				log.Infow("Route guard role denial",
					"path", path,
					"user_id", sess.User.ID,
					"role", role)
				if wantsJSON(c) {
					metrics.GuardRedirects.WithLabelValues("route", "role").Inc()
					c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
						"error": "Insufficient role",
					})
					return
				}
				redirect(c, routes.UnauthorizedPath, "role")
				return
			}
			c.Set(UserIDKey, sess.User.ID)
		}

		c.Next()
	}
}

// SessionFromContext returns the session the route guard resolved for this
// request.
func SessionFromContext(c *gin.Context) (types.Session, bool) {
	v, ok := c.Get(SessionKey)
	if !ok {
		return types.Session{}, false
	}
	sess, ok := v.(types.Session)
	return sess, ok
}

func roleAllowed(required []types.Role, role types.Role) bool {
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		if r == role {
			return true
		}
	}
	return false
}

func redirect(c *gin.Context, location, reason string) {
	metrics.GuardRedirects.WithLabelValues("route", reason).Inc()
	c.Redirect(http.StatusFound, location)
	c.Abort()
}

// wantsJSON reports whether the request is API-flavored: such callers get
// status codes instead of HTML redirects.
func wantsJSON(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}
