package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stridefit/admin-gateway/config"
	"github.com/stridefit/admin-gateway/logger"
	"github.com/stridefit/admin-gateway/metrics"
	"github.com/stridefit/admin-gateway/types"
)

// EdgeDecision is the outcome of the edge-level check for one request.
type EdgeDecision struct {
	Redirect bool
	Location string
}

// EvaluateEdge applies the edge rules to (path, credential presence). It is a
// pure function: no network calls, no token validation — validity is
// established later by the session manager. Rules, in order:
//
//  1. root path: dashboard root if a credential cookie is present, else login;
//  2. protected path without a credential: login, recording the requested
//     path as the redirect target;
//  3. public-only path with a credential: the supplied redirect target if
//     safe, else dashboard root;
//  4. otherwise pass through.
func EvaluateEdge(table *types.PolicyTable, routes config.RoutesConfig, path string, hasCredential bool, next string) EdgeDecision {
	if path == "/" {
		if hasCredential {
			return EdgeDecision{Redirect: true, Location: routes.DashboardPath}
		}
		return EdgeDecision{Redirect: true, Location: routes.LoginPath}
	}

	policy := table.Lookup(path)

	if policy.AuthRequired && !hasCredential {
		return EdgeDecision{
			Redirect: true,
			Location: routes.LoginPath + "?" + routes.RedirectParam + "=" + url.QueryEscape(path),
		}
	}

	if policy.PublicOnly && hasCredential {
		return EdgeDecision{Redirect: true, Location: SafeRedirectTarget(next, routes.DashboardPath)}
	}

	return EdgeDecision{}
}

// EdgeGuard runs before any handler on every incoming request, deciding
// redirect vs pass-through from cookie presence and path alone.
func EdgeGuard(cfg *config.Config, table *types.PolicyTable) gin.HandlerFunc {
	routes := cfg.Routes
	cookieName := cfg.Auth.CookieName

	return func(c *gin.Context) {
		cookie, err := c.Request.Cookie(cookieName)
		hasCredential := err == nil && cookie.Value != ""

		decision := EvaluateEdge(table, routes, c.Request.URL.Path, hasCredential, c.Query(routes.RedirectParam))
		if !decision.Redirect {
			c.Next()
			return
		}

		logger.GetLogger().Debugw("Edge guard redirect",
			"path", c.Request.URL.Path,
			"credential_present", hasCredential,
			"location", decision.Location)
		metrics.GuardRedirects.WithLabelValues("edge", redirectReason(c.Request.URL.Path, hasCredential)).Inc()

		c.Redirect(http.StatusFound, decision.Location)
		c.Abort()
	}
}

func redirectReason(path string, hasCredential bool) string {
	switch {
	case path == "/":
		return "root"
	case hasCredential:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// SafeRedirectTarget accepts only same-site relative paths as post-login
// targets, so a crafted next parameter cannot bounce an admin to another
// origin.
func SafeRedirectTarget(next, fallback string) string {
	if next == "" {
		return fallback
	}
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return fallback
	}
	if strings.Contains(next, "\\") {
		return fallback
	}
	return next
}
