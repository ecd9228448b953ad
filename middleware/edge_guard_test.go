package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/stridefit/admin-gateway/config"
	"github.com/stridefit/admin-gateway/logger"
	"github.com/stridefit/admin-gateway/types"
)

func init() {
	logger.IsTest = true
	gin.SetMode(gin.TestMode)
}

func testRoutesConfig() config.RoutesConfig {
	return config.RoutesConfig{
		ProtectedPrefixes: []string{"/admin"},
		PublicOnlyPaths:   []string{"/login"},
		LoginPath:         "/login",
		DashboardPath:     "/admin/dashboard",
		UnauthorizedPath:  "/unauthorized",
		RedirectParam:     "next",
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Environment: config.EnvDevelopment},
		Auth:   config.AuthConfig{CookieName: "stride_admin_session"},
		Routes: testRoutesConfig(),
	}
}

func testPolicyTable() *types.PolicyTable {
	routes := testRoutesConfig()
	return types.NewPolicyTable(routes.ProtectedPrefixes, routes.PublicOnlyPaths)
}

func TestEvaluateEdge(t *testing.T) {
	table := testPolicyTable()
	routes := testRoutesConfig()

	tests := []struct {
		name          string
		path          string
		hasCredential bool
		next          string
		wantRedirect  bool
		wantLocation  string
	}{
		{
			name:         "root without credential goes to login",
			path:         "/",
			wantRedirect: true,
			wantLocation: "/login",
		},
		{
			name:          "root with credential goes to dashboard",
			path:          "/",
			hasCredential: true,
			wantRedirect:  true,
			wantLocation:  "/admin/dashboard",
		},
		{
			name:         "protected path without credential records target",
			path:         "/admin/users",
			wantRedirect: true,
			wantLocation: "/login?next=%2Fadmin%2Fusers",
		},
		{
			name:          "protected path with credential passes",
			path:          "/admin/users",
			hasCredential: true,
		},
		{
			name:          "login with credential goes to dashboard",
			path:          "/login",
			hasCredential: true,
			wantRedirect:  true,
			wantLocation:  "/admin/dashboard",
		},
		{
			name:          "login with credential honors next",
			path:          "/login",
			hasCredential: true,
			next:          "/admin/rewards",
			wantRedirect:  true,
			wantLocation:  "/admin/rewards",
		},
		{
			name:          "absolute next is rejected",
			path:          "/login",
			hasCredential: true,
			next:          "https://evil.example/phish",
			wantRedirect:  true,
			wantLocation:  "/admin/dashboard",
		},
		{
			name:          "protocol-relative next is rejected",
			path:          "/login",
			hasCredential: true,
			next:          "//evil.example",
			wantRedirect:  true,
			wantLocation:  "/admin/dashboard",
		},
		{
			name: "login without credential passes",
			path: "/login",
		},
		{
			name: "open path passes",
			path: "/about",
		},
		{
			name:          "open path passes with credential",
			path:          "/about",
			hasCredential: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := EvaluateEdge(table, routes, tt.path, tt.hasCredential, tt.next)
			assert.Equal(t, tt.wantRedirect, d.Redirect)
			if tt.wantRedirect {
				assert.Equal(t, tt.wantLocation, d.Location)
			}
		})
	}
}

func TestEdgeGuard_Middleware(t *testing.T) {
	cfg := testConfig()
	r := gin.New()
	r.Use(EdgeGuard(cfg, testPolicyTable()))
	handlerRan := false
	r.GET("/admin/users", func(c *gin.Context) {
		handlerRan = true
		c.String(http.StatusOK, "user table")
	})

	// No cookie: redirected before the handler runs.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/users", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next=%2Fadmin%2Fusers", w.Header().Get("Location"))
	assert.False(t, handlerRan, "handler must not run behind an edge redirect")

	// Cookie present: passes through on presence alone.
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.AddCookie(&http.Cookie{Name: "stride_admin_session", Value: "anything"})
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, handlerRan)
}

func TestEdgeGuard_RootNeverPassesThrough(t *testing.T) {
	cfg := testConfig()
	r := gin.New()
	r.Use(EdgeGuard(cfg, testPolicyTable()))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "root")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "stride_admin_session", Value: "anything"})
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/dashboard", w.Header().Get("Location"))
}

func TestSafeRedirectTarget(t *testing.T) {
	assert.Equal(t, "/admin/users", SafeRedirectTarget("/admin/users", "/admin/dashboard"))
	assert.Equal(t, "/admin/dashboard", SafeRedirectTarget("", "/admin/dashboard"))
	assert.Equal(t, "/admin/dashboard", SafeRedirectTarget("https://evil.example", "/admin/dashboard"))
	assert.Equal(t, "/admin/dashboard", SafeRedirectTarget("//evil.example", "/admin/dashboard"))
	assert.Equal(t, "/admin/dashboard", SafeRedirectTarget("/\\evil.example", "/admin/dashboard"))
}
