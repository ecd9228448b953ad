package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stridefit/admin-gateway/middleware"
)

const htmlContentType = "text/html; charset=utf-8"

// PageHandler serves the dashboard's minimal HTML shells. The real UI is
// client-rendered against GET /session and the /api proxy; these pages only
// exist so every guarded surface resolves to a route.
type PageHandler struct{}

func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

// Login serves the sign-in shell. The edge and route guards have already
// bounced authenticated visitors before this runs.
func (h *PageHandler) Login(c *gin.Context) {
	c.Data(http.StatusOK, htmlContentType, []byte(
		`<!doctype html><html><head><title>Stride Admin — Sign in</title></head>`+
			`<body><div id="login-root"></div><script src="/assets/login.js"></script></body></html>`))
}

// Dashboard serves the dashboard shell for authenticated admins.
func (h *PageHandler) Dashboard(c *gin.Context) {
	sess, _ := middleware.SessionFromContext(c)
	name := ""
	if sess.User != nil {
		name = sess.User.Name
	}
	c.Data(http.StatusOK, htmlContentType, []byte(fmt.Sprintf(
		`<!doctype html><html><head><title>Stride Admin</title></head>`+
			`<body data-user=%q><div id="app-root"></div><script src="/assets/app.js"></script></body></html>`, name)))
}

// Settings serves the settings shell; the policy table restricts it to
// RoleAdmin.
func (h *PageHandler) Settings(c *gin.Context) {
	c.Data(http.StatusOK, htmlContentType, []byte(
		`<!doctype html><html><head><title>Stride Admin — Settings</title></head>`+
			`<body><div id="settings-root"></div><script src="/assets/app.js"></script></body></html>`))
}

// Unauthorized is where role denials land.
func (h *PageHandler) Unauthorized(c *gin.Context) {
	detail := "You do not have permission to view this page."
	if sess, ok := middleware.SessionFromContext(c); ok && sess.User != nil {
		detail = fmt.Sprintf("Your role (%s) does not permit this page.", sess.User.Role)
	}
	c.Data(http.StatusForbidden, htmlContentType, []byte(fmt.Sprintf(
		`<!doctype html><html><head><title>Stride Admin — Access denied</title></head>`+
			`<body><h1>Access denied</h1><p>%s</p>`+
			`<a href="/admin/dashboard">Back to dashboard</a></body></html>`, detail)))
}
