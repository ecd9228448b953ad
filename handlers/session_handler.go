// Package handlers contains the gateway's HTTP handlers: the session
// endpoints the dashboard shell talks to, the authenticated API proxy, and
// the health probes.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stridefit/admin-gateway/config"
	"github.com/stridefit/admin-gateway/errors"
	"github.com/stridefit/admin-gateway/logger"
	"github.com/stridefit/admin-gateway/middleware"
	"github.com/stridefit/admin-gateway/session"
)

// SessionHandler exposes the session lifecycle over HTTP. All state changes
// go through the session manager; the handler never touches the token store
// directly.
type SessionHandler struct {
	manager *session.Manager
	config  *config.Config
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(manager *session.Manager, config *config.Config) *SessionHandler {
	return &SessionHandler{
		manager: manager,
		config:  config,
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /session/login. A failed login is an ordinary response,
// not an error: the body carries the message the form should display, and
// the status distinguishes rejected credentials from everything else.
func (h *SessionHandler) Login(c *gin.Context) {
	log := logger.GetLogger()

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if err := c.Error(errors.ValidationFailed("invalid_request", "Email and password are required")); err != nil {
			log.Errorw("Failed to set error in context", "error", err)
		}
		return
	}

	result := h.manager.Login(c.Request.Context(), c.Writer, req.Email, req.Password)
	if !result.Success {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   result.Error,
		})
		return
	}

	// Where the shell should navigate next: the recorded target if the login
	// page carried one, the dashboard otherwise.
	target := middleware.SafeRedirectTarget(
		c.Query(h.config.Routes.RedirectParam), h.config.Routes.DashboardPath)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"redirect": target,
	})
}

// Logout handles POST /session/logout. Always clears both credential copies
// and always lands on the login surface, even for an already-anonymous
// caller.
func (h *SessionHandler) Logout(c *gin.Context) {
	h.manager.Logout(c.Request.Context(), c.Writer, c.Request)
	c.Redirect(http.StatusFound, h.config.Routes.LoginPath)
}

// Current handles GET /session: the resolved session state for the dashboard
// shell, plus whether the credential is due for a refresh.
func (h *SessionHandler) Current(c *gin.Context) {
	sess := h.manager.Resolve(c.Request.Context(), c.Writer, c.Request)

	resp := gin.H{
		"state":       sess.State,
		"refresh_due": sess.IsAuthenticated() && h.manager.RefreshDue(c.Request),
	}
	if sess.User != nil {
		resp["user"] = sess.User
	}
	c.JSON(http.StatusOK, resp)
}

// Refresh handles POST /session/refresh. A failed refresh has already
// cleared the session, so the caller is told to re-authenticate.
func (h *SessionHandler) Refresh(c *gin.Context) {
	log := logger.GetLogger()

	if !h.manager.RefreshToken(c.Request.Context(), c.Writer, c.Request) {
		if err := c.Error(errors.AuthenticationFailed("Session refresh failed")); err != nil {
			log.Errorw("Failed to set error in context", "error", err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
