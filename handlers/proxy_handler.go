package handlers

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/stridefit/admin-gateway/logger"
	"github.com/stridefit/admin-gateway/session"
)

// ProxyHandler forwards dashboard API calls to the platform backend. The
// session cookie never crosses the proxy; the gateway swaps it for the
// bearer credential held in the token store's local copy.
type ProxyHandler struct {
	store *session.Store
	proxy *httputil.ReverseProxy
}

// NewProxyHandler creates a reverse proxy to the backend base URL.
func NewProxyHandler(backendURL string, store *session.Store) (*ProxyHandler, error) {
	target, err := url.Parse(backendURL)
	if err != nil {
		return nil, err
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.GetLogger().Warnw("Backend proxy call failed",
			"path", r.URL.Path,
			"error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"Backend unavailable"}`))
	}

	return &ProxyHandler{store: store, proxy: proxy}, nil
}

// Proxy handles any /api/* route not served by the gateway itself.
func (h *ProxyHandler) Proxy(c *gin.Context) {
	req := c.Request

	if token, ok := h.store.Credential(req); ok {
		// The local record is the source of truth for outgoing calls; the
		// raw cookie value covers a record-store outage.
		bearer := token
		if rec, err := h.store.Lookup(req.Context(), token); err == nil {
			bearer = rec.Token
		}
		req.Header.Set("Authorization", "Bearer "+bearer)
	} else {
		req.Header.Del("Authorization")
	}
	req.Header.Del("Cookie")

	h.proxy.ServeHTTP(c.Writer, req)
}
