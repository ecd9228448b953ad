package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stridefit/admin-gateway/session"
)

type capturedRequest struct {
	authorization string
	cookie        string
	path          string
}

func newProxyFixture(t *testing.T) (*gin.Engine, *session.Store, *capturedRequest, func()) {
	t.Helper()

	captured := &capturedRequest{}
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.authorization = r.Header.Get("Authorization")
		captured.cookie = r.Header.Get("Cookie")
		captured.path = r.URL.Path
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	store := session.NewStore(
		session.CookieCodec{Name: "stride_admin_session"},
		session.NewMemoryRecordStore(),
	)

	h, err := NewProxyHandler(backend.URL, store)
	require.NoError(t, err)

	r := gin.New()
	r.Any("/api/*path", h.Proxy)
	return r, store, captured, backend.Close
}

// newProxyRequest builds a request with a cancellable context the way a real
// server does; without one the reverse proxy falls back to CloseNotify, which
// httptest.ResponseRecorder lacks.
func newProxyRequest(t *testing.T, method, target string) *http.Request {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return httptest.NewRequest(method, target, nil).WithContext(ctx)
}

func TestProxy_InjectsBearerFromLocalRecord(t *testing.T) {
	r, store, captured, done := newProxyFixture(t)
	defer done()

	rec := session.Record{Token: "record-token", User: opsIdentity(), VerifiedAt: time.Now()}
	require.NoError(t, store.Set(context.Background(), httptest.NewRecorder(), rec, time.Hour, time.Hour))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/adminStats/overview", nil)
	req.AddCookie(&http.Cookie{Name: "stride_admin_session", Value: "record-token"})
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bearer record-token", captured.authorization)
	assert.Empty(t, captured.cookie, "session cookie must not cross the proxy")
	assert.Equal(t, "/api/adminStats/overview", captured.path)
}

func TestProxy_AnonymousCarriesNoCredential(t *testing.T) {
	r, _, captured, done := newProxyFixture(t)
	defer done()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/adminStats/overview", nil)
	req.Header.Set("Authorization", "Bearer forged-by-client")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, captured.authorization, "client-supplied Authorization must be stripped")
}

func TestProxy_CookieFallbackWhenRecordMissing(t *testing.T) {
	r, _, captured, done := newProxyFixture(t)
	defer done()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/adminStats/overview", nil)
	req.AddCookie(&http.Cookie{Name: "stride_admin_session", Value: "cookie-only-token"})
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bearer cookie-only-token", captured.authorization)
}

func TestProxy_BackendDownIsBadGateway(t *testing.T) {
	r, _, _, done := newProxyFixture(t)
	done() // kill the backend before the call

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/adminStats/overview", nil))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Backend unavailable")
}
