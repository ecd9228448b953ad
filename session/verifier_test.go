package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackendStub(t *testing.T, handler http.HandlerFunc) *BackendVerifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewBackendVerifier(srv.URL, 2*time.Second)
}

func TestBackendVerifier_LoginSuccess(t *testing.T) {
	verifier := newBackendStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, loginPath, r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ops@stridefit.io", body["email"])
		assert.Equal(t, "pass123", body["password"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"token": "issued-token",
			"user":  testIdentity(),
		})
	})

	token, user, err := verifier.Login(context.Background(), "ops@stridefit.io", "pass123")
	require.NoError(t, err)
	assert.Equal(t, "issued-token", token)
	assert.Equal(t, testIdentity(), user)
}

func TestBackendVerifier_LoginRejectedWithMessage(t *testing.T) {
	verifier := newBackendStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Invalid email or password"})
	})

	_, _, err := verifier.Login(context.Background(), "ops@stridefit.io", "wrong")
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusUnauthorized, rejected.Status)
	assert.Equal(t, "Invalid email or password", rejected.Message)
}

func TestBackendVerifier_VerifySendsBearer(t *testing.T) {
	verifier := newBackendStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, verifyPath, r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{"user": testIdentity()})
	})

	user, err := verifier.Verify(context.Background(), "tok-123")
	require.NoError(t, err)
	assert.Equal(t, testIdentity(), user)
}

func TestBackendVerifier_VerifyRejected(t *testing.T) {
	verifier := newBackendStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := verifier.Verify(context.Background(), "expired-token")
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusUnauthorized, rejected.Status)
}

func TestBackendVerifier_VerifyNonJSONErrorBody(t *testing.T) {
	verifier := newBackendStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	_, err := verifier.Verify(context.Background(), "tok-123")
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusBadGateway, rejected.Status)
	assert.Empty(t, rejected.Message)
}

func TestBackendVerifier_RefreshRotatesToken(t *testing.T) {
	verifier := newBackendStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, refreshPath, r.URL.Path)
		assert.Equal(t, "Bearer old-token", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"token": "renewed-token",
			"user":  testIdentity(),
		})
	})

	token, user, err := verifier.Refresh(context.Background(), "old-token")
	require.NoError(t, err)
	assert.Equal(t, "renewed-token", token)
	assert.Equal(t, testIdentity(), user)
}

func TestBackendVerifier_TransportFailure(t *testing.T) {
	// Point at a server that is already closed.
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	verifier := NewBackendVerifier(srv.URL, time.Second)

	_, err := verifier.Verify(context.Background(), "tok-123")
	require.Error(t, err)
	var rejected *RejectedError
	assert.False(t, errors.As(err, &rejected), "transport failures are not rejections")
}

func TestBackendVerifier_MissingTokenInLoginResponse(t *testing.T) {
	verifier := newBackendStub(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"user": testIdentity()})
	})

	_, _, err := verifier.Login(context.Background(), "ops@stridefit.io", "pass123")
	require.Error(t, err)
}
