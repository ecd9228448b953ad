package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stridefit/admin-gateway/logger"
	"github.com/stridefit/admin-gateway/types"
)

// Verifier resolves credentials against the platform backend. It never
// mutates the token store; persisting results is the session manager's job.
type Verifier interface {
	// Login exchanges admin credentials for a session credential and identity.
	Login(ctx context.Context, email, password string) (string, *types.Identity, error)
	// Verify resolves an existing credential to an identity.
	Verify(ctx context.Context, token string) (*types.Identity, error)
	// Refresh exchanges a credential for a renewed one plus identity.
	Refresh(ctx context.Context, token string) (string, *types.Identity, error)
}

// RejectedError is returned when the backend explicitly rejects a request
// (any non-2xx status). Transport failures are returned as plain errors and
// callers treat both the same way: no valid session.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend rejected request (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend rejected request (%d)", e.Status)
}

const (
	loginPath   = "/api/authAdmin/login"
	verifyPath  = "/api/authAdmin/verify"
	refreshPath = "/api/authAdmin/refresh"
)

// BackendVerifier is the HTTP client for the backend's admin auth endpoints.
type BackendVerifier struct {
	baseURL string
	client  *http.Client
}

// NewBackendVerifier creates a verifier for the given backend base URL with
// the given request timeout. The source system had no timeout beyond the
// transport default; here a hung verify must not wedge a request forever.
func NewBackendVerifier(baseURL string, timeout time.Duration) *BackendVerifier {
	return &BackendVerifier{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type authResponse struct {
	User    *types.Identity `json:"user"`
	Token   string          `json:"token"`
	Message string          `json:"message"`
}

func (v *BackendVerifier) Login(ctx context.Context, email, password string) (string, *types.Identity, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.do(req, "login")
	if err != nil {
		return "", nil, err
	}
	if resp.Token == "" || resp.User == nil {
		return "", nil, fmt.Errorf("backend login response missing token or user")
	}
	return resp.Token, resp.User, nil
}

func (v *BackendVerifier) Verify(ctx context.Context, token string) (*types.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+verifyPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.do(req, "verify")
	if err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, fmt.Errorf("backend verify response missing user")
	}
	return resp.User, nil
}

func (v *BackendVerifier) Refresh(ctx context.Context, token string) (string, *types.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+refreshPath, nil)
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.do(req, "refresh")
	if err != nil {
		return "", nil, err
	}
	if resp.Token == "" || resp.User == nil {
		return "", nil, fmt.Errorf("backend refresh response missing token or user")
	}
	// The backend-returned token is used unconditionally; nothing is ever
	// substituted client-side.
	return resp.Token, resp.User, nil
}

// do executes the request and decodes the common response shape. Non-2xx
// statuses become RejectedError with the backend's message when one is
// provided.
func (v *BackendVerifier) do(req *http.Request, op string) (*authResponse, error) {
	log := logger.GetLogger()

	httpResp, err := v.client.Do(req)
	if err != nil {
		log.Warnw("Backend auth call failed",
			"op", op,
			"url", req.URL.Path,
			"error", err)
		return nil, fmt.Errorf("backend %s call: %w", op, err)
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()

	payload, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("backend %s response read: %w", op, err)
	}

	var resp authResponse
	// A non-JSON error body is fine; the status alone carries the decision.
	_ = json.Unmarshal(payload, &resp)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		log.Debugw("Backend rejected auth call",
			"op", op,
			"status", httpResp.StatusCode,
			"message", resp.Message)
		return nil, &RejectedError{Status: httpResp.StatusCode, Message: resp.Message}
	}

	return &resp, nil
}
