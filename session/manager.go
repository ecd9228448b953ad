package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stridefit/admin-gateway/logger"
	"github.com/stridefit/admin-gateway/metrics"
	"github.com/stridefit/admin-gateway/types"
)

// genericLoginError is shown to the user when the login call fails for any
// reason other than an explicit backend rejection.
const genericLoginError = "Network error. Please try again."

// ManagerConfig tunes the session manager's timing behavior.
type ManagerConfig struct {
	// CookieTTL is the session cookie lifetime (7 days in deployment).
	CookieTTL time.Duration
	// VerifyTTL is how long a verified record stays fresh before the next
	// guarded request triggers re-verification.
	VerifyTTL time.Duration
	// RefreshLeeway: a credential whose embedded expiry is closer than this
	// is reported as due for refresh.
	RefreshLeeway time.Duration
}

// Manager owns session state and is the sole writer of the token store.
// Guards and handlers only read the sessions it resolves.
//
// Per credential, the lifecycle is a three-state machine:
// initializing (verification in flight) resolving to authenticated or
// anonymous. Concurrent resolutions of the same credential share one backend
// round-trip.
type Manager struct {
	store    *Store
	verifier Verifier
	cfg      ManagerConfig

	mu       sync.Mutex
	inflight map[string]*verifyCall
}

type verifyCall struct {
	done chan struct{}
	sess types.Session
}

// NewManager wires a manager over the dual store and backend verifier.
func NewManager(store *Store, verifier Verifier, cfg ManagerConfig) *Manager {
	return &Manager{
		store:    store,
		verifier: verifier,
		cfg:      cfg,
		inflight: make(map[string]*verifyCall),
	}
}

// Store exposes the underlying token store for read-only consumers.
func (m *Manager) Store() *Store {
	return m.store
}

// Resolve derives the session for a request. No cookie means anonymous. A
// fresh local record authenticates without a backend call; otherwise the
// credential is verified, deduplicated per credential, and a rejection clears
// both store copies.
func (m *Manager) Resolve(ctx context.Context, w http.ResponseWriter, r *http.Request) types.Session {
	token, ok := m.store.Credential(r)
	if !ok {
		return types.Anonymous()
	}

	if rec, err := m.store.Lookup(ctx, token); err == nil && rec.User != nil &&
		time.Since(rec.VerifiedAt) < m.cfg.VerifyTTL {
		return types.Authenticated(rec.User)
	}

	return m.verify(ctx, w, token)
}

// verify runs the backend verification for a credential, sharing one
// round-trip among concurrent callers.
func (m *Manager) verify(ctx context.Context, w http.ResponseWriter, token string) types.Session {
	m.mu.Lock()
	if call, ok := m.inflight[token]; ok {
		m.mu.Unlock()
		select {
		case <-call.done:
			return call.sess
		case <-ctx.Done():
			// The caller went away mid-verification; its session never left
			// the loading state.
			return types.Session{State: types.StateInitializing}
		}
	}
	call := &verifyCall{done: make(chan struct{})}
	m.inflight[token] = call
	m.mu.Unlock()

	call.sess = m.doVerify(ctx, w, token)

	m.mu.Lock()
	delete(m.inflight, token)
	m.mu.Unlock()
	close(call.done)

	return call.sess
}

func (m *Manager) doVerify(ctx context.Context, w http.ResponseWriter, token string) types.Session {
	log := logger.GetLogger()

	user, err := m.verifier.Verify(ctx, token)
	if err != nil {
		// Transport failures and explicit rejections both mean "no valid
		// session": clear the stores and fall back to anonymous. No retry.
		var rejected *RejectedError
		if errors.As(err, &rejected) {
			metrics.SessionVerifications.WithLabelValues("rejected").Inc()
			log.Infow("Credential rejected by backend",
				"status", rejected.Status,
				"token", logger.MaskToken(token))
		} else {
			metrics.SessionVerifications.WithLabelValues("error").Inc()
			log.Warnw("Credential verification failed",
				"error", err,
				"token", logger.MaskToken(token))
		}
		m.store.Clear(ctx, w, token)
		return types.Anonymous()
	}

	metrics.SessionVerifications.WithLabelValues("success").Inc()
	rec := Record{Token: token, User: user, VerifiedAt: time.Now()}
	if err := m.store.records.Save(ctx, rec, m.cfg.VerifyTTL); err != nil {
		// The session is still valid; the next request just re-verifies.
		log.Warnw("Failed to save session record", "error", err)
	}
	return types.Authenticated(user)
}

// Login authenticates against the backend and persists the returned
// credential in both store copies. Failures are reported as data, never as a
// panic or Go error: an explicit backend rejection surfaces its message, any
// transport failure surfaces a generic one.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, email, password string) types.LoginResult {
	log := logger.GetLogger()

	token, user, err := m.verifier.Login(ctx, email, password)
	if err != nil {
		var rejected *RejectedError
		if errors.As(err, &rejected) {
			metrics.LoginAttempts.WithLabelValues("rejected").Inc()
			log.Infow("Login rejected",
				"status", rejected.Status,
				"email", logger.MaskEmail(email))
			msg := rejected.Message
			if msg == "" {
				msg = "Invalid email or password"
			}
			return types.LoginResult{Success: false, Error: msg}
		}
		metrics.LoginAttempts.WithLabelValues("network_error").Inc()
		log.Warnw("Login call failed",
			"error", err,
			"email", logger.MaskEmail(email))
		return types.LoginResult{Success: false, Error: genericLoginError}
	}

	rec := Record{Token: token, User: user, VerifiedAt: time.Now()}
	if err := m.store.Set(ctx, w, rec, m.cfg.CookieTTL, m.cfg.VerifyTTL); err != nil {
		// The cookie was not written either; the login is reported as failed
		// so the user retries rather than landing in a half-written session.
		metrics.LoginAttempts.WithLabelValues("network_error").Inc()
		log.Errorw("Failed to persist session after login", "error", err)
		return types.LoginResult{Success: false, Error: genericLoginError}
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	log.Infow("Admin login",
		"user_id", user.ID,
		"role", user.Role,
		"email", logger.MaskEmail(email))
	return types.LoginResult{Success: true}
}

// Logout clears both credential copies. Idempotent: logging out an anonymous
// session only re-expires the cookie. Navigation to the login surface is the
// caller's responsibility.
func (m *Manager) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	token, _ := m.store.Credential(r)
	m.store.Clear(ctx, w, token)
	if token != "" {
		logger.GetLogger().Infow("Admin logout", "token", logger.MaskToken(token))
	}
}

// RefreshToken exchanges the stored credential for a renewed one. With no
// stored credential it returns false without side effects. A successful
// exchange rotates both store copies; any failure behaves as a logout.
func (m *Manager) RefreshToken(ctx context.Context, w http.ResponseWriter, r *http.Request) bool {
	log := logger.GetLogger()

	token, ok := m.store.Credential(r)
	if !ok {
		return false
	}

	newToken, user, err := m.verifier.Refresh(ctx, token)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("failed").Inc()
		log.Warnw("Token refresh failed, clearing session",
			"error", err,
			"token", logger.MaskToken(token))
		m.store.Clear(ctx, w, token)
		return false
	}

	// Drop the record for the superseded credential before persisting the
	// new one; a stale cookie elsewhere will simply fail verification.
	if newToken != token {
		if err := m.store.records.Delete(ctx, token); err != nil {
			log.Warnw("Failed to delete superseded session record", "error", err)
		}
	}

	rec := Record{Token: newToken, User: user, VerifiedAt: time.Now()}
	if err := m.store.Set(ctx, w, rec, m.cfg.CookieTTL, m.cfg.VerifyTTL); err != nil {
		metrics.TokenRefreshes.WithLabelValues("failed").Inc()
		log.Errorw("Failed to persist refreshed session", "error", err)
		m.store.Clear(ctx, w, newToken)
		return false
	}

	metrics.TokenRefreshes.WithLabelValues("success").Inc()
	log.Infow("Session credential refreshed",
		"user_id", user.ID,
		"token", logger.MaskToken(newToken))
	return true
}

// RefreshDue reports whether the request's credential carries an embedded
// expiry closer than the configured leeway. The credential stays opaque:
// the claims are peeked without signature verification, and a credential
// that does not parse as a JWT is never considered due.
func (m *Manager) RefreshDue(r *http.Request) bool {
	token, ok := m.store.Credential(r)
	if !ok {
		return false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Until(exp.Time) < m.cfg.RefreshLeeway
}
