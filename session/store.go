// Package session owns the admin session lifecycle: the dual credential
// store (edge-visible cookie plus gateway-local record), the backend
// verifier client, and the session manager state machine.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stridefit/admin-gateway/logger"
	"github.com/stridefit/admin-gateway/types"
)

// ErrNoRecord is returned when no local session record exists for a credential.
var ErrNoRecord = errors.New("session: no record for credential")

// Record is the gateway-local copy of a session: the credential, the identity
// it last resolved to, and when that resolution happened. It is the source of
// truth for backend API calls made on the session's behalf.
type Record struct {
	Token      string          `json:"token"`
	User       *types.Identity `json:"user,omitempty"`
	VerifiedAt time.Time       `json:"verified_at"`
}

// RecordStore persists local session records keyed by credential.
type RecordStore interface {
	Save(ctx context.Context, rec Record, ttl time.Duration) error
	Load(ctx context.Context, token string) (Record, error)
	Delete(ctx context.Context, token string) error
}

const recordKeyPrefix = "stride:admin:session:"

// recordKey derives the storage key from a credential. The raw token never
// appears in Redis keys.
func recordKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return recordKeyPrefix + hex.EncodeToString(sum[:16])
}

// RedisRecordStore keeps session records in Redis so all gateway instances
// observe the same local copy.
type RedisRecordStore struct {
	client redis.UniversalClient
}

// NewRedisRecordStore creates a RecordStore backed by the given Redis client.
func NewRedisRecordStore(client redis.UniversalClient) *RedisRecordStore {
	return &RedisRecordStore{client: client}
}

func (s *RedisRecordStore) Save(ctx context.Context, rec Record, ttl time.Duration) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, recordKey(rec.Token), payload, ttl).Err()
}

func (s *RedisRecordStore) Load(ctx context.Context, token string) (Record, error) {
	payload, err := s.client.Get(ctx, recordKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrNoRecord
		}
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *RedisRecordStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, recordKey(token)).Err()
}

// MemoryRecordStore is an in-process RecordStore for development and tests.
type MemoryRecordStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
}

type memoryRecord struct {
	rec       Record
	expiresAt time.Time
}

// NewMemoryRecordStore creates an empty in-memory RecordStore.
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{records: make(map[string]memoryRecord)}
}

func (s *MemoryRecordStore) Save(_ context.Context, rec Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[recordKey(rec.Token)] = memoryRecord{rec: rec, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryRecordStore) Load(_ context.Context, token string) (Record, error) {
	s.mu.RLock()
	entry, ok := s.records[recordKey(token)]
	s.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return Record{}, ErrNoRecord
	}
	return entry.rec, nil
}

func (s *MemoryRecordStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, recordKey(token))
	return nil
}

// CookieCodec reads and writes the edge-visible session cookie.
type CookieCodec struct {
	// Name is the session cookie name the edge guard checks.
	Name string
	// Secure marks the cookie Secure; enabled in production.
	Secure bool
}

// Read extracts the credential from the request cookie.
func (c CookieCodec) Read(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(c.Name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// Write sets the session cookie with the configured attributes:
// HttpOnly, SameSite strict, and the given lifetime.
func (c CookieCodec) Write(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Clear expires the session cookie.
func (c CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Store is the token store: one logical session credential held in two
// places, the browser cookie and the local record store. The session manager
// is its only writer; both guard layers are read-only consumers.
type Store struct {
	cookies CookieCodec
	records RecordStore
}

// NewStore combines a cookie codec and a record store into the dual store.
func NewStore(cookies CookieCodec, records RecordStore) *Store {
	return &Store{cookies: cookies, records: records}
}

// CookieName exposes the cookie name for the edge guard's presence check.
func (s *Store) CookieName() string {
	return s.cookies.Name
}

// Credential returns the credential carried by the request cookie, if any.
func (s *Store) Credential(r *http.Request) (string, bool) {
	return s.cookies.Read(r)
}

// Lookup returns the local record for a credential.
func (s *Store) Lookup(ctx context.Context, token string) (Record, error) {
	return s.records.Load(ctx, token)
}

// Set writes both copies in one operation: the local record first, then the
// cookie, so a failed cookie write cannot leave a cookie with no resolvable
// record behind it.
func (s *Store) Set(ctx context.Context, w http.ResponseWriter, rec Record, cookieTTL, recordTTL time.Duration) error {
	if err := s.records.Save(ctx, rec, recordTTL); err != nil {
		return err
	}
	s.cookies.Write(w, rec.Token, cookieTTL)
	return nil
}

// Clear removes both copies. Idempotent: clearing an absent session is a
// no-op. A record-store failure is logged but does not stop the cookie from
// being expired.
func (s *Store) Clear(ctx context.Context, w http.ResponseWriter, token string) {
	if token != "" {
		if err := s.records.Delete(ctx, token); err != nil {
			logger.GetLogger().Warnw("Failed to delete session record",
				"error", err,
				"token", logger.MaskToken(token))
		}
	}
	s.cookies.Clear(w)
}
