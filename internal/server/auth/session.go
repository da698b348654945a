package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is the server-side state behind a logged-in client.
// It lives only in the session store: restarting the process (with the
// memory backend) invalidates every outstanding cookie.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session has passed its expiry time.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Store holds active sessions keyed by token. Implementations must be
// safe for concurrent use.
type Store interface {
	Put(ctx context.Context, session *Session) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	// DeleteExpired evicts expired sessions and returns how many were removed.
	// Backends that expire entries natively may return 0 without scanning.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// MemoryStore keeps sessions in an in-process map. This is the default
// backend; a background sweeper handles expiry eviction.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Put(ctx context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.Token] = session
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, token string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[token]
	if !ok || session.Expired(time.Now()) {
		return nil, ErrSessionNotFound
	}
	// Copy so callers cannot mutate stored state.
	s := *session
	return &s, nil
}

func (m *MemoryStore) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m *MemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int
	for token, session := range m.sessions {
		if session.Expired(now) {
			delete(m.sessions, token)
			removed++
		}
	}
	return removed, nil
}

// generateSessionToken produces a cryptographically secure, URL-safe random string.
func generateSessionToken(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("crypto/rand failure: %w", err)
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}

// SignToken returns the cookie value for a session token:
// "token.signature" where the signature is an HMAC-SHA256 over the token.
// Forged cookies are rejected before the session store is consulted.
func SignToken(secret, token string) string {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write([]byte(token))
	return token + "." + hex.EncodeToString(m.Sum(nil))
}

// VerifyCookieValue checks the signature on a cookie value and returns
// the embedded session token.
func VerifyCookieValue(secret, value string) (string, error) {
	token, sig, ok := strings.Cut(value, ".")
	if !ok {
		return "", errors.New("malformed session cookie")
	}
	want := SignToken(secret, token)
	if !hmac.Equal([]byte(token+"."+sig), []byte(want)) {
		return "", errors.New("invalid session cookie signature")
	}
	return token, nil
}
