package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trecks/internal/server/database"

	"golang.org/x/crypto/bcrypt"
)

// Sentinel errors for the auth layer.
var (
	ErrInvalidRegistrationCode = errors.New("invalid registration code")
	ErrUsernameTaken           = errors.New("username already taken")
	ErrRegistrationCodeUsed    = errors.New("registration code already used")
	ErrInvalidCredentials      = errors.New("invalid username or password")
	ErrMissingCredentials      = errors.New("username and password are required")
	ErrUnauthenticated         = errors.New("no valid session")
)

// bcryptCost matches the cost the original deployment hashed its
// passwords with; existing hashes stay verifiable.
const bcryptCost = 10

// sessionTokenLength is the length of generated session tokens.
const sessionTokenLength = 32

// UserStore is the persistence surface the auth service needs.
type UserStore interface {
	Create(ctx context.Context, user *database.User) error
	GetByUsername(ctx context.Context, username string) (*database.User, error)
}

// Service registers accounts, authenticates logins, and owns the
// session lifecycle.
type Service struct {
	users            UserStore
	sessions         Store
	registrationCode string
	sessionTTL       time.Duration
}

// NewService creates an auth service. The registration code is the shared
// secret a registrant must present; sessions live in the injected store.
func NewService(users UserStore, sessions Store, registrationCode string, sessionTTL time.Duration) *Service {
	return &Service{
		users:            users,
		sessions:         sessions,
		registrationCode: registrationCode,
		sessionTTL:       sessionTTL,
	}
}

// Register creates a new account gated by the shared registration code.
// Every successful registrant becomes an admin: the deployment model is a
// single operator who self-registers with the secret code.
func (s *Service) Register(ctx context.Context, username, password, registrationCode string) (int64, error) {
	if username == "" || password == "" {
		return 0, ErrMissingCredentials
	}
	if subtle.ConstantTimeCompare([]byte(registrationCode), []byte(s.registrationCode)) != 1 {
		return 0, ErrInvalidRegistrationCode
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return 0, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &database.User{
		Username:         username,
		PasswordHash:     string(hash),
		RegistrationCode: registrationCode,
		IsAdmin:          true,
		CreatedAt:        time.Now().UTC(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, database.ErrUsernameTaken):
			return 0, ErrUsernameTaken
		case errors.Is(err, database.ErrRegistrationCodeUsed):
			return 0, ErrRegistrationCodeUsed
		}
		return 0, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered", "user_id", user.ID, "username", username)
	return user.ID, nil
}

// Login verifies credentials and establishes a session. Unknown usernames
// and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := generateSessionToken(sessionTokenLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := time.Now().UTC()
	session := &Session{
		Token:     token,
		UserID:    user.ID,
		IsAdmin:   user.IsAdmin,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	if err := s.sessions.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	slog.Info("user logged in", "user_id", user.ID, "username", username)
	return session, nil
}

// GetSession resolves a session token to its server-side state.
// Returns ErrUnauthenticated for unknown or expired tokens.
func (s *Service) GetSession(ctx context.Context, token string) (*Session, error) {
	session, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return session, nil
}

// Logout destroys the session behind the given token. Destroying an
// already-gone session is not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
