package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"trecks/internal/testutil"

	"golang.org/x/crypto/bcrypt"
)

const testRegistrationCode = "4123trecks"

func newTestService() (*Service, *testutil.FakeUserStore, *MemoryStore) {
	users := testutil.NewFakeUserStore()
	sessions := NewMemoryStore()
	svc := NewService(users, sessions, testRegistrationCode, time.Hour)
	return svc, users, sessions
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("valid registration creates an admin user", func(t *testing.T) {
		svc, users, _ := newTestService()

		userID, err := svc.Register(ctx, "admin", "pw123", testRegistrationCode)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if userID == 0 {
			t.Error("expected a user ID")
		}

		user, err := users.GetByUsername(ctx, "admin")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !user.IsAdmin {
			t.Error("registered user should be admin")
		}
		if user.PasswordHash == "pw123" {
			t.Error("password must not be stored in plaintext")
		}
		if !strings.HasPrefix(user.PasswordHash, "$2") {
			t.Errorf("expected a bcrypt hash, got %q", user.PasswordHash)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pw123")); err != nil {
			t.Errorf("stored hash does not verify the password: %v", err)
		}
	})

	t.Run("wrong registration code", func(t *testing.T) {
		svc, users, _ := newTestService()

		_, err := svc.Register(ctx, "admin2", "pw", "wrong-code")
		if !errors.Is(err, ErrInvalidRegistrationCode) {
			t.Fatalf("expected ErrInvalidRegistrationCode, got %v", err)
		}
		if _, err := users.GetByUsername(ctx, "admin2"); err == nil {
			t.Error("no user should be created on a rejected code")
		}
	})

	t.Run("duplicate username", func(t *testing.T) {
		svc, _, _ := newTestService()

		if _, err := svc.Register(ctx, "admin", "pw1", testRegistrationCode); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err := svc.Register(ctx, "admin", "pw2", testRegistrationCode)
		if !errors.Is(err, ErrUsernameTaken) {
			t.Fatalf("expected ErrUsernameTaken, got %v", err)
		}
	})

	t.Run("missing username or password", func(t *testing.T) {
		svc, _, _ := newTestService()

		if _, err := svc.Register(ctx, "", "pw", testRegistrationCode); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
		if _, err := svc.Register(ctx, "user", "", testRegistrationCode); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("register then login yields an admin session", func(t *testing.T) {
		svc, _, _ := newTestService()

		userID, err := svc.Register(ctx, "admin", "pw123", testRegistrationCode)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		session, err := svc.Login(ctx, "admin", "pw123")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if session.UserID != userID {
			t.Errorf("expected session for user %d, got %d", userID, session.UserID)
		}
		if !session.IsAdmin {
			t.Error("session should carry the admin flag")
		}
		if session.Token == "" {
			t.Error("session should have a token")
		}

		// The session is resolvable by its token
		got, err := svc.GetSession(ctx, session.Token)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.UserID != userID || !got.IsAdmin {
			t.Errorf("resolved session mismatch: %+v", got)
		}
	})

	t.Run("wrong password leaves no session behind", func(t *testing.T) {
		svc, _, sessions := newTestService()

		if _, err := svc.Register(ctx, "admin", "pw123", testRegistrationCode); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err := svc.Login(ctx, "admin", "wrong")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}

		removed, err := sessions.DeleteExpired(ctx, time.Now().Add(48*time.Hour))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if removed != 0 {
			t.Errorf("expected no sessions in the store, swept %d", removed)
		}
	})

	t.Run("unknown username is indistinguishable from wrong password", func(t *testing.T) {
		svc, _, _ := newTestService()

		_, err := svc.Login(ctx, "ghost", "pw")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	if _, err := svc.Register(ctx, "admin", "pw123", testRegistrationCode); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	session, err := svc.Login(ctx, "admin", "pw123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Logout(ctx, session.Token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.GetSession(ctx, session.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated after logout, got %v", err)
	}

	// Logging out twice is harmless
	if err := svc.Logout(ctx, session.Token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGetSessionUnknownToken(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.GetSession(context.Background(), "no-such-token")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}
