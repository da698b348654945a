package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUsernameTaken        = errors.New("username already taken")
	ErrRegistrationCodeUsed = errors.New("registration code already used")
)

// uniqueViolation is the Postgres error code for unique constraint failures.
const uniqueViolation = "23505"

// UserRepository provides persistence for registered accounts.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user record and fills in the generated ID.
// Returns ErrUsernameTaken or ErrRegistrationCodeUsed when the
// corresponding unique constraint is violated.
func (r *UserRepository) Create(ctx context.Context, user *User) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, registration_code, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`,
		user.Username,
		user.PasswordHash,
		user.RegistrationCode,
		user.IsAdmin,
		user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if pgErr.ConstraintName == "users_registration_code_key" {
				return ErrRegistrationCodeUsed
			}
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByUsername retrieves a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	user := &User{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, username, password_hash, registration_code, is_admin, created_at
		FROM users WHERE username = $1
	`, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.RegistrationCode,
		&user.IsAdmin,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
