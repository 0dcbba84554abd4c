package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"skillswap/internal/db"
)

const usernameConstraint = "users_username_key"

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
)

type Repository struct {
	db db.DBTX
}

func NewRepository(database db.DBTX) *Repository {
	return &Repository{db: database}
}

func (r *Repository) FindUserByUsername(ctx context.Context, username string) (User, error) {
	var user User
	err := r.db.QueryRow(ctx, `
		SELECT id, username, email, full_name, password_hash, is_active, created_at, updated_at
		FROM users
		WHERE username = $1
	`, username).Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.PasswordHash, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("query user by username: %w", err)
	}

	return user, nil
}

// InsertUser relies on the unique index on username, so two concurrent
// inserts of the same name leave exactly one row.
func (r *Repository) InsertUser(ctx context.Context, input NewUser) (User, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return User{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	now := time.Now().UTC()

	var user User
	err = r.db.QueryRow(ctx, `
		INSERT INTO users (id, username, email, full_name, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id, username, email, full_name, password_hash, is_active, created_at, updated_at
	`, id.String(), input.Username, input.Email, input.FullName, input.PasswordHash, input.IsActive, now).
		Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.PasswordHash, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, usernameConstraint) {
			return User{}, ErrUsernameTaken
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	return user, nil
}
