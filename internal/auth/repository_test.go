package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{"id", "username", "email", "full_name", "password_hash", "is_active", "created_at", "updated_at"}

func TestRepository_FindUserByUsername(t *testing.T) {
	created := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		want      User
		wantErr   error
		errMsg    string
	}{
		{
			name: "found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(userColumns).
					AddRow("u-1", "alice", "alice@example.com", "Alice", "$2a$04$hash", true, created, created)
				mock.ExpectQuery(`SELECT id, username, email, full_name, password_hash, is_active, created_at, updated_at\s+FROM users`).
					WithArgs("alice").
					WillReturnRows(rows)
			},
			want: User{
				ID:           "u-1",
				Username:     "alice",
				Email:        "alice@example.com",
				FullName:     "Alice",
				PasswordHash: "$2a$04$hash",
				IsActive:     true,
				CreatedAt:    created,
				UpdatedAt:    created,
			},
		},
		{
			name: "absent",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users`).
					WithArgs("alice").
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: ErrUserNotFound,
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users`).
					WithArgs("alice").
					WillReturnError(errors.New("connection refused"))
			},
			errMsg: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			repo := NewRepository(mock)
			got, err := repo.FindUserByUsername(context.Background(), "alice")

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.NotErrorIs(t, err, ErrUserNotFound)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestRepository_InsertUser(t *testing.T) {
	created := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	input := NewUser{
		Username:     "alice",
		Email:        "alice@example.com",
		FullName:     "Alice",
		PasswordHash: "$2a$04$hash",
		IsActive:     true,
	}

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		errMsg    string
	}{
		{
			name: "inserted",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(userColumns).
					AddRow("u-1", "alice", "alice@example.com", "Alice", "$2a$04$hash", true, created, created)
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs(pgxmock.AnyArg(), "alice", "alice@example.com", "Alice", "$2a$04$hash", true, pgxmock.AnyArg()).
					WillReturnRows(rows)
			},
		},
		{
			name: "duplicate username",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs(pgxmock.AnyArg(), "alice", "alice@example.com", "Alice", "$2a$04$hash", true, pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: usernameConstraint})
			},
			wantErr: ErrUsernameTaken,
		},
		{
			name: "other constraint",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs(pgxmock.AnyArg(), "alice", "alice@example.com", "Alice", "$2a$04$hash", true, pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_pkey"})
			},
			errMsg: "insert user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			repo := NewRepository(mock)
			got, err := repo.InsertUser(context.Background(), input)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.NotErrorIs(t, err, ErrUsernameTaken)
			default:
				require.NoError(t, err)
				assert.Equal(t, "u-1", got.ID)
				assert.Equal(t, "alice", got.Username)
				assert.Equal(t, created, got.CreatedAt)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}
