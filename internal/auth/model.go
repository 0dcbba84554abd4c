package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type User struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity returns every user field except the credential.
func (u User) Identity() Identity {
	return Identity{
		UserID:    u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type NewUser struct {
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	IsActive     bool
}

// Identity is the public part of a user record. It is what tokens carry and
// what responses show.
type Identity struct {
	UserID    string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

type Claims struct {
	Identity
	Kind Kind `json:"kind"`
	jwt.RegisteredClaims
}

type Session struct {
	AccessToken  string
	RefreshToken string
}

type RegisterInput struct {
	Username string
	Email    string
	FullName string
	Password string
	IsActive bool
}
