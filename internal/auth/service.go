package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/getsentry/sentry-go"

	"skillswap/internal/observability"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrMissingToken        = errors.New("missing token")
)

// UserStore is the persistence the service needs. *Repository implements it.
type UserStore interface {
	FindUserByUsername(ctx context.Context, username string) (User, error)
	InsertUser(ctx context.Context, input NewUser) (User, error)
}

type Service struct {
	users  UserStore
	hasher *PasswordHasher
	tokens *TokenService
	logger *observability.Logger
}

func NewService(users UserStore, hasher *PasswordHasher, tokens *TokenService, logger *observability.Logger) *Service {
	return &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
	}
}

func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// NormalizeUsername is applied on both registration and login.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (User, Session, error) {
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return User{}, Session{}, err
	}

	user, err := s.users.InsertUser(ctx, NewUser{
		Username:     NormalizeUsername(input.Username),
		Email:        strings.TrimSpace(input.Email),
		FullName:     strings.TrimSpace(input.FullName),
		PasswordHash: hash,
		IsActive:     input.IsActive,
	})
	if err != nil {
		return User{}, Session{}, err
	}

	session, err := s.issueSession(user.Identity())
	if err != nil {
		return User{}, Session{}, err
	}

	s.logger.Info("user_registered", map[string]any{"user_id": user.ID})
	return user, session, nil
}

// Login answers ErrInvalidCredentials for an unknown user, a wrong password
// and an unreadable stored credential alike.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	username = NormalizeUsername(username)
	if username == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}

	user, err := s.users.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.hasher.Equalize(password)
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.logger.Error("corrupt_credential", map[string]any{"user_id": user.ID, "error": err.Error()})
		sentry.CaptureException(fmt.Errorf("user %s: %w", user.ID, err))
		return Session{}, ErrInvalidCredentials
	}
	if !ok {
		return Session{}, ErrInvalidCredentials
	}

	return s.issueSession(user.Identity())
}

// Refresh mints a new access token from a valid refresh token. The refresh
// token itself is not rotated.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return "", ErrMissingToken
	}

	claims, err := s.tokens.VerifyKind(refreshToken, KindRefresh)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRefreshToken, err)
	}

	access, err := s.tokens.Issue(claims.Identity, KindAccess)
	if err != nil {
		return "", err
	}

	return access, nil
}

func (s *Service) issueSession(identity Identity) (Session, error) {
	access, err := s.tokens.Issue(identity, KindAccess)
	if err != nil {
		return Session{}, err
	}
	refresh, err := s.tokens.Issue(identity, KindRefresh)
	if err != nil {
		return Session{}, err
	}

	return Session{AccessToken: access, RefreshToken: refresh}, nil
}
