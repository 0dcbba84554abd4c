package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 24 * time.Hour
)

var (
	ErrMalformedToken = errors.New("token is malformed or forged")
	ErrExpiredToken   = errors.New("token has expired")
	ErrWrongTokenKind = errors.New("token kind not accepted here")
)

// Verification results, as reported to the observer.
const (
	ResultOK        = "ok"
	ResultExpired   = "expired"
	ResultMalformed = "malformed"
	ResultWrongKind = "wrong_kind"
)

type TokenConfig struct {
	Secret     string
	Algorithm  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenService signs and verifies stateless session tokens. It is built once
// at startup and is safe for concurrent use.
type TokenService struct {
	method     jwt.SigningMethod
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	observe    func(result string)
}

// NewTokenService accepts only HMAC algorithms (HS256, HS384, HS512).
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token signing secret is empty")
	}

	alg := strings.ToUpper(strings.TrimSpace(cfg.Algorithm))
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported token signing algorithm %q", cfg.Algorithm)
	}

	s := &TokenService{
		method:     method,
		secret:     []byte(cfg.Secret),
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
		observe:    func(string) {},
	}
	if cfg.AccessTTL > 0 {
		s.accessTTL = cfg.AccessTTL
	}
	if cfg.RefreshTTL > 0 {
		s.refreshTTL = cfg.RefreshTTL
	}

	return s, nil
}

// WithClock replaces the time source for issuing and verifying.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// WithObserver registers fn to receive one result per verification.
func (s *TokenService) WithObserver(fn func(result string)) *TokenService {
	if fn != nil {
		s.observe = fn
	}
	return s
}

func (s *TokenService) TTL(kind Kind) time.Duration {
	if kind == KindRefresh {
		return s.refreshTTL
	}
	return s.accessTTL
}

func (s *TokenService) Issue(identity Identity, kind Kind) (string, error) {
	if kind != KindAccess && kind != KindRefresh {
		return "", fmt.Errorf("unknown token kind %q", kind)
	}

	now := s.now().UTC()
	claims := Claims{
		Identity: identity,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL(kind))),
		},
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}

	return signed, nil
}

// Verify checks signature, algorithm and expiry. A token is expired from the
// instant in its exp claim onward.
func (s *TokenService) Verify(token string) (Claims, error) {
	claims, result, err := s.verify(token)
	s.observe(result)
	return claims, err
}

// VerifyKind is Verify plus a check that the token was issued as kind.
func (s *TokenService) VerifyKind(token string, kind Kind) (Claims, error) {
	claims, result, err := s.verify(token)
	if err == nil && claims.Kind != kind {
		claims, result, err = Claims{}, ResultWrongKind, ErrWrongTokenKind
	}
	s.observe(result)
	return claims, err
}

func (s *TokenService) verify(token string) (Claims, string, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ResultExpired, ErrExpiredToken
		}
		return Claims{}, ResultMalformed, ErrMalformedToken
	}
	if !parsed.Valid {
		return Claims{}, ResultMalformed, ErrMalformedToken
	}
	if claims.Kind != KindAccess && claims.Kind != KindRefresh {
		return Claims{}, ResultMalformed, ErrMalformedToken
	}

	return claims, ResultOK, nil
}

// IsTokenError reports whether err is any of the token rejection errors.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrMalformedToken) || errors.Is(err, ErrExpiredToken) || errors.Is(err, ErrWrongTokenKind)
}
