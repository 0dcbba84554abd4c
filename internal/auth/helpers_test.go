package auth

import (
	"context"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"skillswap/internal/observability"
)

const testSecret = "test-signing-secret"

// memoryStore mimics the unique username index of the users table.
type memoryStore struct {
	mu      sync.Mutex
	byName  map[string]User
	nextID  int
	findErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{byName: make(map[string]User)}
}

func (m *memoryStore) FindUserByUsername(_ context.Context, username string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.findErr != nil {
		return User{}, m.findErr
	}
	user, ok := m.byName[username]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (m *memoryStore) InsertUser(_ context.Context, input NewUser) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byName[input.Username]; exists {
		return User{}, ErrUsernameTaken
	}

	m.nextID++
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	user := User{
		ID:           "user-" + strconv.Itoa(m.nextID),
		Username:     input.Username,
		Email:        input.Email,
		FullName:     input.FullName,
		PasswordHash: input.PasswordHash,
		IsActive:     input.IsActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.byName[user.Username] = user
	return user, nil
}

func (m *memoryStore) put(user User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byName[user.Username] = user
}

// testClock is a settable time source shared by issuing and verifying.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(d time.Duration) {
	c.Set(c.Now().Add(d))
}

func newTestTokens(t *testing.T, clock *testClock) *TokenService {
	t.Helper()
	tokens, err := NewTokenService(TokenConfig{
		Secret:     testSecret,
		Algorithm:  "HS256",
		AccessTTL:  900 * time.Second,
		RefreshTTL: 24 * time.Hour,
	})
	require.NoError(t, err)
	if clock != nil {
		tokens.WithClock(clock.Now)
	}
	return tokens
}

func newTestHasher(t *testing.T) *PasswordHasher {
	t.Helper()
	hasher, err := NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return hasher
}

func newTestLogger() *observability.Logger {
	return observability.NewLoggerTo(io.Discard)
}

func newTestService(t *testing.T, store UserStore, clock *testClock) *Service {
	t.Helper()
	return NewService(store, newTestHasher(t), newTestTokens(t, clock), newTestLogger())
}

func sampleIdentity() Identity {
	return Identity{
		UserID:    "0190f1a2-0000-7000-8000-000000000001",
		Username:  "alice",
		Email:     "alice@example.com",
		FullName:  "Alice Liddell",
		IsActive:  true,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}
