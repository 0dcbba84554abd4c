package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerAlice(t *testing.T, svc *Service) (User, Session) {
	t.Helper()
	user, session, err := svc.Register(context.Background(), RegisterInput{
		Username: "Alice",
		Email:    "alice@example.com",
		FullName: "Alice Liddell",
		Password: "pw12345",
		IsActive: true,
	})
	require.NoError(t, err)
	return user, session
}

func TestService_RegisterStoresHashNotPlaintext(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(t, store, newTestClock())

	user, session := registerAlice(t, svc)

	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, "pw12345", user.PasswordHash)
	assert.NotContains(t, user.PasswordHash, "pw12345")

	stored, err := store.FindUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	ok, err := svc.hasher.Verify("pw12345", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	access, err := svc.tokens.VerifyKind(session.AccessToken, KindAccess)
	require.NoError(t, err)
	assert.Equal(t, user.Identity(), access.Identity)

	refresh, err := svc.tokens.VerifyKind(session.RefreshToken, KindRefresh)
	require.NoError(t, err)
	assert.Equal(t, user.ID, refresh.UserID)
}

func TestService_RegisterDuplicate(t *testing.T) {
	svc := newTestService(t, newMemoryStore(), newTestClock())
	registerAlice(t, svc)

	_, _, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "other@example.com",
		FullName: "Other",
		Password: "different",
	})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestService_ConcurrentRegistrationsOfSameName(t *testing.T) {
	svc := newTestService(t, newMemoryStore(), newTestClock())

	const attempts = 8
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		okays int
		taken int
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, _, err := svc.Register(context.Background(), RegisterInput{
				Username: "alice",
				Email:    "alice@example.com",
				FullName: "Alice",
				Password: "pw12345",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				okays++
			case errors.Is(err, ErrUsernameTaken):
				taken++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, okays)
	assert.Equal(t, attempts-1, taken)
}

func TestService_Login(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(t, store, newTestClock())
	alice, _ := registerAlice(t, svc)

	store.put(User{ID: "corrupt", Username: "mallory", PasswordHash: "not-a-bcrypt-hash"})

	longest := strings.Repeat("a", MaxPasswordBytes)
	bob, _, err := svc.Register(context.Background(), RegisterInput{
		Username: "bob",
		Email:    "bob@example.com",
		FullName: "Bob",
		Password: longest,
		IsActive: true,
	})
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		password string
		wantID   string
		wantErr  error
	}{
		{name: "correct", username: "alice", password: "pw12345", wantID: alice.ID},
		{name: "username is case-insensitive", username: "  ALICE ", password: "pw12345", wantID: alice.ID},
		{name: "wrong password", username: "alice", password: "pw123456", wantErr: ErrInvalidCredentials},
		{name: "unknown user", username: "carol", password: "pw12345", wantErr: ErrInvalidCredentials},
		{name: "empty password", username: "alice", password: "", wantErr: ErrInvalidCredentials},
		{name: "corrupt credential", username: "mallory", password: "whatever", wantErr: ErrInvalidCredentials},
		{name: "longest password", username: "bob", password: longest, wantID: bob.ID},
		{name: "longest password plus suffix", username: "bob", password: longest + "EXTRA", wantErr: ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := svc.Login(context.Background(), tt.username, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, session.AccessToken)
				return
			}

			require.NoError(t, err)
			claims, err := svc.tokens.VerifyKind(session.AccessToken, KindAccess)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, claims.UserID)
		})
	}
}

func TestService_LoginStoreFailureIsNotInvalidCredentials(t *testing.T) {
	store := newMemoryStore()
	store.findErr = errors.New("connection reset")
	svc := newTestService(t, store, newTestClock())

	_, err := svc.Login(context.Background(), "alice", "pw12345")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_Refresh(t *testing.T) {
	clock := newTestClock()
	svc := newTestService(t, newMemoryStore(), clock)
	user, session := registerAlice(t, svc)

	clock.Advance(20 * time.Minute)

	_, err := svc.tokens.Verify(session.AccessToken)
	require.ErrorIs(t, err, ErrExpiredToken, "access token should have lapsed")

	access, err := svc.Refresh(context.Background(), session.RefreshToken)
	require.NoError(t, err)

	claims, err := svc.tokens.VerifyKind(access, KindAccess)
	require.NoError(t, err)
	assert.Equal(t, user.Identity(), claims.Identity)
	assert.Equal(t, clock.Now().Add(900*time.Second), claims.ExpiresAt.Time.UTC())
}

func TestService_RefreshRejections(t *testing.T) {
	clock := newTestClock()
	svc := newTestService(t, newMemoryStore(), clock)
	_, session := registerAlice(t, svc)

	_, err := svc.Refresh(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrMissingToken)
	assert.NotErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = svc.Refresh(context.Background(), session.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	assert.ErrorIs(t, err, ErrWrongTokenKind)

	_, err = svc.Refresh(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	assert.ErrorIs(t, err, ErrMalformedToken)

	clock.Advance(24*time.Hour + time.Second)
	_, err = svc.Refresh(context.Background(), session.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}
