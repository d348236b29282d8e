// Copyright (c) 2026 Nimbus Labs. All rights reserved.
// Author: dev@nimbuslabs.io

package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbuslabs/nimbus/internal/platform/apperr"
	"github.com/nimbuslabs/nimbus/internal/platform/sec"
)

// # Fakes

type fakeUserRepo struct {
	byID       map[string]*User
	byUsername map[string]*User
	byEmail    map[string]*User
	metadataErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:       map[string]*User{},
		byUsername: map[string]*User{},
		byEmail:    map[string]*User{},
	}
}

func (f *fakeUserRepo) add(user *User) {
	f.byID[user.ID] = user
	f.byUsername[user.Username] = user
	f.byEmail[user.Email] = user
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*User, error) {
	if user, ok := f.byID[id]; ok {
		return user, nil
	}
	return nil, apperr.NotFound("User")
}

func (f *fakeUserRepo) FindByUsername(_ context.Context, username string) (*User, error) {
	if user, ok := f.byUsername[username]; ok {
		return user, nil
	}
	return nil, apperr.NotFound("User")
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	if user, ok := f.byEmail[email]; ok {
		return user, nil
	}
	return nil, apperr.NotFound("User")
}

func (f *fakeUserRepo) Create(_ context.Context, user *User) error {
	f.add(user)
	return nil
}

func (f *fakeUserRepo) UpdateLoginMetadata(_ context.Context, userID, ip string, at time.Time) error {
	if f.metadataErr != nil {
		return f.metadataErr
	}
	if user, ok := f.byID[userID]; ok {
		user.LastLoginAt = &at
		user.LastLoginIP = ip
	}
	return nil
}

func (f *fakeUserRepo) SetOnline(_ context.Context, userID string, online bool) error {
	if user, ok := f.byID[userID]; ok {
		user.IsOnline = online
	}
	return nil
}

type sessionPair struct {
	access  string
	refresh string
}

type fakeSessionStore struct {
	sessions map[string]sessionPair
	index    map[string][]string

	putErr      error
	indexGetErr error
	indexSetErr error
	clearErr    error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions: map[string]sessionPair{},
		index:    map[string][]string{},
	}
}

func (f *fakeSessionStore) PutSession(_ context.Context, sessionID, accessToken, refreshToken string, _, _ time.Duration) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.sessions[sessionID] = sessionPair{access: accessToken, refresh: refreshToken}
	return nil
}

func (f *fakeSessionStore) GetAccessToken(_ context.Context, sessionID string) (string, bool, error) {
	pair, ok := f.sessions[sessionID]
	if !ok {
		return "", false, nil
	}
	return pair.access, true, nil
}

func (f *fakeSessionStore) GetRefreshToken(_ context.Context, sessionID string) (string, bool, error) {
	pair, ok := f.sessions[sessionID]
	if !ok {
		return "", false, nil
	}
	return pair.refresh, true, nil
}

func (f *fakeSessionStore) DeleteSession(_ context.Context, sessionID string) error {
	delete(f.sessions, sessionID)
	return nil
}

func (f *fakeSessionStore) GetActiveIndex(_ context.Context, userID string) ([]string, error) {
	if f.indexGetErr != nil {
		return nil, f.indexGetErr
	}
	return f.index[userID], nil
}

func (f *fakeSessionStore) SetActiveIndex(_ context.Context, userID string, sessionIDs []string, _ time.Duration) error {
	if f.indexSetErr != nil {
		return f.indexSetErr
	}
	f.index[userID] = sessionIDs
	return nil
}

func (f *fakeSessionStore) ClearActiveIndex(_ context.Context, userID string) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	delete(f.index, userID)
	return nil
}

// # Fixtures

func newServiceFixture(t *testing.T) (*Service, *fakeUserRepo, *fakeSessionStore) {
	t.Helper()

	codec, err := sec.NewTokenCodec(sec.TokenCodecConfig{
		AccessSecret:  "access-secret-for-service-tests",
		RefreshSecret: "refresh-secret-for-service-tests",
		Algorithm:     "HS256",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		Issuer:        "nimbuslabs.io",
	})
	require.NoError(t, err)

	users := newFakeUserRepo()
	store := newFakeSessionStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewService(users, store, codec, logger), users, store
}

func seedUser(t *testing.T, users *fakeUserRepo, username, password string) *User {
	t.Helper()

	hash, err := sec.HashPassword(password)
	require.NoError(t, err)

	user := &User{
		ID:           "user-" + username,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Role:         sec.RoleUser,
		IsActive:     true,
	}
	users.add(user)
	return user
}

func assertAppCode(t *testing.T, err error, code string) {
	t.Helper()
	var appError *apperr.AppError
	require.ErrorAs(t, err, &appError)
	assert.Equal(t, code, appError.Code)
}

// # Registration

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates an account with hashed password", func(t *testing.T) {
		service, users, _ := newServiceFixture(t)

		user, err := service.Register(ctx, RegisterInput{
			Username: "alice", Email: "alice@example.com", Password: "s3cret-pass", Nickname: "Alice",
		})
		require.NoError(t, err)

		assert.NotEmpty(t, user.ID)
		assert.True(t, user.IsActive)
		assert.Equal(t, sec.RoleUser, user.Role)
		assert.NotEqual(t, "s3cret-pass", user.PasswordHash)
		assert.True(t, sec.CheckPasswordHash("s3cret-pass", user.PasswordHash))
		assert.NotNil(t, users.byUsername["alice"])
	})

	t.Run("Rejects duplicate username", func(t *testing.T) {
		service, users, _ := newServiceFixture(t)
		seedUser(t, users, "alice", "password-one")

		_, err := service.Register(ctx, RegisterInput{
			Username: "alice", Email: "other@example.com", Password: "password-two",
		})
		assertAppCode(t, err, "CONFLICT")
	})

	t.Run("Rejects duplicate email", func(t *testing.T) {
		service, users, _ := newServiceFixture(t)
		seedUser(t, users, "alice", "password-one")

		_, err := service.Register(ctx, RegisterInput{
			Username: "alice2", Email: "alice@example.com", Password: "password-two",
		})
		assertAppCode(t, err, "CONFLICT")
	})
}

// # Login

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("Issues a verifiable token pair and mirrors it", func(t *testing.T) {
		service, users, store := newServiceFixture(t)
		user := seedUser(t, users, "alice", "correct-horse")

		session, err := service.Login(ctx, LoginInput{Username: "alice", Password: "correct-horse", IPAddress: "10.0.0.1"})
		require.NoError(t, err)

		assert.NotEmpty(t, session.AccessToken)
		assert.NotEmpty(t, session.RefreshToken)
		assert.Equal(t, time.Hour, session.ExpiresIn)

		// Exactly one live session after login
		require.Len(t, store.index[user.ID], 1)
		sessionID := store.index[user.ID][0]
		assert.Equal(t, session.AccessToken, store.sessions[sessionID].access)
		assert.Equal(t, session.RefreshToken, store.sessions[sessionID].refresh)

		// Login metadata side effects landed
		assert.True(t, user.IsOnline)
		assert.Equal(t, "10.0.0.1", user.LastLoginIP)

		// And the issued token passes the liveness check
		active, err := service.IsAccessTokenActive(ctx, user.ID, session.AccessToken)
		require.NoError(t, err)
		assert.True(t, active)
	})

	t.Run("Unknown user and wrong password fail identically", func(t *testing.T) {
		service, users, _ := newServiceFixture(t)
		seedUser(t, users, "alice", "correct-horse")

		_, errMissing := service.Login(ctx, LoginInput{Username: "nobody", Password: "whatever"})
		_, errWrongPw := service.Login(ctx, LoginInput{Username: "alice", Password: "battery-staple"})

		assertAppCode(t, errMissing, "AUTH_FAILED")
		assertAppCode(t, errWrongPw, "AUTH_FAILED")

		var missingApp, wrongApp *apperr.AppError
		require.ErrorAs(t, errMissing, &missingApp)
		require.ErrorAs(t, errWrongPw, &wrongApp)
		assert.Equal(t, missingApp.Message, wrongApp.Message)
	})

	t.Run("Disabled account cannot log in", func(t *testing.T) {
		service, users, _ := newServiceFixture(t)
		user := seedUser(t, users, "alice", "correct-horse")
		user.IsActive = false

		_, err := service.Login(ctx, LoginInput{Username: "alice", Password: "correct-horse"})
		assertAppCode(t, err, "AUTH_FAILED")
	})

	t.Run("Second login revokes the first session", func(t *testing.T) {
		service, users, store := newServiceFixture(t)
		user := seedUser(t, users, "alice", "correct-horse")

		first, err := service.Login(ctx, LoginInput{Username: "alice", Password: "correct-horse"})
		require.NoError(t, err)

		second, err := service.Login(ctx, LoginInput{Username: "alice", Password: "correct-horse"})
		require.NoError(t, err)

		require.Len(t, store.index[user.ID], 1)

		firstActive, err := service.IsAccessTokenActive(ctx, user.ID, first.AccessToken)
		require.NoError(t, err)
		assert.False(t, firstActive, "previous session must be revoked")

		secondActive, err := service.IsAccessTokenActive(ctx, user.ID, second.AccessToken)
		require.NoError(t, err)
		assert.True(t, secondActive)

		// The rotated-out refresh token is gone too
		_, err = service.Refresh(ctx, first.RefreshToken)
		assertAppCode(t, err, "TOKEN_INVALID")
	})

	t.Run("Metadata write failure does not block login", func(t *testing.T) {
		service, users, _ := newServiceFixture(t)
		seedUser(t, users, "alice", "correct-horse")
		users.metadataErr = errors.New("disk on fire")

		_, err := service.Login(ctx, LoginInput{Username: "alice", Password: "correct-horse"})
		assert.NoError(t, err)
	})

	t.Run("Cache write failure surfaces as CACHE_UNAVAILABLE", func(t *testing.T) {
		service, users, store := newServiceFixture(t)
		seedUser(t, users, "alice", "correct-horse")
		store.putErr = apperr.CacheUnavailable(errors.New("connection refused"))

		_, err := service.Login(ctx, LoginInput{Username: "alice", Password: "correct-horse"})
		assertAppCode(t, err, "CACHE_UNAVAILABLE")
	})
}

// # Refresh Rotation

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("Rotation yields a fresh live pair and kills the old one", func(t *testing.T) {
		service, users, store := newServiceFixture(t)
		user := seedUser(t, users, "alice", "correct-horse")

		original, err := service.Login(ctx, LoginInput{Username: "alice", Password: "correct-horse"})
		require.NoError(t, err)

		rotated, err := service.Refresh(ctx, original.RefreshToken)
		require.NoError(t, err)

		assert.NotEmpty(t, rotated.AccessToken)
		assert.NotEqual(t, original.RefreshToken, rotated.RefreshToken)
		require.Len(t, store.index[user.ID], 1)

		// Old access token no longer live, new one is
		oldActive, err := service.IsAccessTokenActive(ctx, user.ID, original.AccessToken)
		require.NoError(t, err)
		assert.False(t, oldActive)

		newActive, err := service.IsAccessTokenActive(ctx, user.ID, rotated.AccessToken)
		require.NoError(t, err)
		assert.True(t, newActive)
	})

	t.Run("A consumed refresh token cannot be replayed", func(t *testing.T) {
		service, users, _ := newServiceFixture(t)
		seedUser(t, users, "alice", "correct-horse")

		original, err := service.Login(ctx, LoginInput{Username: "alice", Password: "correct-horse"})
		require.NoError(t, err)

		_, err = service.Refresh(ctx, original.RefreshToken)
		require.NoError(t, err)

		_, err = service.Refresh(ctx, original.RefreshToken)
		assertAppCode(t, err, "TOKEN_INVALID")
	})

	t.Run("Garbage token is invalid", func(t *testing.T) {
		service, _, _ := newServiceFixture(t)

		_, err := service.Refresh(ctx, "not.a.jwt")
		assertAppCode(t, err, "TOKEN_INVALID")
	})

	t.Run("Expired token is reported distinctly", func(t *testing.T) {
		service, users, _ := newServiceFixture(t)
		user := seedUser(t, users, "alice", "correct-horse")

		shortCodec, err := sec.NewTokenCodec(sec.TokenCodecConfig{
			AccessSecret:  "access-secret-for-service-tests",
			RefreshSecret: "refresh-secret-for-service-tests",
			Algorithm:     "HS256",
			AccessTTL:     time.Hour,
			RefreshTTL:    time.Nanosecond,
			Issuer:        "nimbuslabs.io",
		})
		require.NoError(t, err)

		expired, err := shortCodec.SignRefreshToken(user.ID)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)

		_, err = service.Refresh(ctx, expired)
		assertAppCode(t, err, "TOKEN_EXPIRED")
	})

	t.Run("Valid signature without a live session is invalid", func(t *testing.T) {
		service, users, store := newServiceFixture(t)
		user := seedUser(t, users, "alice", "correct-horse")

		session, err := service.Login(ctx, LoginInput{Username: "alice", Password: "correct-horse"})
		require.NoError(t, err)

		// Simulate a logout wiping the index while the token is still signed-valid
		delete(store.index, user.ID)

		_, err = service.Refresh(ctx, session.RefreshToken)
		assertAppCode(t, err, "TOKEN_INVALID")
	})

	t.Run("Index unavailability collapses to TOKEN_INVALID", func(t *testing.T) {
		service, users, store := newServiceFixture(t)
		user := seedUser(t, users, "alice", "correct-horse")

		session, err := service.Login(ctx, LoginInput{Username: "alice", Password: "correct-horse"})
		require.NoError(t, err)
		_ = user

		store.indexGetErr = apperr.CacheUnavailable(errors.New("connection refused"))

		_, err = service.Refresh(ctx, session.RefreshToken)
		assertAppCode(t, err, "TOKEN_INVALID")
	})

	t.Run("Deleted user cannot refresh", func(t *testing.T) {
		service, users, _ := newServiceFixture(t)
		user := seedUser(t, users, "alice", "correct-horse")

		session, err := service.Login(ctx, LoginInput{Username: "alice", Password: "correct-horse"})
		require.NoError(t, err)

		delete(users.byID, user.ID)

		_, err = service.Refresh(ctx, session.RefreshToken)
		assertAppCode(t, err, "AUTH_FAILED")
	})
}

// # Logout

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("Invalidates every live token", func(t *testing.T) {
		service, users, store := newServiceFixture(t)
		user := seedUser(t, users, "alice", "correct-horse")

		session, err := service.Login(ctx, LoginInput{Username: "alice", Password: "correct-horse"})
		require.NoError(t, err)

		require.NoError(t, service.Logout(ctx, user.ID))

		assert.Empty(t, store.index[user.ID])
		assert.False(t, user.IsOnline)

		active, err := service.IsAccessTokenActive(ctx, user.ID, session.AccessToken)
		require.NoError(t, err)
		assert.False(t, active)

		_, err = service.Refresh(ctx, session.RefreshToken)
		assertAppCode(t, err, "TOKEN_INVALID")
	})

	t.Run("Logout with no live session is a no-op", func(t *testing.T) {
		service, _, _ := newServiceFixture(t)
		assert.NoError(t, service.Logout(ctx, "user-ghost"))
	})

	t.Run("Logout is idempotent", func(t *testing.T) {
		service, users, _ := newServiceFixture(t)
		user := seedUser(t, users, "alice", "correct-horse")

		_, err := service.Login(ctx, LoginInput{Username: "alice", Password: "correct-horse"})
		require.NoError(t, err)

		assert.NoError(t, service.Logout(ctx, user.ID))
		assert.NoError(t, service.Logout(ctx, user.ID))
	})

	t.Run("Index unavailability surfaces", func(t *testing.T) {
		service, _, store := newServiceFixture(t)
		store.indexGetErr = apperr.CacheUnavailable(errors.New("connection refused"))

		err := service.Logout(ctx, "user-1")
		assertAppCode(t, err, "CACHE_UNAVAILABLE")
	})
}

// # Liveness

func TestIsAccessTokenActive(t *testing.T) {
	ctx := context.Background()

	t.Run("No index means no live session", func(t *testing.T) {
		service, _, _ := newServiceFixture(t)

		active, err := service.IsAccessTokenActive(ctx, "user-1", "some-token")
		require.NoError(t, err)
		assert.False(t, active)
	})

	t.Run("Requires a byte-identical mirror", func(t *testing.T) {
		service, users, _ := newServiceFixture(t)
		user := seedUser(t, users, "alice", "correct-horse")

		session, err := service.Login(ctx, LoginInput{Username: "alice", Password: "correct-horse"})
		require.NoError(t, err)

		active, err := service.IsAccessTokenActive(ctx, user.ID, session.AccessToken+"x")
		require.NoError(t, err)
		assert.False(t, active)
	})

	t.Run("Cache failure propagates so callers fail closed", func(t *testing.T) {
		service, _, store := newServiceFixture(t)
		store.indexGetErr = apperr.CacheUnavailable(errors.New("connection refused"))

		_, err := service.IsAccessTokenActive(ctx, "user-1", "token")
		assert.Error(t, err)
	})
}
