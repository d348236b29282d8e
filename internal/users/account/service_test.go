// Copyright (c) 2026 Nimbus Labs. All rights reserved.
// Author: dev@nimbuslabs.io

package account

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbuslabs/nimbus/internal/platform/apperr"
	"github.com/nimbuslabs/nimbus/internal/platform/sec"
	"github.com/nimbuslabs/nimbus/internal/users/auth"
	"github.com/nimbuslabs/nimbus/pkg/pagination"
)

// # Fakes

type fakeAccountRepo struct {
	byID map[string]*auth.User
}

func (f *fakeAccountRepo) FindByID(_ context.Context, id string) (*auth.User, error) {
	if user, ok := f.byID[id]; ok {
		return user, nil
	}
	return nil, apperr.NotFound("User")
}

func (f *fakeAccountRepo) List(_ context.Context, params pagination.Params) ([]*auth.User, int, error) {
	var users []*auth.User
	for _, user := range f.byID {
		users = append(users, user)
	}
	return users, len(f.byID), nil
}

func (f *fakeAccountRepo) Update(_ context.Context, user *auth.User) error {
	if _, ok := f.byID[user.ID]; !ok {
		return apperr.NotFound("User")
	}
	f.byID[user.ID] = user
	return nil
}

func (f *fakeAccountRepo) UpdatePasswordHash(_ context.Context, id string, passwordHash string) error {
	user, ok := f.byID[id]
	if !ok {
		return apperr.NotFound("User")
	}
	user.PasswordHash = passwordHash
	return nil
}

func (f *fakeAccountRepo) SoftDelete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return apperr.NotFound("User")
	}
	delete(f.byID, id)
	return nil
}

type fakeRevoker struct {
	revoked []string
	err     error
}

func (f *fakeRevoker) Logout(_ context.Context, userID string) error {
	if f.err != nil {
		return f.err
	}
	f.revoked = append(f.revoked, userID)
	return nil
}

func newAccountFixture() (*Service, *fakeAccountRepo, *fakeRevoker) {
	repo := &fakeAccountRepo{byID: map[string]*auth.User{
		"user-1": {ID: "user-1", Username: "alice", Nickname: "Alice"},
		"user-2": {ID: "user-2", Username: "bob"},
	}}
	revoker := &fakeRevoker{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, revoker, logger), repo, revoker
}

// # Tests

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("Applies only the provided deltas", func(t *testing.T) {
		service, repo, _ := newAccountFixture()

		bio := "hello"
		user, err := service.UpdateProfile(ctx, "user-1", UpdateProfileInput{Bio: &bio})
		require.NoError(t, err)

		assert.Equal(t, "hello", user.Bio)
		assert.Equal(t, "Alice", user.Nickname, "untouched fields survive")
		assert.Equal(t, "hello", repo.byID["user-1"].Bio)
	})

	t.Run("Unknown user yields NotFound", func(t *testing.T) {
		service, _, _ := newAccountFixture()

		nickname := "ghost"
		_, err := service.UpdateProfile(ctx, "user-missing", UpdateProfileInput{Nickname: &nickname})

		var appError *apperr.AppError
		require.ErrorAs(t, err, &appError)
		assert.Equal(t, "NOT_FOUND", appError.Code)
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()

	seedHash := func(repo *fakeAccountRepo, userID, password string) {
		hash, err := sec.HashPassword(password)
		if err != nil {
			panic(err)
		}
		repo.byID[userID].PasswordHash = hash
	}

	t.Run("Rotates the hash and revokes every session", func(t *testing.T) {
		service, repo, revoker := newAccountFixture()
		seedHash(repo, "user-1", "old-password")

		require.NoError(t, service.ChangePassword(ctx, "user-1", "old-password", "new-password-1"))

		assert.True(t, sec.CheckPasswordHash("new-password-1", repo.byID["user-1"].PasswordHash))
		assert.False(t, sec.CheckPasswordHash("old-password", repo.byID["user-1"].PasswordHash))
		assert.Equal(t, []string{"user-1"}, revoker.revoked)
	})

	t.Run("Wrong current password is rejected without changes", func(t *testing.T) {
		service, repo, revoker := newAccountFixture()
		seedHash(repo, "user-1", "old-password")

		err := service.ChangePassword(ctx, "user-1", "guess", "new-password-1")

		var appError *apperr.AppError
		require.ErrorAs(t, err, &appError)
		assert.Equal(t, "AUTH_FAILED", appError.Code)
		assert.True(t, sec.CheckPasswordHash("old-password", repo.byID["user-1"].PasswordHash))
		assert.Empty(t, revoker.revoked)
	})

	t.Run("Revocation failure does not undo the rotation", func(t *testing.T) {
		service, repo, revoker := newAccountFixture()
		seedHash(repo, "user-2", "old-password")
		revoker.err = errors.New("cache down")

		require.NoError(t, service.ChangePassword(ctx, "user-2", "old-password", "new-password-2"))
		assert.True(t, sec.CheckPasswordHash("new-password-2", repo.byID["user-2"].PasswordHash))
	})
}

func TestDeleteAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("Removes the account and revokes sessions", func(t *testing.T) {
		service, repo, revoker := newAccountFixture()

		require.NoError(t, service.DeleteAccount(ctx, "user-1"))

		assert.NotContains(t, repo.byID, "user-1")
		assert.Equal(t, []string{"user-1"}, revoker.revoked)
	})

	t.Run("Session revocation failure does not fail the delete", func(t *testing.T) {
		service, repo, revoker := newAccountFixture()
		revoker.err = errors.New("cache down")

		require.NoError(t, service.DeleteAccount(ctx, "user-2"))
		assert.NotContains(t, repo.byID, "user-2")
	})
}

func TestList(t *testing.T) {
	service, _, _ := newAccountFixture()

	users, meta, err := service.List(context.Background(), pagination.Params{Page: 1, Limit: 20})
	require.NoError(t, err)

	assert.Len(t, users, 2)
	assert.Equal(t, 2, meta.Total)
	assert.Equal(t, 1, meta.TotalPages)
}
