// Copyright (c) 2026 Nimbus Labs. All rights reserved.
// Author: dev@nimbuslabs.io

package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nimbuslabs/nimbus/internal/platform/apperr"
	"github.com/nimbuslabs/nimbus/internal/platform/sec"
	"github.com/nimbuslabs/nimbus/internal/users/auth"
	"github.com/nimbuslabs/nimbus/pkg/pagination"
)

// # Service Layer

// Service orchestrates business logic for user account management.
//
// It ensures that profile updates and account removal follow established
// business constraints, including session cleanup on deletion.
type Service struct {
	accountRepository AccountRepository
	sessionRevoker    SessionRevoker
	logger            *slog.Logger
}

// NewService constructs a new [Service] with its dependencies.
func NewService(accountRepo AccountRepository, revoker SessionRevoker, logger *slog.Logger) *Service {
	return &Service{
		accountRepository: accountRepo,
		sessionRevoker:    revoker,
		logger:            logger,
	}
}

// # Profile Management

/*
GetProfile retrieves the full private identity of a user.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *auth.User: The hydrated user profile
  - error: Not found or execution failures
*/
func (service *Service) GetProfile(context context.Context, userID string) (*auth.User, error) {
	user, err := service.accountRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

/*
List returns a page of registered accounts.

Parameters:
  - context: context.Context
  - params: pagination.Params

Returns:
  - []*auth.User: Page of accounts
  - pagination.Meta: Metadata for the response envelope
  - error: Storage failures
*/
func (service *Service) List(context context.Context, params pagination.Params) ([]*auth.User, pagination.Meta, error) {
	users, total, err := service.accountRepository.List(context, params)
	if err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("account_service_list_failed: %w", err)
	}

	return users, pagination.NewMeta(params.Page, params.Limit, total), nil
}

// UpdateProfileInput defines the mutable subset of user profile fields.
type UpdateProfileInput struct {
	Nickname  *string
	AvatarURL *string
	Bio       *string
}

/*
UpdateProfile applies a partial set of changes to a user's account metadata.

Description: Fetches the existing user state, overrides provided fields, and
synchronizes the change to persistent storage.

Parameters:
  - context: context.Context
  - userID: string
  - input: UpdateProfileInput

Returns:
  - *auth.User: The updated user profile
  - error: Update or storage failures
*/
func (service *Service) UpdateProfile(context context.Context, userID string, input UpdateProfileInput) (*auth.User, error) {

	user, err := service.accountRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}

	// Apply delta updates
	if input.Nickname != nil {
		user.Nickname = *input.Nickname
	}

	if input.AvatarURL != nil {
		user.AvatarURL = *input.AvatarURL
	}

	if input.Bio != nil {
		user.Bio = *input.Bio
	}

	// Persist changes
	if err := service.accountRepository.Update(context, user); err != nil {
		return nil, err
	}

	service.logger.Info("user_profile_updated", slog.String("user_id", userID))

	return user, nil
}

/*
ChangePassword rotates a user's credential after re-verifying the current one.

Description: Requires the current password as proof of possession, stores a
fresh bcrypt hash, and then revokes every live session so stolen tokens die
with the old credential. The caller must log in again.

Parameters:
  - context: context.Context
  - userID: string
  - currentPassword: string
  - newPassword: string

Returns:
  - error: apperr.AuthFailed on a wrong current password, or storage failures
*/
func (service *Service) ChangePassword(context context.Context, userID string, currentPassword, newPassword string) error {

	user, err := service.accountRepository.FindByID(context, userID)
	if err != nil {
		return err
	}

	if !sec.CheckPasswordHash(currentPassword, user.PasswordHash) {
		return apperr.AuthFailed()
	}

	passwordHash, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("account_service_password_hash_failed: %w", err)
	}

	if err := service.accountRepository.UpdatePasswordHash(context, userID, passwordHash); err != nil {
		return err
	}

	// A credential rotation invalidates every outstanding session. Best-effort:
	// the new hash is already committed, so a failed revocation only delays the
	// forced sign-out until token expiry.
	if err := service.sessionRevoker.Logout(context, userID); err != nil {
		service.logger.Warn("password_change_session_revoke_failed",
			slog.String("user_id", userID), slog.String("error", err.Error()))
	}

	service.logger.Info("user_password_changed", slog.String("user_id", userID))

	return nil
}

/*
DeleteAccount performs an idempotent soft-deletion of a user account.

Description: Flags the account as deleted and immediately terminates every
live session to force a global sign-out.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Execution failures
*/
func (service *Service) DeleteAccount(context context.Context, userID string) error {

	if err := service.accountRepository.SoftDelete(context, userID); err != nil {
		return err
	}

	// Force global revocation of sessions for the deleted account. Best-effort:
	// the account row is already gone, so refresh and the auth gate reject the
	// user regardless.
	if err := service.sessionRevoker.Logout(context, userID); err != nil {
		service.logger.Warn("account_delete_session_revoke_failed",
			slog.String("user_id", userID), slog.String("error", err.Error()))
	}

	service.logger.Warn("user_account_deleted", slog.String("user_id", userID))

	return nil
}
