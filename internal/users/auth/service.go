// Copyright (c) 2026 Nimbus Labs. All rights reserved.
// Author: dev@nimbuslabs.io

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nimbuslabs/nimbus/internal/platform/apperr"
	"github.com/nimbuslabs/nimbus/internal/platform/sec"
	"github.com/nimbuslabs/nimbus/pkg/uuid"
)

// # Contracts & Types

// TokenProvider defines the contract for minting and verifying session tokens.
type TokenProvider interface {
	// SignAccessToken creates a signed access JWT carrying identity claims.
	SignAccessToken(userID, username, role string) (string, error)

	// SignRefreshToken creates a signed refresh JWT carrying only the user ID.
	SignRefreshToken(userID string) (string, error)

	// VerifyRefreshToken checks the signature and expiry of a refresh token.
	VerifyRefreshToken(token string) (*sec.RefreshClaims, error)

	// AccessTokenTTL returns the configured access token lifetime.
	AccessTokenTTL() time.Duration

	// RefreshTokenTTL returns the configured refresh token lifetime.
	RefreshTokenTTL() time.Duration
}

// Service implements the session lifecycle use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, rotation,
// or invalidation logic must be reviewed by the security team.
type Service struct {
	userRepository UserRepository
	sessionStore   SessionStore
	tokenProvider  TokenProvider
	logger         *slog.Logger
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(userRepo UserRepository, sessionStore SessionStore, tokenProv TokenProvider, logger *slog.Logger) *Service {
	return &Service{
		userRepository: userRepo,
		sessionStore:   sessionStore,
		tokenProvider:  tokenProv,
		logger:         logger,
	}
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Nickname string
}

/*
Register validates, hashes, and persists a brand new user account.

Description: Deep-enrollment of a new member, handling password hashing and
initial account state.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *User: Created entity
  - err: Conflict (if identity exists) or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*User, error) {

	// Verify username uniqueness. Return a client-safe Conflict err.
	_, err := service.userRepository.FindByUsername(context, input.Username)
	if err == nil {
		return nil, apperr.Conflict("Username is already taken")
	}

	// Verify email uniqueness. Return a client-safe Conflict err.
	_, err = service.userRepository.FindByEmail(context, input.Email)
	if err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}

	// Prevent storing plain-text passwords. Default cost is used for balance
	// between security and CPU utilization during registration spikes.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// Construct the new User entity. Time-sortable ID to prevent PG index fragmentation.
	user := &User{
		ID:           uuid.New(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		Nickname:     input.Nickname,
		Role:         sec.RoleUser,
		IsActive:     true,
	}

	// Persist the user to the database. Unique constraints are the final
	// arbiter against racing registrations.
	if err := service.userRepository.Create(context, user); err != nil {
		return nil, err
	}

	return user, nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Username  string
	Password  string
	IPAddress string
}

// LoginSession represents a successfully established user session.
type LoginSession struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	User         *User
}

/*
Login validates user credentials and establishes the user's single live session.

Description: Verifies identity with constant-time password comparison, revokes
every previously live session, and mirrors a fresh token pair into the cache.
After Login exactly one session is live for the user.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginSession: Transport-ready session credentials
  - err: AuthFailed, CacheUnavailable, or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginSession, error) {

	// Look up the account. Generic message to prevent user enumeration.
	user, err := service.userRepository.FindByUsername(context, input.Username)
	if err != nil {
		return nil, apperr.AuthFailed()
	}

	// Verify password hash using constant-time comparison in bcrypt to prevent timing attacks
	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, apperr.AuthFailed()
	}

	// Disabled accounts fail identically to wrong credentials
	if !user.IsActive {
		return nil, apperr.AuthFailed()
	}

	// Record login metadata as a best-effort side effect. A metadata write
	// failure must never block an otherwise valid login.
	now := time.Now()
	if err := service.userRepository.UpdateLoginMetadata(context, user.ID, input.IPAddress, now); err != nil {
		service.logger.WarnContext(context, "login_metadata_update_failed",
			slog.String("user_id", user.ID), slog.String("error", err.Error()))
	} else {
		user.LastLoginAt = &now
		user.LastLoginIP = input.IPAddress
	}

	if err := service.userRepository.SetOnline(context, user.ID, true); err != nil {
		service.logger.WarnContext(context, "login_presence_update_failed",
			slog.String("user_id", user.ID), slog.String("error", err.Error()))
	}

	// Single-session policy: tear down every previously live session before
	// minting the new one. Best-effort, since stale mirrors expire on their own
	// and the index rewrite below is what actually revokes them.
	service.revokeAllSessions(context, user.ID)

	// Mint the fresh token pair
	accessToken, err := service.tokenProvider.SignAccessToken(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("auth_service_access_token_failed: %w", err)
	}

	refreshToken, err := service.tokenProvider.SignRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	// Mirror the pair into the cache. A session that cannot be mirrored cannot
	// be verified later, so cache write failures abort the login.
	sessionID, err := newSessionID(user.ID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_session_id_failed: %w", err)
	}

	err = service.sessionStore.PutSession(context, sessionID, accessToken, refreshToken,
		service.tokenProvider.AccessTokenTTL(), service.tokenProvider.RefreshTokenTTL())
	if err != nil {
		return nil, err
	}

	// The index rewrite is the commit point: from here on exactly this session is live.
	err = service.sessionStore.SetActiveIndex(context, user.ID, []string{sessionID},
		service.tokenProvider.RefreshTokenTTL())
	if err != nil {
		return nil, err
	}

	return &LoginSession{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    service.tokenProvider.AccessTokenTTL(),
		User:         user,
	}, nil
}

/*
Logout invalidates every live session of the user.

Description: Deletes all mirrored tokens listed in the active index, clears
the index itself, and drops the presence flag. The operation is idempotent:
logging out with no live session succeeds.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - err: CacheUnavailable if the index cannot be read or cleared
*/
func (service *Service) Logout(context context.Context, userID string) error {

	// Read the live sessionIDs. Index unavailability must surface: returning
	// success while tokens stay live would be a silent security failure.
	sessionIDs, err := service.sessionStore.GetActiveIndex(context, userID)
	if err != nil {
		return err
	}

	// Delete each mirrored pair. Individual failures are tolerated because the
	// index clear below is what revokes them; mirrors expire on their own.
	for _, sessionID := range sessionIDs {
		if err := service.sessionStore.DeleteSession(context, sessionID); err != nil {
			service.logger.WarnContext(context, "logout_session_delete_failed",
				slog.String("user_id", userID), slog.String("session_id", sessionID))
		}
	}

	if err := service.sessionStore.ClearActiveIndex(context, userID); err != nil {
		return err
	}

	// Presence is cosmetic; a failure here never fails the logout
	if err := service.userRepository.SetOnline(context, userID, false); err != nil {
		service.logger.WarnContext(context, "logout_presence_update_failed",
			slog.String("user_id", userID), slog.String("error", err.Error()))
	}

	return nil
}

// # Session Rotation

/*
Refresh implements the guarded refresh token rotation mechanism.

Description: A refresh token is honored only if it is cryptographically valid
AND byte-identical to a mirror referenced by the user's active index. The
matched session is then atomically replaced by a fresh pair, so a rotated-out
refresh token can never be replayed.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - *LoginSession: New session credentials
  - err: TokenExpired, TokenInvalid, or AuthFailed
*/
func (service *Service) Refresh(context context.Context, refreshToken string) (*LoginSession, error) {

	// 1. Cryptographic verification. Expiry stays distinguishable so clients
	// know to re-login instead of retrying.
	claims, err := service.tokenProvider.VerifyRefreshToken(refreshToken)
	if err != nil {
		if errors.Is(err, sec.ErrTokenExpired) {
			return nil, apperr.TokenExpired()
		}
		return nil, apperr.TokenInvalid()
	}

	// 2. The subject must still resolve to a usable account
	user, err := service.userRepository.FindByID(context, claims.UserID)
	if err != nil || !user.IsActive {
		return nil, apperr.AuthFailed()
	}

	// 3. Liveness: find the index entry whose mirrored refresh token is
	// byte-identical to the presented one. A valid signature alone proves
	// nothing about liveness.
	sessionIDs, err := service.sessionStore.GetActiveIndex(context, user.ID)
	if err != nil || len(sessionIDs) == 0 {
		return nil, apperr.TokenInvalid()
	}

	matchedIndex := -1
	for position, sessionID := range sessionIDs {
		stored, exists, err := service.sessionStore.GetRefreshToken(context, sessionID)
		if err != nil || !exists {
			continue
		}
		if stored == refreshToken {
			matchedIndex = position
			break
		}
	}

	if matchedIndex == -1 {
		return nil, apperr.TokenInvalid()
	}

	// 4. Rotation: mint a replacement pair under a fresh sessionID
	accessToken, err := service.tokenProvider.SignAccessToken(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, apperr.TokenInvalid()
	}

	newRefreshToken, err := service.tokenProvider.SignRefreshToken(user.ID)
	if err != nil {
		return nil, apperr.TokenInvalid()
	}

	newSessionID, err := newSessionID(user.ID)
	if err != nil {
		return nil, apperr.TokenInvalid()
	}

	err = service.sessionStore.PutSession(context, newSessionID, accessToken, newRefreshToken,
		service.tokenProvider.AccessTokenTTL(), service.tokenProvider.RefreshTokenTTL())
	if err != nil {
		return nil, apperr.TokenInvalid()
	}

	// 5. Retire the consumed session. Best-effort: the index swap below is
	// what actually revokes it.
	oldSessionID := sessionIDs[matchedIndex]
	if err := service.sessionStore.DeleteSession(context, oldSessionID); err != nil {
		service.logger.WarnContext(context, "refresh_session_delete_failed",
			slog.String("user_id", user.ID), slog.String("session_id", oldSessionID))
	}

	// 6. Swap the consumed sessionID for the new one in place, preserving any
	// neighbors in the index.
	rotated := make([]string, len(sessionIDs))
	copy(rotated, sessionIDs)
	rotated[matchedIndex] = newSessionID

	err = service.sessionStore.SetActiveIndex(context, user.ID, rotated,
		service.tokenProvider.RefreshTokenTTL())
	if err != nil {
		return nil, apperr.TokenInvalid()
	}

	return &LoginSession{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		ExpiresIn:    service.tokenProvider.AccessTokenTTL(),
		User:         user,
	}, nil
}

// # Liveness Checks

/*
IsAccessTokenActive reports whether an access token belongs to a live session.

Description: Scans the user's active index for a mirror byte-identical to the
presented token. Used by the HTTP gate after cryptographic verification.

Parameters:
  - context: context.Context
  - userID: string
  - accessToken: string

Returns:
  - bool: true only when a byte-identical live mirror exists
  - err: Cache connectivity failures (callers fail closed)
*/
func (service *Service) IsAccessTokenActive(context context.Context, userID, accessToken string) (bool, error) {
	sessionIDs, err := service.sessionStore.GetActiveIndex(context, userID)
	if err != nil {
		return false, err
	}

	for _, sessionID := range sessionIDs {
		stored, exists, err := service.sessionStore.GetAccessToken(context, sessionID)
		if err != nil {
			return false, err
		}
		if exists && stored == accessToken {
			return true, nil
		}
	}

	return false, nil
}

// # Internal Helpers

// revokeAllSessions deletes every mirrored pair in the index and clears the
// index itself. Failures are logged and swallowed; callers that need a hard
// guarantee rewrite the index afterwards.
func (service *Service) revokeAllSessions(context context.Context, userID string) {
	sessionIDs, err := service.sessionStore.GetActiveIndex(context, userID)
	if err != nil {
		service.logger.WarnContext(context, "session_revoke_index_read_failed",
			slog.String("user_id", userID), slog.String("error", err.Error()))
		return
	}

	for _, sessionID := range sessionIDs {
		if err := service.sessionStore.DeleteSession(context, sessionID); err != nil {
			service.logger.WarnContext(context, "session_revoke_delete_failed",
				slog.String("user_id", userID), slog.String("session_id", sessionID))
		}
	}

	if err := service.sessionStore.ClearActiveIndex(context, userID); err != nil {
		service.logger.WarnContext(context, "session_revoke_index_clear_failed",
			slog.String("user_id", userID), slog.String("error", err.Error()))
	}
}

// newSessionID builds the composite session identifier: the owning userID, the
// creation timestamp in milliseconds, and a random suffix against collisions.
func newSessionID(userID string) (string, error) {
	suffix, err := sec.GenerateSecureToken(SessionSuffixBytes)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d:%s", userID, time.Now().UnixMilli(), suffix), nil
}
