// Copyright (c) 2026 Nimbus Labs. All rights reserved.
// Author: dev@nimbuslabs.io

/*
Package account handles user profile management and directory listing.

It lets users view and update their own profile, and gives operators a
paginated directory plus account removal with forced global sign-out.

# Architecture

  - Domain: This package depends on the auth package for the User entity.
  - Security: Account deletion revokes every live session of the target.
*/
package account

import (
	"context"

	"github.com/nimbuslabs/nimbus/internal/users/auth"
	"github.com/nimbuslabs/nimbus/pkg/pagination"
)

// # Repository Contracts

// AccountRepository defines the persistence contract for user accounts.
type AccountRepository interface {
	/*
		FindByID retrieves a user record by their unique ID.

		Parameters:
		  - context: context.Context
		  - id: string (UUID)

		Returns:
		  - *auth.User: Loaded account entity
		  - error: apperr.NotFound or storage failures
	*/
	FindByID(context context.Context, id string) (*auth.User, error)

	/*
		List returns a page of accounts ordered by creation time.

		Parameters:
		  - context: context.Context
		  - params: pagination.Params

		Returns:
		  - []*auth.User: Page of accounts
		  - int: Total account count for pagination metadata
		  - error: Storage failures
	*/
	List(context context.Context, params pagination.Params) ([]*auth.User, int, error)

	/*
		Update modifies the mutable profile fields of an existing user.

		Parameters:
		  - context: context.Context
		  - user: *auth.User (Hydrated entity with changes)

		Returns:
		  - error: Storage or constraint failures
	*/
	Update(context context.Context, user *auth.User) error

	/*
		UpdatePasswordHash replaces the stored credential hash of a user.

		Parameters:
		  - context: context.Context
		  - id: string
		  - passwordHash: string (bcrypt hash, never the plain password)

		Returns:
		  - error: apperr.NotFound or storage failures
	*/
	UpdatePasswordHash(context context.Context, id string, passwordHash string) error

	/*
		SoftDelete flags an account as logically deleted.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: Execution failures
	*/
	SoftDelete(context context.Context, id string) error
}

// SessionRevoker terminates every live session of a user.
// Implemented by the auth service on top of the Redis token index.
type SessionRevoker interface {
	Logout(context context.Context, userID string) error
}

// # Field Identifiers

const (
	FieldNickname        = "nickname"
	FieldAvatarURL       = "avatar_url"
	FieldBio             = "bio"
	FieldUserID          = "userID"
	FieldCurrentPassword = "current_password"
	FieldNewPassword     = "new_password"
)
