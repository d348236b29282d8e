// Copyright (c) 2026 Nimbus Labs. All rights reserved.
// Author: dev@nimbuslabs.io

package auth

import (
	"context"
	"time"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByUsername returns the account with the given username.

		Parameters:
		  - context: context.Context
		  - username: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByUsername(context context.Context, username string) (*User, error)

	/*
		FindByEmail returns the account with the given email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		Create persists a brand-new user account to the storage.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		UpdateLoginMetadata records the time and origin of a successful login.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - ip: string
		  - at: time.Time

		Returns:
		  - error: Persistence failures
	*/
	UpdateLoginMetadata(context context.Context, userID, ip string, at time.Time) error

	/*
		SetOnline flips the user's presence flag.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - online: bool

		Returns:
		  - error: Persistence failures
	*/
	SetOnline(context context.Context, userID string, online bool) error
}

// # Session Data Access

// SessionStore defines the contract for the volatile token mirror.
//
// # Model
//
// Every established session is identified by a sessionID and mirrors both
// signed tokens into the cache under independent TTLs. A separate per-user
// index lists the sessionIDs that are still considered live; a token that
// exists in the cache but whose sessionID is absent from the index is dead.
type SessionStore interface {

	/*
		PutSession mirrors both signed tokens for a session.

		Parameters:
		  - context: context.Context
		  - sessionID: string
		  - accessToken: string
		  - refreshToken: string
		  - accessTTL: time.Duration
		  - refreshTTL: time.Duration

		Returns:
		  - error: Cache write failures
	*/
	PutSession(context context.Context, sessionID, accessToken, refreshToken string, accessTTL, refreshTTL time.Duration) error

	/*
		GetAccessToken returns the mirrored access token for a session.

		Parameters:
		  - context: context.Context
		  - sessionID: string

		Returns:
		  - string: Stored token ("" if absent or expired)
		  - bool: Whether the entry exists
		  - error: Cache read failures
	*/
	GetAccessToken(context context.Context, sessionID string) (string, bool, error)

	/*
		GetRefreshToken returns the mirrored refresh token for a session.

		Parameters:
		  - context: context.Context
		  - sessionID: string

		Returns:
		  - string: Stored token ("" if absent or expired)
		  - bool: Whether the entry exists
		  - error: Cache read failures
	*/
	GetRefreshToken(context context.Context, sessionID string) (string, bool, error)

	/*
		DeleteSession removes both mirrored tokens for a session.

		Parameters:
		  - context: context.Context
		  - sessionID: string

		Returns:
		  - error: Cache delete failures
	*/
	DeleteSession(context context.Context, sessionID string) error

	/*
		GetActiveIndex returns the user's list of live sessionIDs.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - []string: Live sessionIDs (empty if none)
		  - error: Cache read failures
	*/
	GetActiveIndex(context context.Context, userID string) ([]string, error)

	/*
		SetActiveIndex replaces the user's live sessionID list.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - sessionIDs: []string
		  - ttl: time.Duration

		Returns:
		  - error: Cache write failures
	*/
	SetActiveIndex(context context.Context, userID string, sessionIDs []string, ttl time.Duration) error

	/*
		ClearActiveIndex removes the user's live sessionID list entirely.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Cache delete failures
	*/
	ClearActiveIndex(context context.Context, userID string) error
}
