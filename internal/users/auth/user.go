// Copyright (c) 2026 Nimbus Labs. All rights reserved.
// Author: dev@nimbuslabs.io

/*
Package auth implements the user identity and session lifecycle layer.

It covers account registration, credential verification, and the full
token lifecycle: paired access/refresh JWTs mirrored into Redis, a
per-user active token index enforcing a single live session, guarded
refresh rotation, and logout invalidation.

# Architecture

This layer is the "Truth" of the identity system. Entities defined here
have no external dependencies and encapsulate all business rules related
to who a user is and which of their tokens are still alive.
*/
package auth

import (
	"time"

	"github.com/nimbuslabs/nimbus/internal/platform/sec"
)

// # Domain Entities

// User represents a registered member of the Nimbus platform.
type User struct {
	ID           string       `json:"id"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Explicitly omitted from JSON for security.
	Nickname     string       `json:"nickname,omitempty"`
	AvatarURL    string       `json:"avatar_url,omitempty"`
	Bio          string       `json:"bio,omitempty"`
	Role         sec.UserRole `json:"role"`
	IsActive     bool         `json:"is_active"`
	IsOnline     bool         `json:"is_online"`
	LastLoginAt  *time.Time   `json:"last_login_at,omitempty"`
	LastLoginIP  string       `json:"last_login_ip,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldUsername     = "username"
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldNickname     = "nickname"
	FieldRefreshToken = "refresh_token"
	FieldAccessToken  = "access_token"
	FieldTokenType    = "token_type"
	FieldExpiresIn    = "expires_in"
	FieldUser         = "user"
	FieldMessage      = "message"
)
