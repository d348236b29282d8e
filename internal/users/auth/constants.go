// Copyright (c) 2026 Nimbus Labs. All rights reserved.
// Author: dev@nimbuslabs.io

package auth

// # Session Tuning

const (
	// SessionSuffixBytes is the random entropy appended to every session ID.
	// 8 bytes yields a 16-character hex suffix, enough to avoid collisions
	// for two logins landing on the same millisecond.
	SessionSuffixBytes = 8

	// MinPasswordLength is the minimum accepted password size at registration.
	MinPasswordLength = 8

	// MaxUsernameLength bounds login names to keep index keys compact.
	MaxUsernameLength = 32
)
