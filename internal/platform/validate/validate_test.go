// Copyright (c) 2026 Nimbus Labs. All rights reserved.
// Author: dev@nimbuslabs.io

package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbuslabs/nimbus/internal/platform/apperr"
)

func TestValidator_Chain(t *testing.T) {
	testCases := []struct {
		name       string
		build      func(v *Validator) *Validator
		wantErr    bool
		wantFields []string
	}{
		{
			name: "All rules pass",
			build: func(v *Validator) *Validator {
				return v.
					Required("username", "alice").
					MinLen("username", "alice", 3).
					MaxLen("username", "alice", 32).
					Username("username", "alice").
					Email("email", "alice@example.com")
			},
			wantErr: false,
		},
		{
			name: "Required catches blank and whitespace",
			build: func(v *Validator) *Validator {
				return v.Required("username", "   ").Required("password", "")
			},
			wantErr:    true,
			wantFields: []string{"username", "password"},
		},
		{
			name: "Length boundaries are inclusive",
			build: func(v *Validator) *Validator {
				return v.MinLen("a", "abc", 3).MaxLen("b", "abc", 3)
			},
			wantErr: false,
		},
		{
			name: "Unicode counted by runes not bytes",
			build: func(v *Validator) *Validator {
				return v.MaxLen("nickname", "héllo", 5)
			},
			wantErr: false,
		},
		{
			name: "Username rejects spaces and symbols",
			build: func(v *Validator) *Validator {
				return v.Username("username", "bad name!")
			},
			wantErr:    true,
			wantFields: []string{"username"},
		},
		{
			name: "Email rejects malformed addresses",
			build: func(v *Validator) *Validator {
				return v.Email("email", "not-an-email")
			},
			wantErr:    true,
			wantFields: []string{"email"},
		},
		{
			name: "UUID accepts canonical form",
			build: func(v *Validator) *Validator {
				return v.UUID("id", "0190a3b2-7c1d-7e2f-8a3b-4c5d6e7f8a9b")
			},
			wantErr: false,
		},
		{
			name: "UUID rejects truncated values",
			build: func(v *Validator) *Validator {
				return v.UUID("id", "0190a3b2-7c1d")
			},
			wantErr:    true,
			wantFields: []string{"id"},
		},
		{
			name: "OneOf enforces the allowed set",
			build: func(v *Validator) *Validator {
				return v.OneOf("role", "superuser", "admin", "user")
			},
			wantErr:    true,
			wantFields: []string{"role"},
		},
		{
			name: "Custom records failures with the given message",
			build: func(v *Validator) *Validator {
				return v.Custom("size", true, "File exceeds the size limit")
			},
			wantErr:    true,
			wantFields: []string{"size"},
		},
		{
			name: "Multiple failures accumulate",
			build: func(v *Validator) *Validator {
				return v.
					Required("username", "").
					Email("email", "nope").
					MinLen("password", "ab", 8)
			},
			wantErr:    true,
			wantFields: []string{"username", "email", "password"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := tc.build(&Validator{})
			err := v.Err()

			if !tc.wantErr {
				assert.NoError(t, err)
				assert.False(t, v.HasErrors())
				return
			}

			require.Error(t, err)
			assert.True(t, v.HasErrors())

			var appError *apperr.AppError
			require.ErrorAs(t, err, &appError)
			assert.Equal(t, "VALIDATION_ERROR", appError.Code)

			var gotFields []string
			for _, detail := range appError.Details {
				gotFields = append(gotFields, detail.Field)
			}
			assert.ElementsMatch(t, tc.wantFields, gotFields)
		})
	}
}

func TestRequiredError(t *testing.T) {
	err := RequiredError("avatar", "Avatar file is required")

	assert.Equal(t, "VALIDATION_ERROR", err.Code)
	require.Len(t, err.Details, 1)
	assert.Equal(t, "avatar", err.Details[0].Field)
	assert.Equal(t, "Avatar file is required", err.Details[0].Message)
}
