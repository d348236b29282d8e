// Copyright (c) 2026 Nimbus Labs. All rights reserved.
// Author: dev@nimbuslabs.io

package ctxutil

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nimbuslabs/nimbus/internal/platform/sec"
)

func TestRequestID(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, GetRequestID(ctx), "empty context yields empty ID")

	ctx = WithRequestID(ctx, "req-123")
	assert.Equal(t, "req-123", GetRequestID(ctx))
}

func TestLogger(t *testing.T) {
	ctx := context.Background()

	// Missing logger falls back to the process default instead of returning nil.
	assert.NotNil(t, GetLogger(ctx))

	custom := slog.Default().With(slog.String("component", "test"))
	ctx = WithLogger(ctx, custom)
	assert.Same(t, custom, GetLogger(ctx))
}

func TestAuthUser(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, GetAuthUser(ctx), "anonymous context yields nil claims")

	claims := &sec.AuthClaims{UserID: "user-1", Username: "alice"}
	ctx = WithAuthUser(ctx, claims)
	assert.Same(t, claims, GetAuthUser(ctx))
}
