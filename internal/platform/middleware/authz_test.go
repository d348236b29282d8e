// Copyright (c) 2026 Nimbus Labs. All rights reserved.
// Author: dev@nimbuslabs.io

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbuslabs/nimbus/internal/platform/ctxutil"
	"github.com/nimbuslabs/nimbus/internal/platform/sec"
)

// fakeSessionChecker is an in-memory stand-in for the Redis-backed session index.
type fakeSessionChecker struct {
	active map[string]bool // key: userID + "|" + token
	err    error
}

func (f *fakeSessionChecker) IsAccessTokenActive(_ context.Context, userID, token string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.active[userID+"|"+token], nil
}

func newTestCodec(t *testing.T, accessTTL time.Duration) *sec.TokenCodec {
	t.Helper()
	codec, err := sec.NewTokenCodec(sec.TokenCodecConfig{
		AccessSecret:  "test-access-secret-test-access-secret",
		RefreshSecret: "test-refresh-secret-test-refresh-secret",
		Algorithm:     "HS256",
		AccessTTL:     accessTTL,
		RefreshTTL:    time.Hour,
		Issuer:        "nimbuslabs.io",
	})
	require.NoError(t, err)
	return codec
}

// echoUserHandler records which identity (if any) reached the handler.
func echoUserHandler(gotClaims **sec.AuthClaims, called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		*gotClaims = ctxutil.GetAuthUser(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate(t *testing.T) {
	codec := newTestCodec(t, time.Hour)

	validToken, err := codec.SignAccessToken("user-1", "alice", string(sec.RoleUser))
	require.NoError(t, err)

	expiredCodec := newTestCodec(t, time.Nanosecond)
	expiredToken, err := expiredCodec.SignAccessToken("user-1", "alice", string(sec.RoleUser))
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	testCases := []struct {
		name           string
		authHeader     string
		sessions       *fakeSessionChecker
		verifier       TokenVerifier
		expectedStatus int
		expectedCode   string
		expectClaims   bool
	}{
		{
			name:           "No header passes through anonymously",
			authHeader:     "",
			sessions:       &fakeSessionChecker{active: map[string]bool{}},
			verifier:       codec,
			expectedStatus: http.StatusOK,
			expectClaims:   false,
		},
		{
			name:           "Valid token with live session is authenticated",
			authHeader:     "Bearer " + validToken,
			sessions:       &fakeSessionChecker{active: map[string]bool{"user-1|" + validToken: true}},
			verifier:       codec,
			expectedStatus: http.StatusOK,
			expectClaims:   true,
		},
		{
			name:           "Malformed scheme is rejected",
			authHeader:     "Basic " + validToken,
			sessions:       &fakeSessionChecker{active: map[string]bool{}},
			verifier:       codec,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "TOKEN_INVALID",
		},
		{
			name:           "Garbage token is rejected",
			authHeader:     "Bearer not.a.jwt",
			sessions:       &fakeSessionChecker{active: map[string]bool{}},
			verifier:       codec,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "TOKEN_INVALID",
		},
		{
			name:           "Expired token reports TOKEN_EXPIRED",
			authHeader:     "Bearer " + expiredToken,
			sessions:       &fakeSessionChecker{active: map[string]bool{}},
			verifier:       expiredCodec,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "TOKEN_EXPIRED",
		},
		{
			name:           "Valid token without live session is rejected",
			authHeader:     "Bearer " + validToken,
			sessions:       &fakeSessionChecker{active: map[string]bool{}},
			verifier:       codec,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "TOKEN_INVALID",
		},
		{
			name:           "Session index failure fails closed",
			authHeader:     "Bearer " + validToken,
			sessions:       &fakeSessionChecker{err: errors.New("connection refused")},
			verifier:       codec,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "TOKEN_INVALID",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var gotClaims *sec.AuthClaims
			var called bool

			handler := Authenticate(tc.verifier, tc.sessions)(echoUserHandler(&gotClaims, &called))

			request := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
			if tc.authHeader != "" {
				request.Header.Set("Authorization", tc.authHeader)
			}
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, request)

			assert.Equal(t, tc.expectedStatus, recorder.Code)
			if tc.expectedCode != "" {
				assert.Contains(t, recorder.Body.String(), tc.expectedCode)
				assert.False(t, called, "handler must not run on rejection")
			}
			if tc.expectClaims {
				require.NotNil(t, gotClaims)
				assert.Equal(t, "user-1", gotClaims.UserID)
				assert.Equal(t, "alice", gotClaims.Username)
			} else if tc.expectedStatus == http.StatusOK {
				assert.True(t, called)
				assert.Nil(t, gotClaims)
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireAuth()(next)

	t.Run("Rejects anonymous requests", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
		recorder := httptest.NewRecorder()

		handler.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "UNAUTHORIZED")
	})

	t.Run("Allows authenticated requests", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
		ctx := ctxutil.WithAuthUser(request.Context(), &sec.AuthClaims{UserID: "user-1"})
		recorder := httptest.NewRecorder()

		handler.ServeHTTP(recorder, request.WithContext(ctx))

		assert.Equal(t, http.StatusOK, recorder.Code)
	})
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireRole(sec.RoleAdmin)(next)

	testCases := []struct {
		name           string
		claims         *sec.AuthClaims
		expectedStatus int
	}{
		{
			name:           "Anonymous is unauthorized",
			claims:         nil,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Regular user is forbidden",
			claims:         &sec.AuthClaims{UserID: "user-1", Role: string(sec.RoleUser)},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "Admin is allowed",
			claims:         &sec.AuthClaims{UserID: "admin-1", Role: string(sec.RoleAdmin)},
			expectedStatus: http.StatusOK,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/api/v1/admin/cache", nil)
			if tc.claims != nil {
				request = request.WithContext(ctxutil.WithAuthUser(request.Context(), tc.claims))
			}
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, request)

			assert.Equal(t, tc.expectedStatus, recorder.Code)
		})
	}
}
