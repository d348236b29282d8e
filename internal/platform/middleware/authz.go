// Copyright (c) 2026 Nimbus Labs. All rights reserved.
// Author: dev@nimbuslabs.io

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/nimbuslabs/nimbus/internal/platform/constants"
	"github.com/nimbuslabs/nimbus/internal/platform/ctxutil"
	"github.com/nimbuslabs/nimbus/internal/platform/sec"
)

// # Authentication Contracts

// TokenVerifier checks the cryptographic validity of an access token.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*sec.AuthClaims, error)
}

// SessionChecker confirms that a verified token still belongs to a live session.
// A token can be cryptographically valid yet revoked by a newer login or a logout.
type SessionChecker interface {
	IsAccessTokenActive(ctx context.Context, userID, accessToken string) (bool, error)
}

// # Authentication Gate

/*
Authenticate validates the Bearer token and injects user claims into the context.

Behavior:

  - No Authorization header: the request proceeds anonymously. Downstream
    handlers that need identity must use RequireAuth.
  - Malformed header or invalid signature: 401 TOKEN_INVALID.
  - Expired token: 401 TOKEN_EXPIRED so clients know to attempt a refresh.
  - Valid token with no matching live session (revoked by logout or a newer
    login): 401 TOKEN_INVALID.
  - Session index unreachable: 401 TOKEN_INVALID. The gate fails closed
    rather than trusting a token it cannot cross-check.
*/
func Authenticate(verifier TokenVerifier, sessions SessionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// 1. Anonymous pass-through when no credentials are presented
			header := request.Header.Get(constants.HeaderAuthorization)
			if header == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// 2. Enforce the Bearer scheme
			token, ok := strings.CutPrefix(header, constants.BearerScheme+" ")
			if !ok || token == "" {
				writeError(writer, http.StatusUnauthorized, "TOKEN_INVALID", "Invalid or revoked token")
				return
			}

			// 3. Cryptographic verification
			claims, err := verifier.VerifyAccessToken(token)
			if err != nil {
				if errors.Is(err, sec.ErrTokenExpired) {
					writeError(writer, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired")
					return
				}
				writeError(writer, http.StatusUnauthorized, "TOKEN_INVALID", "Invalid or revoked token")
				return
			}

			// 4. Live session check against the token index
			active, err := sessions.IsAccessTokenActive(request.Context(), claims.UserID, token)
			if err != nil || !active {
				writeError(writer, http.StatusUnauthorized, "TOKEN_INVALID", "Invalid or revoked token")
				return
			}

			// 5. Inject claims for downstream handlers
			ctx := ctxutil.WithAuthUser(request.Context(), claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// # Authorization Guards

// RequireAuth rejects requests that did not pass through Authenticate
// with valid credentials.
func RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if ctxutil.GetAuthUser(request.Context()) == nil {
				writeError(writer, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}

// RequireRole rejects authenticated users whose role is below the minimum.
func RequireRole(minimum sec.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			claims := ctxutil.GetAuthUser(request.Context())
			if claims == nil {
				writeError(writer, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}

			if !sec.UserRole(claims.Role).AtLeast(minimum) {
				writeError(writer, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// GetUser returns the authenticated claims from the request, or nil.
func GetUser(request *http.Request) *sec.AuthClaims {
	return ctxutil.GetAuthUser(request.Context())
}
