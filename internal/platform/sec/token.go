// Copyright (c) 2026 Nimbus Labs. All rights reserved.
// Author: dev@nimbuslabs.io

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via small interfaces defined at the point of use.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel errors returned by token verification.
//
// Expiry is kept distinct from all other failure modes so that callers can
// decide between prompting a refresh and forcing a re-login. Everything else
// (bad signature, malformed token, wrong algorithm) collapses into
// [ErrTokenInvalid] to avoid leaking the internal cause.
var (
	ErrTokenInvalid = errors.New("sec: invalid token")
	ErrTokenExpired = errors.New("sec: token expired")
)

// AuthClaims represents the payload embedded inside a JWT Access Token.
//
// # Why custom claims?
//
// By embedding the UserID, Username, and Role directly inside the JWT,
// the auth gate can reconstruct the active user context WITHOUT querying
// the database on every single API request. This provides massive
// read-scalability.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID   string `json:"uid"`
	Username string `json:"unm"`
	Role     string `json:"rol"`
}

// RefreshClaims is the minimal payload of a JWT Refresh Token.
//
// Refresh tokens deliberately carry only the user identity. Username and role
// are re-read from the database at refresh time so a role change takes effect
// on the next rotation.
type RefreshClaims struct {
	jwt.RegisteredClaims

	UserID string `json:"uid"`
}

// TokenCodecConfig configures a [TokenCodec].
//
// Access and refresh tokens use independent secrets and independently
// configurable lifetimes. The signing algorithm is shared and restricted to
// the symmetric HMAC family.
type TokenCodecConfig struct {
	AccessSecret  string
	RefreshSecret string
	Algorithm     string // HS256, HS384 or HS512
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// TokenCodec signs and verifies the two classes of session tokens.
//
// It has no knowledge of sessions: signature and expiry checks live here,
// liveness checks (active index membership) live in the session layer.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	method        jwt.SigningMethod
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
}

// NewTokenCodec validates the configuration and returns a ready codec.
func NewTokenCodec(cfg TokenCodecConfig) (*TokenCodec, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("sec: token secrets must not be empty")
	}

	method := jwt.GetSigningMethod(cfg.Algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("sec: unsupported signing algorithm %q (HMAC family required)", cfg.Algorithm)
	}

	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("sec: token TTLs must be positive")
	}

	return &TokenCodec{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		method:        method,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
	}, nil
}

// AccessTokenTTL returns the configured access token lifetime.
func (codec *TokenCodec) AccessTokenTTL() time.Duration { return codec.accessTTL }

// RefreshTokenTTL returns the configured refresh token lifetime.
func (codec *TokenCodec) RefreshTokenTTL() time.Duration { return codec.refreshTTL }

// # Signing

// SignAccessToken creates a signed access token carrying identity claims.
func (codec *TokenCodec) SignAccessToken(userID, username, role string) (string, error) {
	currentTime := time.Now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    codec.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(codec.accessTTL)),
		},
		UserID:   userID,
		Username: username,
		Role:     role,
	}

	token := jwt.NewWithClaims(codec.method, claims)
	signedToken, err := token.SignedString(codec.accessSecret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign access token: %w", err)
	}

	return signedToken, nil
}

// SignRefreshToken creates a signed refresh token carrying only the user ID.
func (codec *TokenCodec) SignRefreshToken(userID string) (string, error) {
	currentTime := time.Now()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    codec.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(codec.refreshTTL)),
		},
		UserID: userID,
	}

	token := jwt.NewWithClaims(codec.method, claims)
	signedToken, err := token.SignedString(codec.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign refresh token: %w", err)
	}

	return signedToken, nil
}

// # Verification

// VerifyAccessToken checks the signature and expiry of an access token.
//
// Returns [ErrTokenExpired] for expiry and [ErrTokenInvalid] for every other
// failure mode.
func (codec *TokenCodec) VerifyAccessToken(tokenString string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	if err := codec.verify(tokenString, claims, codec.accessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefreshToken checks the signature and expiry of a refresh token.
func (codec *TokenCodec) VerifyRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := codec.verify(tokenString, claims, codec.refreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// verify parses a token string into claims, pinning the signing method to the
// configured algorithm so an attacker cannot downgrade it (e.g. alg=none).
func (codec *TokenCodec) verify(tokenString string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != codec.method.Alg() {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{codec.method.Alg()}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}

	if !token.Valid {
		return ErrTokenInvalid
	}

	return nil
}
