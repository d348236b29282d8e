// Copyright (c) 2026 Nimbus Labs. All rights reserved.
// Author: dev@nimbuslabs.io

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nimbuslabs/nimbus/internal/platform/apperr"
	"github.com/nimbuslabs/nimbus/internal/platform/constants"
)

// redisOpTimeout caps every individual cache round-trip so a degraded
// Redis cannot stall login or refresh indefinitely.
const redisOpTimeout = 2 * time.Second

// RedisSessionStore implements SessionStore on top of go-redis.
//
// # Key Layout
//
//   - access_token:<sessionID>  → signed access JWT (access TTL)
//   - refresh_token:<sessionID> → signed refresh JWT (refresh TTL)
//   - user:<userID>:tokens      → JSON array of live sessionIDs (refresh TTL)
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore creates a new Redis-backed SessionStore.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

/*
PutSession mirrors both signed tokens under their sessionID keys.

Description: The two entries carry independent TTLs so the access mirror
naturally lapses first while the refresh mirror survives for rotation.

Parameters:
  - ctx: context.Context
  - sessionID: string
  - accessToken: string
  - refreshToken: string
  - accessTTL: time.Duration
  - refreshTTL: time.Duration

Returns:
  - error: apperr.CacheUnavailable on any write failure
*/
func (store *RedisSessionStore) PutSession(ctx context.Context, sessionID, accessToken, refreshToken string, accessTTL, refreshTTL time.Duration) error {
	opCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	// Write both mirrors in one round-trip
	pipe := store.client.Pipeline()
	pipe.Set(opCtx, constants.RedisPrefixAccessToken+sessionID, accessToken, accessTTL)
	pipe.Set(opCtx, constants.RedisPrefixRefreshToken+sessionID, refreshToken, refreshTTL)

	if _, err := pipe.Exec(opCtx); err != nil {
		return apperr.CacheUnavailable(fmt.Errorf("redis_session_put_failed: %w", err))
	}

	return nil
}

/*
GetAccessToken returns the mirrored access token for a session.

Parameters:
  - ctx: context.Context
  - sessionID: string

Returns:
  - string: Stored token
  - bool: false if the entry is absent or already expired
  - error: apperr.CacheUnavailable on connectivity failures
*/
func (store *RedisSessionStore) GetAccessToken(ctx context.Context, sessionID string) (string, bool, error) {
	return store.getToken(ctx, constants.RedisPrefixAccessToken+sessionID)
}

/*
GetRefreshToken returns the mirrored refresh token for a session.

Parameters:
  - ctx: context.Context
  - sessionID: string

Returns:
  - string: Stored token
  - bool: false if the entry is absent or already expired
  - error: apperr.CacheUnavailable on connectivity failures
*/
func (store *RedisSessionStore) GetRefreshToken(ctx context.Context, sessionID string) (string, bool, error) {
	return store.getToken(ctx, constants.RedisPrefixRefreshToken+sessionID)
}

// getToken fetches a single mirrored token, treating redis.Nil as a clean miss.
func (store *RedisSessionStore) getToken(ctx context.Context, key string) (string, bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	value, err := store.client.Get(opCtx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, apperr.CacheUnavailable(fmt.Errorf("redis_token_get_failed: %w", err))
	}

	return value, true, nil
}

/*
DeleteSession removes both mirrored tokens for a session.

Description: Deleting an already-absent session is not an error.

Parameters:
  - ctx: context.Context
  - sessionID: string

Returns:
  - error: apperr.CacheUnavailable on connectivity failures
*/
func (store *RedisSessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	opCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	err := store.client.Del(opCtx,
		constants.RedisPrefixAccessToken+sessionID,
		constants.RedisPrefixRefreshToken+sessionID,
	).Err()
	if err != nil {
		return apperr.CacheUnavailable(fmt.Errorf("redis_session_delete_failed: %w", err))
	}

	return nil
}

/*
GetActiveIndex returns the user's list of live sessionIDs.

Description: A missing index key and an empty array are equivalent: the
user has no live session. A corrupted index is treated the same way so a
bad payload revokes access instead of granting it.

Parameters:
  - ctx: context.Context
  - userID: string

Returns:
  - []string: Live sessionIDs
  - error: apperr.CacheUnavailable on connectivity failures
*/
func (store *RedisSessionStore) GetActiveIndex(ctx context.Context, userID string) ([]string, error) {
	opCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	key := fmt.Sprintf(constants.RedisUserTokenIndexFormat, userID)

	raw, err := store.client.Get(opCtx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, apperr.CacheUnavailable(fmt.Errorf("redis_index_get_failed: %w", err))
	}

	var sessionIDs []string
	if err := json.Unmarshal([]byte(raw), &sessionIDs); err != nil {
		// Undecodable index means no provable live session
		return nil, nil
	}

	return sessionIDs, nil
}

/*
SetActiveIndex replaces the user's live sessionID list.

Parameters:
  - ctx: context.Context
  - userID: string
  - sessionIDs: []string
  - ttl: time.Duration

Returns:
  - error: apperr.CacheUnavailable on write failures
*/
func (store *RedisSessionStore) SetActiveIndex(ctx context.Context, userID string, sessionIDs []string, ttl time.Duration) error {
	opCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	key := fmt.Sprintf(constants.RedisUserTokenIndexFormat, userID)

	payload, err := json.Marshal(sessionIDs)
	if err != nil {
		return fmt.Errorf("redis_index_encode_failed: %w", err)
	}

	if err := store.client.Set(opCtx, key, payload, ttl).Err(); err != nil {
		return apperr.CacheUnavailable(fmt.Errorf("redis_index_set_failed: %w", err))
	}

	return nil
}

/*
ClearActiveIndex removes the user's live sessionID list entirely.

Parameters:
  - ctx: context.Context
  - userID: string

Returns:
  - error: apperr.CacheUnavailable on delete failures
*/
func (store *RedisSessionStore) ClearActiveIndex(ctx context.Context, userID string) error {
	opCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	key := fmt.Sprintf(constants.RedisUserTokenIndexFormat, userID)

	if err := store.client.Del(opCtx, key).Err(); err != nil {
		return apperr.CacheUnavailable(fmt.Errorf("redis_index_clear_failed: %w", err))
	}

	return nil
}
