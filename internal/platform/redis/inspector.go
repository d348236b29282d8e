// Copyright (c) 2026 Nimbus Labs. All rights reserved.
// Author: dev@nimbuslabs.io

package redis

import (
	stdctx "context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// # Cache Inspection

// Entry is a snapshot of one cache key for the admin inspector.
type Entry struct {
	Key string `json:"key"`
	// Value is the raw string payload. Session entries are JSON documents.
	Value string `json:"value,omitempty"`
	// TTLSeconds is the remaining lifetime: -1 means no expiry, -2 means the
	// key does not exist.
	TTLSeconds int64 `json:"ttl_seconds"`
	Exists     bool  `json:"exists"`
}

// Inspector exposes read-mostly diagnostics over the shared Redis client.
//
// # Scope
//
// It backs the admin-only cache inspection endpoints. It is intentionally
// NOT used by the session subsystem, which talks to Redis through its own
// narrowly-typed store.
type Inspector struct {
	client *redis.Client
}

// NewInspector wraps an existing client.
func NewInspector(client *redis.Client) *Inspector {
	return &Inspector{client: client}
}

/*
Keys returns all keys matching the given glob pattern.

Description: Uses SCAN rather than KEYS so a large keyspace cannot block the
Redis event loop.

Parameters:
  - context: context.Context
  - pattern: string (Redis glob, e.g. "access_token:*")

Returns:
  - []string: Matching key names
  - error: Connectivity failures
*/
func (inspector *Inspector) Keys(context stdctx.Context, pattern string) ([]string, error) {
	keys := make([]string, 0, 16)

	iterator := inspector.client.Scan(context, 0, pattern, 0).Iterator()
	for iterator.Next(context) {
		keys = append(keys, iterator.Val())
	}

	if err := iterator.Err(); err != nil {
		return nil, fmt.Errorf("redis: scan failed: %w", err)
	}

	return keys, nil
}

/*
Entry fetches the value, existence flag and remaining TTL for a single key.

Parameters:
  - context: context.Context
  - key: string (full key name, including any prefix)

Returns:
  - Entry: Snapshot of the key
  - error: Connectivity failures (a missing key is not an error)
*/
func (inspector *Inspector) Entry(context stdctx.Context, key string) (Entry, error) {
	entry := Entry{Key: key}

	value, err := inspector.client.Get(context, key).Result()
	switch {
	case err == nil:
		entry.Value = value
		entry.Exists = true
	case errors.Is(err, redis.Nil):
		entry.TTLSeconds = -2
		return entry, nil
	default:
		return Entry{}, fmt.Errorf("redis: get %q failed: %w", key, err)
	}

	ttl, err := inspector.client.TTL(context, key).Result()
	if err != nil {
		return Entry{}, fmt.Errorf("redis: ttl %q failed: %w", key, err)
	}

	entry.TTLSeconds = ttlToSeconds(ttl)
	return entry, nil
}

/*
Entries fetches snapshots for every key matching the pattern.

Description: Per-key failures are skipped so one bad key cannot hide the rest
of the listing.

Parameters:
  - context: context.Context
  - pattern: string

Returns:
  - []Entry: Snapshots of all readable matching keys
  - error: Connectivity failures during the scan
*/
func (inspector *Inspector) Entries(context stdctx.Context, pattern string) ([]Entry, error) {
	keys, err := inspector.Keys(context, pattern)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		entry, err := inspector.Entry(context, key)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

/*
Delete removes the given keys and reports how many actually existed.

Parameters:
  - context: context.Context
  - keys: ...string

Returns:
  - int64: Number of keys removed
  - error: Connectivity failures
*/
func (inspector *Inspector) Delete(context stdctx.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	deleted, err := inspector.client.Del(context, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: delete failed: %w", err)
	}

	return deleted, nil
}

// ttlToSeconds converts go-redis TTL semantics to the wire representation.
// go-redis reports "no expiry" as -1ns and "missing key" as -2ns.
func ttlToSeconds(ttl time.Duration) int64 {
	if ttl < 0 {
		return int64(ttl) // -1 or -2 sentinel
	}
	return int64(ttl / time.Second)
}
