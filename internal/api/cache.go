// Copyright (c) 2026 Nimbus Labs. All rights reserved.
// Author: dev@nimbuslabs.io

package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nimbuslabs/nimbus/internal/platform/apperr"
	"github.com/nimbuslabs/nimbus/internal/platform/ctxutil"
	"github.com/nimbuslabs/nimbus/internal/platform/middleware"
	redisutil "github.com/nimbuslabs/nimbus/internal/platform/redis"
	requestutil "github.com/nimbuslabs/nimbus/internal/platform/request"
	"github.com/nimbuslabs/nimbus/internal/platform/respond"
	"github.com/nimbuslabs/nimbus/internal/platform/sec"
)

// # Cache Inspector

// CacheHandler exposes operator-only diagnostics over the session cache.
//
// # Scope
//
// Strictly a read-and-purge window into Redis for incident response. It
// never participates in the session lifecycle itself.
type CacheHandler struct {
	inspector *redisutil.Inspector
}

// NewCacheHandler constructs a new [CacheHandler].
func NewCacheHandler(inspector *redisutil.Inspector) *CacheHandler {
	return &CacheHandler{inspector: inspector}
}

// Routes returns a [chi.Router] with the cache inspection routes.
//
// # Endpoints
//   - GET    /keys    : Keys matching ?pattern= (default "*").
//   - GET    /entries : Full snapshots (value + TTL) matching ?pattern=.
//   - GET    /entry   : Single snapshot for the exact key in ?key=.
//   - DELETE /keys    : Purge the exact key in ?key=.
func (handler *CacheHandler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequireAuth())
	router.Use(middleware.RequireRole(sec.RoleAdmin))

	router.Get("/keys", handler.listKeys)
	router.Get("/entries", handler.listEntries)
	router.Get("/entry", handler.getEntry)
	router.Delete("/keys", handler.deleteKey)

	return router
}

/*
ListKeys returns cache key names matching a glob pattern.

GET /api/v1/admin/cache/keys?pattern=access_token:*

Response:
  - 200: []string: Matching keys
  - 403: FORBIDDEN: Admin role required
*/
func (handler *CacheHandler) listKeys(writer http.ResponseWriter, request *http.Request) {
	pattern := request.URL.Query().Get("pattern")
	if pattern == "" {
		pattern = "*"
	}

	keys, err := handler.inspector.Keys(request.Context(), pattern)
	if err != nil {
		respond.Error(writer, request, apperr.CacheUnavailable(err))
		return
	}

	respond.OK(writer, keys)
}

/*
ListEntries returns value and TTL snapshots for matching cache keys.

GET /api/v1/admin/cache/entries?pattern=user:*

Response:
  - 200: []Entry: Key snapshots
  - 503: CACHE_UNAVAILABLE: Redis unreachable
*/
func (handler *CacheHandler) listEntries(writer http.ResponseWriter, request *http.Request) {
	pattern := request.URL.Query().Get("pattern")
	if pattern == "" {
		pattern = "*"
	}

	entries, err := handler.inspector.Entries(request.Context(), pattern)
	if err != nil {
		respond.Error(writer, request, apperr.CacheUnavailable(err))
		return
	}

	respond.OK(writer, entries)
}

/*
GetEntry returns the snapshot for one exact cache key.

GET /api/v1/admin/cache/entry?key=refresh_token:user-1:...

Response:
  - 200: Entry: Value, existence flag and remaining TTL
  - 400: VALIDATION_ERROR: Missing key parameter
*/
func (handler *CacheHandler) getEntry(writer http.ResponseWriter, request *http.Request) {
	key := request.URL.Query().Get("key")
	if key == "" {
		respond.Error(writer, request, apperr.ValidationError("Query parameter 'key' is required"))
		return
	}

	entry, err := handler.inspector.Entry(request.Context(), key)
	if err != nil {
		respond.Error(writer, request, apperr.CacheUnavailable(err))
		return
	}

	respond.OK(writer, entry)
}

/*
DeleteKey purges one exact cache key.

DELETE /api/v1/admin/cache/keys?key=access_token:user-1:...

Description: Purging a session key revokes the matching token immediately,
which makes this the manual kill switch during incident response.

Response:
  - 200: {deleted}: Number of keys removed (0 or 1)
  - 400: VALIDATION_ERROR: Missing key parameter
*/
func (handler *CacheHandler) deleteKey(writer http.ResponseWriter, request *http.Request) {
	key := request.URL.Query().Get("key")
	if key == "" {
		respond.Error(writer, request, apperr.ValidationError("Query parameter 'key' is required"))
		return
	}

	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	deleted, err := handler.inspector.Delete(request.Context(), key)
	if err != nil {
		respond.Error(writer, request, apperr.CacheUnavailable(err))
		return
	}

	// Purges are destructive; leave an audit trail
	ctxutil.GetLogger(request.Context()).WarnContext(request.Context(), "cache_key_purged",
		slog.String("key", key), slog.String("admin_id", claims.UserID))

	respond.OK(writer, map[string]int64{"deleted": deleted})
}
