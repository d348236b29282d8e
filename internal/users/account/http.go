// Copyright (c) 2026 Nimbus Labs. All rights reserved.
// Author: dev@nimbuslabs.io

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nimbuslabs/nimbus/internal/platform/middleware"
	requestutil "github.com/nimbuslabs/nimbus/internal/platform/request"
	"github.com/nimbuslabs/nimbus/internal/platform/respond"
	"github.com/nimbuslabs/nimbus/internal/platform/sec"
	"github.com/nimbuslabs/nimbus/internal/platform/validate"
	"github.com/nimbuslabs/nimbus/internal/users/auth"
	"github.com/nimbuslabs/nimbus/pkg/pagination"
)

// # Definitions & Constructors

// Handler implements account-related HTTP endpoints.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns a [chi.Router] configured with account-specific routes.
//
// # Endpoints
//   - GET    /me          : Own profile.
//   - PATCH  /me          : Partial own-profile update.
//   - PUT    /me/password : Credential rotation with forced sign-out.
//   - GET    /         : Paginated directory (admin).
//   - GET    /{userID} : Arbitrary profile (admin).
//   - DELETE /{userID} : Account removal with forced sign-out (admin).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Every account endpoint requires an authenticated caller
	router.Use(middleware.RequireAuth())

	router.Get("/me", handler.getMe)
	router.Patch("/me", handler.updateMe)
	router.Put("/me/password", handler.changePassword)

	// Operator endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(sec.RoleAdmin))
		r.Get("/", handler.list)
		r.Get("/{userID}", handler.getByID)
		r.Delete("/{userID}", handler.deleteByID)
	})

	return router
}

// # Request Payloads

type updateProfileRequest struct {
	Nickname  *string `json:"nickname"`
	AvatarURL *string `json:"avatar_url"`
	Bio       *string `json:"bio"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

/*
GetMe returns the authenticated user's own profile.

GET /api/v1/users/me

Response:
  - 200: User: Own profile
  - 401: UNAUTHORIZED: Authentication required
*/
func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.GetProfile(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
UpdateMe applies a partial update to the authenticated user's profile.

PATCH /api/v1/users/me

Request:
  - Body: updateProfileRequest (Nickname, AvatarURL, Bio; all optional)

Response:
  - 200: User: Updated profile
  - 400: VALIDATION_ERROR: Field constraint violation
*/
func (handler *Handler) updateMe(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateProfileRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	if input.Nickname != nil {
		validator.MaxLen(FieldNickname, *input.Nickname, 64)
	}
	if input.AvatarURL != nil {
		validator.MaxLen(FieldAvatarURL, *input.AvatarURL, 512)
	}
	if input.Bio != nil {
		validator.MaxLen(FieldBio, *input.Bio, 1024)
	}

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.UpdateProfile(request.Context(), userID, UpdateProfileInput{
		Nickname:  input.Nickname,
		AvatarURL: input.AvatarURL,
		Bio:       input.Bio,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
ChangePassword rotates the authenticated user's credential.

PUT /api/v1/users/me/password

Request:
  - Body: changePasswordRequest (CurrentPassword, NewPassword)

Response:
  - 204: No Content: Password rotated, all sessions revoked
  - 401: AUTH_FAILED: Wrong current password
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldCurrentPassword, input.CurrentPassword)
	validator.MinLen(FieldNewPassword, input.NewPassword, auth.MinPasswordLength)
	validator.MaxLen(FieldNewPassword, input.NewPassword, 72)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.ChangePassword(request.Context(), userID, input.CurrentPassword, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
List returns a paginated directory of registered accounts.

GET /api/v1/users?page=1&limit=20

Response:
  - 200: []User + Meta: Page of accounts
  - 403: FORBIDDEN: Admin role required
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	users, meta, err := handler.accountService.List(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, users, meta)
}

/*
GetByID returns any account by its ID.

GET /api/v1/users/{userID}

Response:
  - 200: User: Requested profile
  - 404: NOT_FOUND: No such account
*/
func (handler *Handler) getByID(writer http.ResponseWriter, request *http.Request) {
	userID := requestutil.Param(request, FieldUserID)

	validator := &validate.Validator{}
	if err := validator.UUID(FieldUserID, userID).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.GetProfile(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
DeleteByID soft-deletes an account and forces a global sign-out.

DELETE /api/v1/users/{userID}

Response:
  - 204: No Content: Account removed
  - 404: NOT_FOUND: No such account
*/
func (handler *Handler) deleteByID(writer http.ResponseWriter, request *http.Request) {
	userID := requestutil.Param(request, FieldUserID)

	validator := &validate.Validator{}
	if err := validator.UUID(FieldUserID, userID).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.DeleteAccount(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
