// Copyright (c) 2026 Nimbus Labs. All rights reserved.
// Author: dev@nimbuslabs.io

package upload

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nimbuslabs/nimbus/internal/platform/middleware"
	requestutil "github.com/nimbuslabs/nimbus/internal/platform/request"
	"github.com/nimbuslabs/nimbus/internal/platform/respond"
	"github.com/nimbuslabs/nimbus/internal/platform/sec"
	"github.com/nimbuslabs/nimbus/internal/platform/validate"
	"github.com/nimbuslabs/nimbus/pkg/pagination"
)

// # Definitions & Constructors

// Handler implements upload-related HTTP endpoints.
type Handler struct {
	uploadService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{uploadService: service}
}

// Routes returns a [chi.Router] configured with upload-specific routes.
//
// # Endpoints
//   - POST   /single        : One multipart file.
//   - POST   /batch         : Up to MaxBatchFiles multipart files.
//   - GET    /              : Caller's active resources, paginated.
//   - DELETE /{resourceID}  : Resource removal by ID.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Every upload endpoint requires an authenticated caller
	router.Use(middleware.RequireAuth())

	router.Post("/single", handler.uploadSingle)
	router.Post("/batch", handler.uploadBatch)
	router.Get("/", handler.list)
	router.Delete("/{resourceID}", handler.deleteByID)

	return router
}

/*
UploadSingle stores one multipart file for the authenticated user.

POST /api/v1/upload/single (multipart/form-data, field "file")

Response:
  - 201: Resource: Recorded resource with its public URL
  - 400: VALIDATION_ERROR: Missing file, oversize, or rejected extension
*/
func (handler *Handler) uploadSingle(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Bound the in-memory parse to the per-file cap plus form overhead
	if err := request.ParseMultipartForm(MaxFileSizeBytes + 1<<20); err != nil {
		respond.Error(writer, request, validate.RequiredError(FieldFile, "Multipart form is required"))
		return
	}

	file, header, err := request.FormFile(FieldFile)
	if err != nil {
		respond.Error(writer, request, validate.RequiredError(FieldFile, "This field is required"))
		return
	}
	defer func() { _ = file.Close() }()

	resource, err := handler.uploadService.Upload(request.Context(), userID, UploadInput{
		OriginalName: header.Filename,
		SizeBytes:    header.Size,
		Content:      file,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, resource)
}

/*
UploadBatch stores multiple multipart files for the authenticated user.

POST /api/v1/upload/batch (multipart/form-data, field "files")

Response:
  - 201: []Resource: Recorded resources
  - 400: VALIDATION_ERROR: Empty batch, too many files, or a rejected file
*/
func (handler *Handler) uploadBatch(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := request.ParseMultipartForm(int64(MaxBatchFiles)*MaxFileSizeBytes + 1<<20); err != nil {
		respond.Error(writer, request, validate.RequiredError(FieldFiles, "Multipart form is required"))
		return
	}

	headers := request.MultipartForm.File[FieldFiles]
	if len(headers) == 0 {
		respond.Error(writer, request, validate.RequiredError(FieldFiles, "This field is required"))
		return
	}

	inputs := make([]UploadInput, 0, len(headers))
	openFiles := make([]interface{ Close() error }, 0, len(headers))
	defer func() {
		for _, open := range openFiles {
			_ = open.Close()
		}
	}()

	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			respond.Error(writer, request, validate.RequiredError(FieldFiles, "Unreadable file in batch"))
			return
		}
		openFiles = append(openFiles, file)
		inputs = append(inputs, UploadInput{
			OriginalName: header.Filename,
			SizeBytes:    header.Size,
			Content:      file,
		})
	}

	resources, err := handler.uploadService.UploadBatch(request.Context(), userID, inputs)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, resources)
}

/*
List returns the caller's active resources, newest first.

GET /api/v1/upload?page=1&limit=20

Response:
  - 200: []Resource + Meta: Page of resources
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	params := pagination.FromRequest(request)

	resources, meta, err := handler.uploadService.List(request.Context(), userID, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, resources, meta)
}

/*
DeleteByID removes a resource owned by the caller (or any resource for operators).

DELETE /api/v1/upload/{resourceID}

Response:
  - 204: No Content: Resource removed
  - 403: FORBIDDEN: Caller does not own the resource
  - 404: NOT_FOUND: No such resource
*/
func (handler *Handler) deleteByID(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	resourceID := requestutil.Param(request, FieldResourceID)

	validator := &validate.Validator{}
	if err := validator.UUID(FieldResourceID, resourceID).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	isOperator := sec.UserRole(claims.Role).AtLeast(sec.RoleAdmin)

	if err := handler.uploadService.Delete(request.Context(), resourceID, claims.UserID, isOperator); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
