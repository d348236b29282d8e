// Copyright (c) 2026 Nimbus Labs. All rights reserved.
// Author: dev@nimbuslabs.io

package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"

	"github.com/nimbuslabs/nimbus/internal/platform/apperr"
	"github.com/nimbuslabs/nimbus/pkg/pagination"
	"github.com/nimbuslabs/nimbus/pkg/slug"
	"github.com/nimbuslabs/nimbus/pkg/uuid"
)

// # Service Layer

// Service orchestrates the upload business logic: policy enforcement,
// disk storage, and the durable resource ledger.
type Service struct {
	resourceRepository ResourceRepository
	fileStore          FileStore
	publicBaseURL      string
	logger             *slog.Logger
}

// NewService constructs a new [Service] with its dependencies.
func NewService(resourceRepo ResourceRepository, fileStore FileStore, publicBaseURL string, logger *slog.Logger) *Service {
	return &Service{
		resourceRepository: resourceRepo,
		fileStore:          fileStore,
		publicBaseURL:      strings.TrimSuffix(publicBaseURL, "/"),
		logger:             logger,
	}
}

// UploadInput describes one incoming file.
type UploadInput struct {
	OriginalName string
	SizeBytes    int64
	Content      io.Reader
}

/*
Upload validates, stores, and records a single file.

Description: The extension must map to an accepted category and the declared
size must be within the per-file cap. The file is written to disk under a
collision-free stored name, then recorded as an active Resource. A record
failure rolls the disk write back.

Parameters:
  - context: context.Context
  - uploaderID: string
  - input: UploadInput

Returns:
  - *Resource: The recorded resource
  - err: ValidationError or storage failures
*/
func (service *Service) Upload(context context.Context, uploaderID string, input UploadInput) (*Resource, error) {

	// Policy: size cap first, before any I/O
	if input.SizeBytes > MaxFileSizeBytes {
		return nil, apperr.ValidationError("File exceeds the size limit")
	}

	// Policy: extension allow-list
	extension := strings.ToLower(filepath.Ext(input.OriginalName))
	category := CategoryFor(extension)
	if category == "" {
		return nil, apperr.ValidationError(fmt.Sprintf("File type %q is not accepted", extension))
	}

	// Collision-free disk identity keeping a readable trace of the original name
	baseName := strings.TrimSuffix(filepath.Base(input.OriginalName), extension)
	resourceID := uuid.New()
	storedName := buildStoredName(baseName, resourceID, extension)

	written, err := service.fileStore.Save(context, input.Content, storedName)
	if err != nil {
		return nil, fmt.Errorf("upload_service_store_failed: %w", err)
	}

	resource := &Resource{
		ID:           resourceID,
		UploaderID:   uploaderID,
		OriginalName: filepath.Base(input.OriginalName),
		StoredName:   storedName,
		Category:     category,
		MimeType:     mimeTypeFor(extension),
		SizeBytes:    written,
		URL:          service.publicBaseURL + "/uploads/" + storedName,
		Status:       StatusActive,
	}

	if err := service.resourceRepository.Create(context, resource); err != nil {
		// Roll back the orphaned bytes; the ledger is the source of truth
		if removeErr := service.fileStore.Remove(context, storedName); removeErr != nil {
			service.logger.WarnContext(context, "upload_rollback_failed",
				slog.String("stored_name", storedName), slog.String("error", removeErr.Error()))
		}
		return nil, err
	}

	service.logger.InfoContext(context, "resource_uploaded",
		slog.String("resource_id", resource.ID),
		slog.String("uploader_id", uploaderID),
		slog.String("category", category),
		slog.Int64("size_bytes", written),
	)

	return resource, nil
}

/*
UploadBatch stores a set of files for one uploader.

Description: The batch is validated as a whole for count, then processed
in order. Processing stops at the first failure; files stored before the
failure stay recorded and remain visible to the client.

Parameters:
  - context: context.Context
  - uploaderID: string
  - inputs: []UploadInput

Returns:
  - []*Resource: Successfully recorded resources
  - err: ValidationError or the first per-file failure
*/
func (service *Service) UploadBatch(context context.Context, uploaderID string, inputs []UploadInput) ([]*Resource, error) {
	if len(inputs) == 0 {
		return nil, apperr.ValidationError("No files provided")
	}
	if len(inputs) > MaxBatchFiles {
		return nil, apperr.ValidationError(fmt.Sprintf("At most %d files per batch", MaxBatchFiles))
	}

	resources := make([]*Resource, 0, len(inputs))
	for _, input := range inputs {
		resource, err := service.Upload(context, uploaderID, input)
		if err != nil {
			return resources, err
		}
		resources = append(resources, resource)
	}

	return resources, nil
}

/*
List returns a page of the uploader's active resources.

Parameters:
  - context: context.Context
  - uploaderID: string
  - params: pagination.Params

Returns:
  - []*Resource: Page of resources
  - pagination.Meta: Metadata for the response envelope
  - err: Storage failures
*/
func (service *Service) List(context context.Context, uploaderID string, params pagination.Params) ([]*Resource, pagination.Meta, error) {
	resources, total, err := service.resourceRepository.ListByUploader(context, uploaderID, params)
	if err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("upload_service_list_failed: %w", err)
	}

	return resources, pagination.NewMeta(params.Page, params.Limit, total), nil
}

/*
Delete removes a resource by its ID.

Description: Only the uploader or an operator may delete a resource. The
ledger row is flipped to deleted first; the disk removal is best-effort
since an orphaned file is harmless once the row is gone.

Parameters:
  - context: context.Context
  - resourceID: string
  - requesterID: string
  - isOperator: bool

Returns:
  - err: NotFound, Forbidden, or storage failures
*/
func (service *Service) Delete(context context.Context, resourceID, requesterID string, isOperator bool) error {
	resource, err := service.resourceRepository.FindByID(context, resourceID)
	if err != nil {
		return err
	}

	if resource.UploaderID != requesterID && !isOperator {
		return apperr.Forbidden("You do not own this resource")
	}

	if err := service.resourceRepository.UpdateStatus(context, resourceID, StatusDeleted); err != nil {
		return err
	}

	if err := service.fileStore.Remove(context, resource.StoredName); err != nil {
		service.logger.WarnContext(context, "resource_disk_remove_failed",
			slog.String("resource_id", resourceID), slog.String("error", err.Error()))
	}

	service.logger.InfoContext(context, "resource_deleted",
		slog.String("resource_id", resourceID), slog.String("requester_id", requesterID))

	return nil
}

// # Internal Helpers

// buildStoredName combines a slugged trace of the original name, the resource
// ID, and the original extension into the on-disk filename.
func buildStoredName(baseName, resourceID, extension string) string {
	slugged := slug.From(baseName)
	if slugged == "" {
		slugged = "file"
	}
	return slugged + "-" + resourceID + extension
}

// mimeTypeFor maps an extension to its MIME type with a safe fallback.
func mimeTypeFor(extension string) string {
	if mimeType := mime.TypeByExtension(extension); mimeType != "" {
		return mimeType
	}
	return "application/octet-stream"
}
