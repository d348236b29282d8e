// Copyright (c) 2026 Nimbus Labs. All rights reserved.
// Author: dev@nimbuslabs.io

/*
Package upload implements user file uploads backed by local disk storage.

It accepts single and batch multipart uploads, records every stored file as
a Resource row in PostgreSQL, and serves deletion by resource ID so clients
never address raw filesystem paths.

# Architecture

  - Entities: Resource (the durable record of one stored file).
  - Storage: DiskStorage confines all file I/O to a single base directory.
  - Service: Enforces extension allow-lists and ownership on deletion.
*/
package upload

import "time"

// # Domain Entities

// ResourceStatus tracks the lifecycle of a stored file.
type ResourceStatus int

const (
	// StatusPending marks a row created before the bytes hit the disk.
	StatusPending ResourceStatus = 0
	// StatusActive marks a fully stored, servable file.
	StatusActive ResourceStatus = 1
	// StatusDeleted marks a logically removed file.
	StatusDeleted ResourceStatus = 2
)

// Resource represents one uploaded file tracked by the platform.
type Resource struct {
	ID           string         `json:"id"`
	UploaderID   string         `json:"uploader_id"`
	OriginalName string         `json:"original_name"`
	StoredName   string         `json:"-"` // Disk identity is never exposed to clients.
	Category     string         `json:"category"`
	MimeType     string         `json:"mime_type"`
	SizeBytes    int64          `json:"size_bytes"`
	URL          string         `json:"url"`
	Status       ResourceStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// # Upload Policy

// Category labels and their accepted file extensions. Anything outside
// these lists is rejected before touching the disk.
var categoryExtensions = map[string][]string{
	"image":    {".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg"},
	"document": {".pdf", ".txt", ".md", ".doc", ".docx", ".xls", ".xlsx"},
	"archive":  {".zip", ".tar", ".gz"},
	"media":    {".mp3", ".mp4", ".webm"},
}

// CategoryFor returns the policy category for a file extension,
// or "" when the extension is not accepted at all.
func CategoryFor(extension string) string {
	for category, extensions := range categoryExtensions {
		for _, accepted := range extensions {
			if extension == accepted {
				return category
			}
		}
	}
	return ""
}

const (
	// MaxFileSizeBytes caps a single uploaded file at 10 MiB.
	MaxFileSizeBytes = 10 << 20

	// MaxBatchFiles caps the number of files in one batch request.
	MaxBatchFiles = 5
)

// # Field Identifiers

const (
	FieldFile       = "file"
	FieldFiles      = "files"
	FieldResourceID = "resourceID"
)
