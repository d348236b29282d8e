// Copyright (c) 2026 Nimbus Labs. All rights reserved.
// Author: dev@nimbuslabs.io

package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// # Disk Storage

// FileStore abstracts the byte-level storage backend.
type FileStore interface {
	// Save streams src into the store under storedName and returns the byte count.
	Save(context context.Context, src io.Reader, storedName string) (int64, error)

	// Remove deletes a stored file. Removing an absent file is not an error.
	Remove(context context.Context, storedName string) error
}

// DiskStorage implements FileStore on the local filesystem.
//
// All operations are confined to the base directory: stored names are
// resolved and prefix-checked so a crafted name can never escape it.
type DiskStorage struct {
	baseDir string
}

// NewDiskStorage resolves the base directory to an absolute path and creates
// it if missing.
func NewDiskStorage(baseDir string) (*DiskStorage, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("upload: storage base directory must not be empty")
	}

	absBaseDir, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("upload_storage_resolve_failed: %w", err)
	}

	if err := os.MkdirAll(absBaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("upload_storage_mkdir_failed: %w", err)
	}

	return &DiskStorage{baseDir: absBaseDir}, nil
}

/*
Save streams src into a file under the base directory.

Description: Writes through a buffered copy with context checks so a slow or
abandoned upload can be cancelled. Partial files are removed on any failure.

Parameters:
  - ctx: context.Context
  - src: io.Reader
  - storedName: string (Disk identity, already sanitized by the service)

Returns:
  - int64: Bytes written
  - error: Path or I/O failures
*/
func (storage *DiskStorage) Save(ctx context.Context, src io.Reader, storedName string) (int64, error) {
	absPath, err := storage.resolve(storedName)
	if err != nil {
		return 0, err
	}

	dst, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("upload_storage_create_failed: %w", err)
	}

	written := int64(0)
	buffer := make([]byte, 32*1024)

	for {
		// Allow cancellation mid-transfer
		select {
		case <-ctx.Done():
			_ = dst.Close()
			_ = os.Remove(absPath)
			return 0, ctx.Err()
		default:
		}

		n, readErr := src.Read(buffer)
		if n > 0 {
			wrote, writeErr := dst.Write(buffer[:n])
			if writeErr != nil {
				_ = dst.Close()
				_ = os.Remove(absPath)
				return 0, fmt.Errorf("upload_storage_write_failed: %w", writeErr)
			}
			written += int64(wrote)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			_ = dst.Close()
			_ = os.Remove(absPath)
			return 0, fmt.Errorf("upload_storage_read_failed: %w", readErr)
		}
	}

	if err := dst.Close(); err != nil {
		_ = os.Remove(absPath)
		return 0, fmt.Errorf("upload_storage_close_failed: %w", err)
	}

	return written, nil
}

/*
Remove deletes a stored file from disk.

Description: Idempotent: a missing file is treated as already removed.

Parameters:
  - ctx: context.Context
  - storedName: string

Returns:
  - error: Path or deletion failures
*/
func (storage *DiskStorage) Remove(ctx context.Context, storedName string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	absPath, err := storage.resolve(storedName)
	if err != nil {
		return err
	}

	if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("upload_storage_remove_failed: %w", err)
	}

	return nil
}

// resolve joins a stored name onto the base directory and rejects any result
// that escapes it.
func (storage *DiskStorage) resolve(storedName string) (string, error) {
	cleaned := filepath.Clean(storedName)
	absPath := filepath.Join(storage.baseDir, cleaned)

	if !strings.HasPrefix(absPath, storage.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("upload: illegal storage path %q", storedName)
	}

	return absPath, nil
}
