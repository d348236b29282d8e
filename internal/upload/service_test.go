// Copyright (c) 2026 Nimbus Labs. All rights reserved.
// Author: dev@nimbuslabs.io

package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbuslabs/nimbus/internal/platform/apperr"
	"github.com/nimbuslabs/nimbus/pkg/pagination"
)

// # Fakes

type fakeResourceRepo struct {
	byID      map[string]*Resource
	createErr error
}

func newFakeResourceRepo() *fakeResourceRepo {
	return &fakeResourceRepo{byID: map[string]*Resource{}}
}

func (f *fakeResourceRepo) Create(_ context.Context, resource *Resource) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.byID[resource.ID] = resource
	return nil
}

func (f *fakeResourceRepo) FindByID(_ context.Context, id string) (*Resource, error) {
	resource, ok := f.byID[id]
	if !ok || resource.Status == StatusDeleted {
		return nil, apperr.NotFound("Resource")
	}
	return resource, nil
}

func (f *fakeResourceRepo) ListByUploader(_ context.Context, uploaderID string, _ pagination.Params) ([]*Resource, int, error) {
	var resources []*Resource
	for _, resource := range f.byID {
		if resource.UploaderID == uploaderID && resource.Status == StatusActive {
			resources = append(resources, resource)
		}
	}
	return resources, len(resources), nil
}

func (f *fakeResourceRepo) UpdateStatus(_ context.Context, id string, status ResourceStatus) error {
	resource, ok := f.byID[id]
	if !ok {
		return apperr.NotFound("Resource")
	}
	resource.Status = status
	return nil
}

type fakeFileStore struct {
	files   map[string][]byte
	saveErr error
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{files: map[string][]byte{}}
}

func (f *fakeFileStore) Save(_ context.Context, src io.Reader, storedName string) (int64, error) {
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return 0, err
	}
	f.files[storedName] = data
	return int64(len(data)), nil
}

func (f *fakeFileStore) Remove(_ context.Context, storedName string) error {
	delete(f.files, storedName)
	return nil
}

func newUploadFixture() (*Service, *fakeResourceRepo, *fakeFileStore) {
	repo := newFakeResourceRepo()
	store := newFakeFileStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, store, "http://localhost:8080", logger), repo, store
}

// # Tests

func TestUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("Stores the file and records an active resource", func(t *testing.T) {
		service, repo, store := newUploadFixture()

		resource, err := service.Upload(ctx, "user-1", UploadInput{
			OriginalName: "Holiday Photo.PNG",
			SizeBytes:    5,
			Content:      bytes.NewReader([]byte("bytes")),
		})
		require.NoError(t, err)

		assert.Equal(t, "user-1", resource.UploaderID)
		assert.Equal(t, "image", resource.Category)
		assert.Equal(t, StatusActive, resource.Status)
		assert.Equal(t, int64(5), resource.SizeBytes)
		assert.True(t, strings.HasPrefix(resource.StoredName, "holiday-photo-"))
		assert.True(t, strings.HasSuffix(resource.StoredName, ".png"))
		assert.Equal(t, "http://localhost:8080/uploads/"+resource.StoredName, resource.URL)

		assert.Contains(t, store.files, resource.StoredName)
		assert.Contains(t, repo.byID, resource.ID)
	})

	t.Run("Rejects extensions outside the allow-list", func(t *testing.T) {
		service, _, store := newUploadFixture()

		_, err := service.Upload(ctx, "user-1", UploadInput{
			OriginalName: "malware.exe",
			SizeBytes:    3,
			Content:      bytes.NewReader([]byte("bad")),
		})

		var appError *apperr.AppError
		require.ErrorAs(t, err, &appError)
		assert.Equal(t, "VALIDATION_ERROR", appError.Code)
		assert.Empty(t, store.files, "rejected files never touch the disk")
	})

	t.Run("Rejects oversize files before any I/O", func(t *testing.T) {
		service, _, store := newUploadFixture()

		_, err := service.Upload(ctx, "user-1", UploadInput{
			OriginalName: "huge.pdf",
			SizeBytes:    MaxFileSizeBytes + 1,
			Content:      bytes.NewReader(nil),
		})

		var appError *apperr.AppError
		require.ErrorAs(t, err, &appError)
		assert.Equal(t, "VALIDATION_ERROR", appError.Code)
		assert.Empty(t, store.files)
	})

	t.Run("Ledger failure rolls back the disk write", func(t *testing.T) {
		service, repo, store := newUploadFixture()
		repo.createErr = errors.New("database down")

		_, err := service.Upload(ctx, "user-1", UploadInput{
			OriginalName: "notes.txt",
			SizeBytes:    4,
			Content:      bytes.NewReader([]byte("text")),
		})

		require.Error(t, err)
		assert.Empty(t, store.files, "orphaned bytes are removed")
	})
}

func TestUploadBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("Stores every file in the batch", func(t *testing.T) {
		service, _, _ := newUploadFixture()

		resources, err := service.UploadBatch(ctx, "user-1", []UploadInput{
			{OriginalName: "a.png", SizeBytes: 1, Content: bytes.NewReader([]byte("a"))},
			{OriginalName: "b.pdf", SizeBytes: 1, Content: bytes.NewReader([]byte("b"))},
		})
		require.NoError(t, err)
		assert.Len(t, resources, 2)
	})

	t.Run("Rejects empty and oversized batches", func(t *testing.T) {
		service, _, _ := newUploadFixture()

		_, err := service.UploadBatch(ctx, "user-1", nil)
		assert.Error(t, err)

		tooMany := make([]UploadInput, MaxBatchFiles+1)
		for i := range tooMany {
			tooMany[i] = UploadInput{OriginalName: "f.txt", SizeBytes: 1, Content: bytes.NewReader([]byte("x"))}
		}
		_, err = service.UploadBatch(ctx, "user-1", tooMany)
		assert.Error(t, err)
	})

	t.Run("Keeps files stored before the first failure", func(t *testing.T) {
		service, _, _ := newUploadFixture()

		resources, err := service.UploadBatch(ctx, "user-1", []UploadInput{
			{OriginalName: "ok.png", SizeBytes: 1, Content: bytes.NewReader([]byte("a"))},
			{OriginalName: "bad.exe", SizeBytes: 1, Content: bytes.NewReader([]byte("b"))},
		})

		require.Error(t, err)
		assert.Len(t, resources, 1)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	seed := func(service *Service) *Resource {
		resource, err := service.Upload(ctx, "user-1", UploadInput{
			OriginalName: "doc.pdf", SizeBytes: 3, Content: bytes.NewReader([]byte("doc")),
		})
		if err != nil {
			panic(err)
		}
		return resource
	}

	t.Run("Owner can delete and the file disappears", func(t *testing.T) {
		service, repo, store := newUploadFixture()
		resource := seed(service)

		require.NoError(t, service.Delete(ctx, resource.ID, "user-1", false))

		assert.Equal(t, StatusDeleted, repo.byID[resource.ID].Status)
		assert.NotContains(t, store.files, resource.StoredName)
	})

	t.Run("Strangers are forbidden, operators are not", func(t *testing.T) {
		service, _, _ := newUploadFixture()
		resource := seed(service)

		err := service.Delete(ctx, resource.ID, "user-2", false)
		var appError *apperr.AppError
		require.ErrorAs(t, err, &appError)
		assert.Equal(t, "FORBIDDEN", appError.Code)

		assert.NoError(t, service.Delete(ctx, resource.ID, "user-2", true))
	})

	t.Run("Deleting twice yields NotFound", func(t *testing.T) {
		service, _, _ := newUploadFixture()
		resource := seed(service)

		require.NoError(t, service.Delete(ctx, resource.ID, "user-1", false))

		err := service.Delete(ctx, resource.ID, "user-1", false)
		var appError *apperr.AppError
		require.ErrorAs(t, err, &appError)
		assert.Equal(t, "NOT_FOUND", appError.Code)
	})
}
