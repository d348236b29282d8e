// Copyright (c) 2026 Nimbus Labs. All rights reserved.
// Author: dev@nimbuslabs.io

package upload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nimbuslabs/nimbus/internal/platform/apperr"
	"github.com/nimbuslabs/nimbus/internal/platform/dberr"
	"github.com/nimbuslabs/nimbus/pkg/pagination"
)

// # Resource Repository

// PostgresResourceRepository implements the ResourceRepository interface using pgx.
type PostgresResourceRepository struct {
	pool *pgxpool.Pool
}

// NewResourceRepository creates a new PostgreSQL implementation of the ResourceRepository.
func NewResourceRepository(pool *pgxpool.Pool) *PostgresResourceRepository {
	return &PostgresResourceRepository{pool: pool}
}

const resourceColumns = `
	id, uploaderid, originalname, storedname, category, mimetype,
	sizebytes, url, status, createdat, updatedat`

// scanResource hydrates a Resource entity from a single row.
func scanResource(row pgx.Row) (*Resource, error) {
	resource := &Resource{}
	err := row.Scan(
		&resource.ID,
		&resource.UploaderID,
		&resource.OriginalName,
		&resource.StoredName,
		&resource.Category,
		&resource.MimeType,
		&resource.SizeBytes,
		&resource.URL,
		&resource.Status,
		&resource.CreatedAt,
		&resource.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return resource, nil
}

/*
Create persists a new resource record into the storage.resource table.

Parameters:
  - context: context.Context
  - resource: *Resource

Returns:
  - error: Constraint violations or connectivity errors
*/
func (repository *PostgresResourceRepository) Create(context context.Context, resource *Resource) error {
	const query = `
		INSERT INTO storage.resource (
			id, uploaderid, originalname, storedname, category, mimetype,
			sizebytes, url, status, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	now := time.Now()
	if resource.CreatedAt.IsZero() {
		resource.CreatedAt = now
	}
	resource.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		resource.ID,
		resource.UploaderID,
		resource.OriginalName,
		resource.StoredName,
		resource.Category,
		resource.MimeType,
		resource.SizeBytes,
		resource.URL,
		resource.Status,
		resource.CreatedAt,
		resource.UpdatedAt,
	)

	if err != nil {
		return dberr.Wrap(err, "Resource")
	}

	return nil
}

/*
FindByID retrieves a resource record by its unique ID.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *Resource: Hydrated entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresResourceRepository) FindByID(context context.Context, id string) (*Resource, error) {
	query := `SELECT ` + resourceColumns + `
		FROM storage.resource
		WHERE id = $1 AND status != $2`

	resource, err := scanResource(repository.pool.QueryRow(context, query, id, StatusDeleted))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Resource")
		}
		return nil, fmt.Errorf("postgres_resource_repo_find_failed: %w", err)
	}

	return resource, nil
}

/*
ListByUploader returns a page of a user's resources, newest first.

Parameters:
  - context: context.Context
  - uploaderID: string
  - params: pagination.Params

Returns:
  - []*Resource: Page of resources
  - int: Total matching resource count
  - error: Execution failures
*/
func (repository *PostgresResourceRepository) ListByUploader(context context.Context, uploaderID string, params pagination.Params) ([]*Resource, int, error) {
	query := `SELECT ` + resourceColumns + `
		FROM storage.resource
		WHERE uploaderid = $1 AND status = $2
		ORDER BY createdat DESC
		LIMIT $3 OFFSET $4`

	rows, err := repository.pool.Query(context, query, uploaderID, StatusActive, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_resource_repo_list_failed: %w", err)
	}
	defer rows.Close()

	var resources []*Resource
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres_resource_repo_scan_failed: %w", err)
		}
		resources = append(resources, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_resource_repo_rows_failed: %w", err)
	}

	const countQuery = `
		SELECT COUNT(*) FROM storage.resource
		WHERE uploaderid = $1 AND status = $2`

	var total int
	if err := repository.pool.QueryRow(context, countQuery, uploaderID, StatusActive).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres_resource_repo_count_failed: %w", err)
	}

	return resources, total, nil
}

/*
UpdateStatus transitions a resource's lifecycle status.

Parameters:
  - context: context.Context
  - id: string
  - status: ResourceStatus

Returns:
  - error: apperr.NotFound or execution failures
*/
func (repository *PostgresResourceRepository) UpdateStatus(context context.Context, id string, status ResourceStatus) error {
	const query = `
		UPDATE storage.resource
		SET status = $2, updatedat = $3
		WHERE id = $1`

	tag, err := repository.pool.Exec(context, query, id, status, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_resource_repo_status_failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Resource")
	}

	return nil
}
