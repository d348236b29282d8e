// Copyright (c) 2026 Nimbus Labs. All rights reserved.
// Author: dev@nimbuslabs.io

package upload

import (
	"context"

	"github.com/nimbuslabs/nimbus/pkg/pagination"
)

// # Resource Data Access

// ResourceRepository defines the persistence contract for uploaded files.
type ResourceRepository interface {

	/*
		Create persists a new resource record.

		Parameters:
		  - context: context.Context
		  - resource: *Resource

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, resource *Resource) error

	/*
		FindByID returns the resource with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Resource: Hydrated entity
		  - error: apperr.NotFound or database errors
	*/
	FindByID(context context.Context, id string) (*Resource, error)

	/*
		ListByUploader returns a page of a user's resources, newest first.

		Parameters:
		  - context: context.Context
		  - uploaderID: string
		  - params: pagination.Params

		Returns:
		  - []*Resource: Page of resources
		  - int: Total matching resource count
		  - error: Storage failures
	*/
	ListByUploader(context context.Context, uploaderID string, params pagination.Params) ([]*Resource, int, error)

	/*
		UpdateStatus transitions a resource's lifecycle status.

		Parameters:
		  - context: context.Context
		  - id: string
		  - status: ResourceStatus

		Returns:
		  - error: Persistence failures
	*/
	UpdateStatus(context context.Context, id string, status ResourceStatus) error
}
