// Package repository contains data access abstractions for file metadata.
// Implementations live in subpackages (postgres, dynamodb) and cache wraps any of them.
package repository

import (
	"context"
	"errors"

	"filevault/internal/model"
)

// ErrNotFound is returned by Get when no record exists for the (owner, file) pair.
var ErrNotFound = errors.New("file record not found")

// FileRepository stores FileRecords keyed by (ownerID, fileID).
// No business logic here, strictly persistence operations.
type FileRepository interface {
	// Put upserts a record by (OwnerID, FileID).
	Put(ctx context.Context, rec *model.FileRecord) error

	// Get returns the record or ErrNotFound.
	Get(ctx context.Context, ownerID, fileID string) (*model.FileRecord, error)

	// ListByOwner returns every record of ownerID. Order is not significant.
	ListByOwner(ctx context.Context, ownerID string) ([]model.FileRecord, error)

	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, ownerID, fileID string) error

	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error
}
