// Package store persists job records keyed by job id. Each record is
// written whole on every update; single-writer discipline on the executor
// side means no record-level locking is needed here, only per-key atomicity.
package store

import (
	"context"

	"github.com/wavecanvas/api/internal/model"
)

// Store is the durable task record store.
type Store interface {
	// Create persists a new record. The id must not already exist.
	Create(ctx context.Context, job *model.Job) error
	// Get returns the record for id, or errs.ErrNotFound.
	Get(ctx context.Context, id string) (*model.Job, error)
	// Update overwrites the record for job.ID.
	Update(ctx context.Context, job *model.Job) error
	// Delete removes the record for id, or errs.ErrNotFound.
	Delete(ctx context.Context, id string) error
	// List enumerates all records.
	List(ctx context.Context) ([]*model.Job, error)
}
