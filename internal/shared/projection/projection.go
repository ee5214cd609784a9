package projection

import "time"

// Metadata captures persistence bookkeeping shared by projections.
type Metadata struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	// Version is the optimistic concurrency counter the projection was read at.
	Version int64
}

// Projection represents an aggregate view plus persistence metadata.
type Projection[T any] struct {
	Entity   T
	Metadata Metadata
}

// New wraps an entity with its metadata.
func New[T any](entity T, createdAt, updatedAt time.Time, version int64) *Projection[T] {
	return &Projection[T]{
		Entity: entity,
		Metadata: Metadata{
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
			Version:   version,
		},
	}
}
