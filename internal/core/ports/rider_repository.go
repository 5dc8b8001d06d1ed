package ports

import (
	"context"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/rider"
)

// RiderRepository persists the rider records: identity, name and availability. Order slots
// are not stored; they are rebuilt from the event log.
type RiderRepository interface {
	// Add stores a newly registered rider.
	Add(ctx context.Context, r rider.Snapshot) error

	// Update stores the name and availability of an existing rider.
	Update(ctx context.Context, r rider.Snapshot) error

	// Get retrieves a rider by id. Unknown ids yield an ObjectNotFoundError.
	Get(ctx context.Context, id kernel.UUID) (*rider.Rider, error)

	// GetAll retrieves every rider.
	GetAll(ctx context.Context) ([]*rider.Rider, error)
}
