package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/rider"
	"dispatch/internal/pkg/errs"
)

// RiderRepository is an in-memory ports.RiderRepository.
type RiderRepository struct {
	mu     sync.RWMutex
	riders map[kernel.UUID]rider.Snapshot
}

// NewRiderRepository creates an empty repository.
func NewRiderRepository() *RiderRepository {
	return &RiderRepository{riders: make(map[kernel.UUID]rider.Snapshot)}
}

// Add implements ports.RiderRepository.
func (r *RiderRepository) Add(ctx context.Context, s rider.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ID.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.riders[s.ID]; ok {
		return errs.NewValueIsInvalidError("rider " + s.ID.String() + " already exists")
	}
	s.CurrentOrderID = nil
	r.riders[s.ID] = s
	return nil
}

// Update implements ports.RiderRepository.
func (r *RiderRepository) Update(ctx context.Context, s rider.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.riders[s.ID]; !ok {
		return errs.NewObjectNotFoundError("rider", s.ID)
	}
	s.CurrentOrderID = nil
	r.riders[s.ID] = s
	return nil
}

// Get implements ports.RiderRepository.
func (r *RiderRepository) Get(ctx context.Context, id kernel.UUID) (*rider.Rider, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	s, ok := r.riders[id]
	r.mu.RUnlock()

	if !ok {
		return nil, errs.NewObjectNotFoundError("rider", id)
	}
	return rider.RestoreRider(s.ID, s.Name, s.Available)
}

// GetAll implements ports.RiderRepository.
func (r *RiderRepository) GetAll(ctx context.Context) ([]*rider.Rider, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	snaps := make([]rider.Snapshot, 0, len(r.riders))
	for _, s := range r.riders {
		snaps = append(snaps, s)
	}
	r.mu.RUnlock()

	slices.SortFunc(snaps, func(a, b rider.Snapshot) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), a.ID.Compare(b.ID))
	})

	out := make([]*rider.Rider, 0, len(snaps))
	for _, s := range snaps {
		rd, err := rider.RestoreRider(s.ID, s.Name, s.Available)
		if err != nil {
			return nil, err
		}
		out = append(out, rd)
	}
	return out, nil
}
