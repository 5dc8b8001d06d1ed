package queries

import (
	"context"
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/rider"
	"dispatch/internal/pkg/guard"
)

var (
	ErrGetRiderQueryIsNotConstructed = errors.New(
		"GetRiderQuery must be created via NewGetRiderQuery constructor",
	)
	ErrListRidersQueryIsNotConstructed = errors.New(
		"ListRidersQuery must be created via NewListRidersQuery constructor",
	)
)

// GetRiderQuery retrieves one rider with its availability and current order.
type GetRiderQuery struct { //nolint:recvcheck //using for validation
	riderID kernel.UUID

	guard guard.ConstructorGuard
}

func NewGetRiderQuery(riderID kernel.UUID) (GetRiderQuery, error) {
	if err := riderID.Validate(); err != nil {
		return GetRiderQuery{}, err
	}
	return GetRiderQuery{riderID: riderID, guard: guard.NewConstructorGuard()}, nil
}

// Validate ensures the query was created through the constructor.
func (q GetRiderQuery) Validate() error {
	return q.guard.Validate(ErrGetRiderQueryIsNotConstructed)
}

func (q GetRiderQuery) RiderID() kernel.UUID {
	return q.riderID
}

type GetRiderQueryHandler struct {
	riders RiderReader
}

func NewGetRiderQueryHandler(riders RiderReader) GetRiderQueryHandler {
	return GetRiderQueryHandler{riders: riders}
}

func (h GetRiderQueryHandler) Handle(_ context.Context, q GetRiderQuery) (rider.Snapshot, error) {
	if err := q.Validate(); err != nil {
		return rider.Snapshot{}, err
	}
	return h.riders.Rider(q.RiderID())
}

// ListRidersQuery lists every rider, optionally only those free to take an order.
type ListRidersQuery struct {
	freeOnly bool

	guard guard.ConstructorGuard
}

func NewListRidersQuery(freeOnly bool) ListRidersQuery {
	return ListRidersQuery{freeOnly: freeOnly, guard: guard.NewConstructorGuard()}
}

// Validate ensures the query was created through the constructor.
func (q ListRidersQuery) Validate() error {
	return q.guard.Validate(ErrListRidersQueryIsNotConstructed)
}

// FreeOnly reports whether only available riders without an order are listed.
func (q ListRidersQuery) FreeOnly() bool {
	return q.freeOnly
}

type ListRidersQueryHandler struct {
	riders RiderReader
}

func NewListRidersQueryHandler(riders RiderReader) ListRidersQueryHandler {
	return ListRidersQueryHandler{riders: riders}
}

// Handle returns the riders ordered by name.
func (h ListRidersQueryHandler) Handle(_ context.Context, q ListRidersQuery) ([]rider.Snapshot, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	all := h.riders.Riders()
	if !q.FreeOnly() {
		return all, nil
	}
	free := make([]rider.Snapshot, 0, len(all))
	for _, r := range all {
		if r.Available && r.CurrentOrderID == nil {
			free = append(free, r)
		}
	}
	return free, nil
}
