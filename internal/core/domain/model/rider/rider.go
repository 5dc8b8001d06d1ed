package rider

import (
	"errors"
	"fmt"
	"strings"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

// Domain errors for rider operations.
var (
	// ErrNameIsRequired is returned when a rider is registered without a name.
	ErrNameIsRequired = errs.NewValueIsRequiredError("name")
	// ErrRiderIsNotConstructed is returned when using an improperly initialized Rider.
	ErrRiderIsNotConstructed = errors.New("Rider must be created via NewRider constructor")
)

// Rider is the availability record of one rider: identity, whether the rider is on shift and
// the single order slot.
//
// Business rules:
//   - a rider holds at most one order at a time
//   - an unavailable rider cannot take an order but keeps the one already held
//   - the slot is released only for the order that occupies it
//
// Rider is mutated only by the assignment coordinator, under the rider's lock.
//
// Only identity and availability are persisted. The slot is derived state: after a restart
// the coordinator replays the event log and calls Occupy for every order still held.
//
// Example:
//
//	r, err := rider.NewRider(kernel.NewUUID(), "Ann")
//	if err != nil {
//	    return err
//	}
//	if err := r.Take(orderID); err != nil {
//	    return err // errs.ErrRiderUnavailable when off shift or busy
//	}
//	r.Release(orderID) // true
type Rider struct {
	id           kernel.UUID
	name         string
	available    bool
	currentOrder *kernel.UUID
	guard        guard.ConstructorGuard
}

// NewRider registers a rider. New riders start available with an empty slot.
func NewRider(id kernel.UUID, name string) (*Rider, error) {
	r := &Rider{
		available: true,
		guard:     guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		r.setID(id),
		r.setName(name),
	); err != nil {
		return nil, err
	}

	return r, nil
}

// RestoreRider rebuilds a Rider from persisted fields. The slot is not persisted; it is
// restored separately by replaying the event log.
func RestoreRider(id kernel.UUID, name string, available bool) (*Rider, error) {
	r, err := NewRider(id, name)
	if err != nil {
		return nil, err
	}
	r.available = available
	return r, nil
}

// Validate checks if the Rider was built by NewRider or RestoreRider.
func (r *Rider) Validate() error {
	if r == nil {
		return ErrRiderIsNotConstructed
	}
	return r.guard.Validate(ErrRiderIsNotConstructed)
}

// IsEqual compares two riders by their identifiers.
func (r *Rider) IsEqual(other *Rider) bool {
	return other != nil && r.id.IsEqual(other.id)
}

// ID returns the rider's identifier.
func (r *Rider) ID() kernel.UUID {
	return r.id
}

// Name returns the rider's display name.
func (r *Rider) Name() string {
	return r.name
}

// IsAvailable reports whether the rider is on shift.
func (r *Rider) IsAvailable() bool {
	return r.available
}

// CurrentOrder returns the order in the rider's slot, or nil.
func (r *Rider) CurrentOrder() *kernel.UUID {
	if r.currentOrder == nil {
		return nil
	}
	id := *r.currentOrder
	return &id
}

// IsFree reports whether the slot is empty.
func (r *Rider) IsFree() bool {
	return r.currentOrder == nil
}

// SetAvailability puts the rider on or off shift. Going off shift does not release the slot.
func (r *Rider) SetAvailability(available bool) {
	r.available = available
}

// CanTake checks that the rider is on shift and has an empty slot.
func (r *Rider) CanTake() error {
	if !r.available {
		return errs.NewRiderUnavailableError(r.id.String(), "rider is off shift")
	}
	if r.currentOrder != nil {
		return errs.NewRiderUnavailableError(r.id.String(), fmt.Sprintf("rider already holds order %s", r.currentOrder))
	}
	return nil
}

// Take puts orderID into the slot.
func (r *Rider) Take(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}
	if err := r.CanTake(); err != nil {
		return err
	}
	r.currentOrder = &orderID
	return nil
}

// Occupy puts orderID into the slot without checking availability. It is used when slots
// are rebuilt from committed history, which is authoritative.
func (r *Rider) Occupy(orderID kernel.UUID) {
	r.currentOrder = &orderID
}

// Release empties the slot if it holds orderID. Releasing an order the rider does not hold
// is a no-op and reports false.
func (r *Rider) Release(orderID kernel.UUID) bool {
	if r.currentOrder == nil || !r.currentOrder.IsEqual(orderID) {
		return false
	}
	r.currentOrder = nil
	return true
}

// Clone returns a copy that can be mutated independently.
func (r *Rider) Clone() *Rider {
	c := *r
	c.currentOrder = r.CurrentOrder()
	return &c
}

// Snapshot is an immutable, serializable copy of a Rider.
type Snapshot struct {
	ID             kernel.UUID  `json:"id"`
	Name           string       `json:"name"`
	Available      bool         `json:"available"`
	CurrentOrderID *kernel.UUID `json:"current_order_id,omitempty"`
}

// Snapshot copies the rider's state.
func (r *Rider) Snapshot() Snapshot {
	return Snapshot{
		ID:             r.id,
		Name:           r.name,
		Available:      r.available,
		CurrentOrderID: r.CurrentOrder(),
	}
}

func (r *Rider) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	r.id = id
	return nil
}

func (r *Rider) setName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameIsRequired
	}
	r.name = name
	return nil
}
