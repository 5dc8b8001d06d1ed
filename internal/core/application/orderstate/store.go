// Package orderstate keeps the live read model of every order: one immutable snapshot per
// order, replaced as a whole after each committed event.
package orderstate

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
)

// Filter selects orders by status. An empty filter selects every order.
type Filter struct {
	Statuses []order.Status
}

// All selects every order.
func All() Filter {
	return Filter{}
}

// Active selects orders that have not reached a terminal status.
func Active() Filter {
	return Filter{Statuses: []order.Status{order.Created, order.Assigned, order.PickedUp, order.InTransit}}
}

// Completed selects delivered orders.
func Completed() Filter {
	return Filter{Statuses: []order.Status{order.Delivered}}
}

// Pending selects orders still waiting for a rider.
func Pending() Filter {
	return Filter{Statuses: []order.Status{order.Created}}
}

// ByStatus selects orders in exactly one status.
func ByStatus(s order.Status) Filter {
	return Filter{Statuses: []order.Status{s}}
}

// ParseFilter accepts "", "all", "active", "completed", "pending" or a status name.
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return All(), nil
	case "active":
		return Active(), nil
	case "completed":
		return Completed(), nil
	case "pending":
		return Pending(), nil
	}
	status, err := order.ParseStatus(s)
	if err != nil {
		return Filter{}, errs.NewValueIsInvalidErrorWithCause("filter",
			fmt.Errorf("%q is neither a status nor one of all, active, completed, pending", s))
	}
	return ByStatus(status), nil
}

// Matches reports whether s passes the filter.
func (f Filter) Matches(s order.Snapshot) bool {
	return len(f.Statuses) == 0 || slices.Contains(f.Statuses, s.Status)
}

// Store is the OrderState read model. Writers publish a new snapshot per event with a
// compare-and-swap; readers load snapshots without locking.
type Store struct {
	orders sync.Map // kernel.UUID -> *order.Snapshot
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// OnEvent folds a committed event into the order's snapshot. Events at or below the
// snapshot's version were already applied and are ignored.
func (s *Store) OnEvent(_ context.Context, e order.Event) error {
	for {
		current, ok := s.load(e.OrderID)
		if !ok {
			o, err := order.NewOrder(e)
			if err != nil {
				return errs.NewVersionIsInvalidError("order state",
					fmt.Errorf("no state for order %s at event %s: %w", e.OrderID, e.ID(), err))
			}
			next := o.Snapshot()
			if _, loaded := s.orders.LoadOrStore(e.OrderID, &next); !loaded {
				return nil
			}
			continue
		}

		if e.Sequence <= current.Version {
			return nil
		}

		o, err := order.RestoreOrder(*current)
		if err != nil {
			return err
		}
		if err := o.Apply(e); err != nil {
			return fmt.Errorf("order state %s: %w", e.ID(), err)
		}
		next := o.Snapshot()
		if s.orders.CompareAndSwap(e.OrderID, current, &next) {
			return nil
		}
	}
}

// Rebuild folds the whole log into the store. Orders already present keep the events they
// have and only take the newer ones.
func (s *Store) Rebuild(ctx context.Context, log ports.EventLog) error {
	for e, err := range log.ReadAll(ctx, 0) {
		if err != nil {
			return err
		}
		if err := s.OnEvent(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the snapshot of one order.
func (s *Store) Get(id kernel.UUID) (order.Snapshot, error) {
	snap, ok := s.load(id)
	if !ok {
		return order.Snapshot{}, errs.NewObjectNotFoundError("order", id)
	}
	return clone(*snap), nil
}

// CustomerRef returns the customer reference of an order, if the order is known.
func (s *Store) CustomerRef(id kernel.UUID) (string, bool) {
	snap, ok := s.load(id)
	if !ok {
		return "", false
	}
	return snap.CustomerRef, true
}

// List returns the orders passing f, oldest first.
func (s *Store) List(f Filter) []order.Snapshot {
	var out []order.Snapshot
	s.orders.Range(func(_, value any) bool {
		snap := value.(*order.Snapshot)
		if f.Matches(*snap) {
			out = append(out, clone(*snap))
		}
		return true
	})

	slices.SortFunc(out, func(a, b order.Snapshot) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), a.ID.Compare(b.ID))
	})
	return out
}

// Len returns the number of known orders.
func (s *Store) Len() int {
	n := 0
	s.orders.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (s *Store) load(id kernel.UUID) (*order.Snapshot, bool) {
	v, ok := s.orders.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*order.Snapshot), true
}

// clone detaches the map and slices of a published snapshot from the caller.
func clone(s order.Snapshot) order.Snapshot {
	s.StatusTimestamps = maps.Clone(s.StatusTimestamps)
	s.History = slices.Clone(s.History)
	if s.RiderID != nil {
		id := *s.RiderID
		s.RiderID = &id
	}
	if s.Proof != nil {
		p := *s.Proof
		s.Proof = &p
	}
	return s
}
