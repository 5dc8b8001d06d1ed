package services

import (
	"cmp"
	"context"
	"iter"
	"maps"
	"slices"
	"sync"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/rider"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/keylock"
)

// CommitFunc makes a decision durable, usually by appending to the event log. The coordinator
// calls it while holding the rider locks and changes rider slots only if it returns nil.
type CommitFunc func(ctx context.Context) error

// RiderCommitFunc persists the rider record that is about to be published.
type RiderCommitFunc func(ctx context.Context, r rider.Snapshot) error

// AssignmentCoordinator owns the rider slots and is the only place they change.
//
// Key responsibilities:
//   - binding a rider to an order exactly once, even under concurrent requests
//   - swapping riders on reassignment without a window where both or neither hold the order
//   - releasing the slot in the same critical section that commits a terminal status
//
// Every operation takes the per-rider locks (sorted by id) for its whole duration, runs the
// caller's commit inside them and updates the in-memory slot only after the commit
// succeeded. Callers hold the order lock already, so locks are always taken order first,
// riders second. Lock waits honour the context; a deadline is reported as a Timeout.
type AssignmentCoordinator struct {
	mu     sync.RWMutex
	riders map[kernel.UUID]*rider.Rider
	locks  *keylock.Locker
}

// NewAssignmentCoordinator creates a coordinator with no riders. locks may be shared with
// the command pipeline; rider keys are namespaced.
func NewAssignmentCoordinator(locks *keylock.Locker) *AssignmentCoordinator {
	return &AssignmentCoordinator{
		riders: make(map[kernel.UUID]*rider.Rider),
		locks:  locks,
	}
}

// Assign binds riderID to the order described by o and runs commit.
//
// The order must be Created with no rider (OrderNotAssignable), the rider must be registered
// (ObjectNotFound), on shift and free (RiderUnavailable).
func (c *AssignmentCoordinator) Assign(ctx context.Context, o order.Snapshot, riderID kernel.UUID, commit CommitFunc) (rider.Snapshot, error) {
	if o.Status != order.Created || o.RiderID != nil {
		reason := "order is " + o.Status.String()
		if o.RiderID != nil {
			reason = "order already has rider " + o.RiderID.String()
		}
		return rider.Snapshot{}, errs.NewOrderNotAssignableError(o.ID.String(), reason)
	}

	unlock, err := c.lock(ctx, "assign rider", riderID)
	if err != nil {
		return rider.Snapshot{}, err
	}
	defer unlock()

	r, err := c.load(riderID)
	if err != nil {
		return rider.Snapshot{}, err
	}
	if err := r.Take(o.ID); err != nil {
		return rider.Snapshot{}, err
	}

	if err := commit(ctx); err != nil {
		return rider.Snapshot{}, err
	}

	c.store(r)
	return r.Snapshot(), nil
}

// Reassign moves an Assigned order from one rider to another. Only agents may reassign and
// only before pickup.
func (c *AssignmentCoordinator) Reassign(
	ctx context.Context,
	o order.Snapshot,
	actor order.Actor,
	from, to kernel.UUID,
	commit CommitFunc,
) (rider.Snapshot, error) {
	if actor.Role != order.Agent {
		return rider.Snapshot{}, errs.NewInvalidTransitionError(
			o.Status.String(), order.Assigned.String(), actor.Role.String(), "only agent may reassign a rider")
	}
	if o.Status != order.Assigned {
		return rider.Snapshot{}, errs.NewOrderNotAssignableError(o.ID.String(),
			"only Assigned orders can be reassigned, order is "+o.Status.String())
	}
	if !o.HasRider(from) {
		return rider.Snapshot{}, errs.NewOrderNotAssignableError(o.ID.String(), "order is not held by rider "+from.String())
	}
	if from.IsEqual(to) {
		return rider.Snapshot{}, errs.NewOrderNotAssignableError(o.ID.String(), "rider "+to.String()+" already holds the order")
	}

	unlock, err := c.lock(ctx, "reassign rider", from, to)
	if err != nil {
		return rider.Snapshot{}, err
	}
	defer unlock()

	next, err := c.load(to)
	if err != nil {
		return rider.Snapshot{}, err
	}
	if err := next.Take(o.ID); err != nil {
		return rider.Snapshot{}, err
	}

	prev, err := c.load(from)
	if err != nil {
		return rider.Snapshot{}, err
	}
	prev.Release(o.ID)

	if err := commit(ctx); err != nil {
		return rider.Snapshot{}, err
	}

	c.store(prev, next)
	return next.Snapshot(), nil
}

// Release runs commit and then empties riderID's slot if it holds orderID. It is used for the
// terminal statuses. A nil riderID commits without touching any slot.
func (c *AssignmentCoordinator) Release(ctx context.Context, orderID kernel.UUID, riderID *kernel.UUID, commit CommitFunc) error {
	if riderID == nil {
		return commit(ctx)
	}

	unlock, err := c.lock(ctx, "release rider", *riderID)
	if err != nil {
		return err
	}
	defer unlock()

	r, err := c.load(*riderID)
	if err != nil {
		// The rider record is gone; the order still has to reach its terminal status.
		return commit(ctx)
	}

	if err := commit(ctx); err != nil {
		return err
	}

	if r.Release(orderID) {
		c.store(r)
	}
	return nil
}

// Register adds a rider after commit persisted it.
func (c *AssignmentCoordinator) Register(ctx context.Context, r *rider.Rider, commit RiderCommitFunc) (rider.Snapshot, error) {
	if err := r.Validate(); err != nil {
		return rider.Snapshot{}, err
	}

	unlock, err := c.lock(ctx, "register rider", r.ID())
	if err != nil {
		return rider.Snapshot{}, err
	}
	defer unlock()

	if _, err := c.load(r.ID()); err == nil {
		return rider.Snapshot{}, errs.NewValueIsInvalidError("rider " + r.ID().String() + " is already registered")
	}

	r = r.Clone()
	if err := commit(ctx, r.Snapshot()); err != nil {
		return rider.Snapshot{}, err
	}

	c.store(r)
	return r.Snapshot(), nil
}

// SetAvailability puts a rider on or off shift after commit persisted the change. A rider
// going off shift keeps the order already held.
func (c *AssignmentCoordinator) SetAvailability(
	ctx context.Context,
	riderID kernel.UUID,
	available bool,
	commit RiderCommitFunc,
) (rider.Snapshot, error) {
	unlock, err := c.lock(ctx, "set rider availability", riderID)
	if err != nil {
		return rider.Snapshot{}, err
	}
	defer unlock()

	r, err := c.load(riderID)
	if err != nil {
		return rider.Snapshot{}, err
	}
	r.SetAvailability(available)

	if err := commit(ctx, r.Snapshot()); err != nil {
		return rider.Snapshot{}, err
	}

	c.store(r)
	return r.Snapshot(), nil
}

// Rider returns the current record of riderID.
func (c *AssignmentCoordinator) Rider(riderID kernel.UUID) (rider.Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.riders[riderID]
	if !ok {
		return rider.Snapshot{}, errs.NewObjectNotFoundError("rider", riderID)
	}
	return r.Snapshot(), nil
}

// Riders returns every rider ordered by name, then id.
func (c *AssignmentCoordinator) Riders() []rider.Snapshot {
	c.mu.RLock()
	out := make([]rider.Snapshot, 0, len(c.riders))
	for _, r := range c.riders {
		out = append(out, r.Snapshot())
	}
	c.mu.RUnlock()

	slices.SortFunc(out, func(a, b rider.Snapshot) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), a.ID.Compare(b.ID))
	})
	return out
}

// Restore replaces the rider set with riders and rebuilds their slots by replaying history
// in log order. A rider holds an order from its last RiderAssigned event until the order
// reaches a terminal status. Slots found for unknown riders are dropped.
func (c *AssignmentCoordinator) Restore(riders []*rider.Rider, history iter.Seq2[order.Event, error]) error {
	holders := make(map[kernel.UUID]kernel.UUID)
	for e, err := range history {
		if err != nil {
			return err
		}
		switch e.Kind {
		case order.RiderAssigned:
			holders[e.OrderID] = *e.Payload.RiderID
		case order.StatusChanged:
			if e.Payload.To.IsTerminal() {
				delete(holders, e.OrderID)
			}
		case order.DeliveryConfirmed:
			delete(holders, e.OrderID)
		case order.OrderCreated, order.UnknownEvent:
		}
	}

	restored := make(map[kernel.UUID]*rider.Rider, len(riders))
	for _, r := range riders {
		if err := r.Validate(); err != nil {
			return err
		}
		restored[r.ID()] = r.Clone()
	}

	orderIDs := slices.SortedFunc(maps.Keys(holders), kernel.UUID.Compare)
	for _, orderID := range orderIDs {
		if r, ok := restored[holders[orderID]]; ok {
			r.Occupy(orderID)
		}
	}

	c.mu.Lock()
	c.riders = restored
	c.mu.Unlock()
	return nil
}

func (c *AssignmentCoordinator) lock(ctx context.Context, op string, riderIDs ...kernel.UUID) (func(), error) {
	keys := make([]string, len(riderIDs))
	for i, id := range riderIDs {
		keys[i] = RiderLockKey(id)
	}
	unlock, err := c.locks.Lock(ctx, keys...)
	if err != nil {
		return nil, errs.NewTimeoutError(op, err)
	}
	return unlock, nil
}

// load returns a private copy of the rider; changes become visible through store.
func (c *AssignmentCoordinator) load(riderID kernel.UUID) (*rider.Rider, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.riders[riderID]
	if !ok {
		return nil, errs.NewObjectNotFoundError("rider", riderID)
	}
	return r.Clone(), nil
}

func (c *AssignmentCoordinator) store(riders ...*rider.Rider) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range riders {
		c.riders[r.ID()] = r
	}
}

// RiderLockKey is the keylock key of a rider.
func RiderLockKey(id kernel.UUID) string {
	return "rider/" + id.String()
}

// OrderLockKey is the keylock key of an order.
func OrderLockKey(id kernel.UUID) string {
	return "order/" + id.String()
}
