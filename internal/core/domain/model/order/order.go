package order

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
)

var (
	// ErrOrderIsNotConstructed is returned when an Order was not built from an OrderCreated event.
	ErrOrderIsNotConstructed = errors.New("Order must be created from an OrderCreated event")
)

// Transition is one entry of an order's status history.
type Transition struct {
	From     Status    `json:"from"`
	To       Status    `json:"to"`
	Actor    Actor     `json:"actor"`
	At       time.Time `json:"at"`
	Sequence uint64    `json:"sequence"`
}

// Order is the aggregate of one order, rebuilt by folding its events in sequence order.
// It never changes other than through Apply, so the same events always produce the same
// Order.
//
// Order follows these invariants:
//   - the first applied event is OrderCreated with sequence 1
//   - every following event carries the next sequence (version + 1)
//   - a rider is attached in Assigned, PickedUp, InTransit and Delivered, never in Created
//   - Delivered and Cancelled accept no further status changes
//
// Order is not safe for concurrent mutation. Share Snapshot values instead.
//
// Commands never edit an Order directly. They replay it from the log, decide which events to
// append and fold those events back in once the append has committed.
//
// Example:
//
//	created, err := order.NewOrderCreatedEvent(kernel.NewUUID(), agent, now, "cust-42", 2500)
//	if err != nil {
//	    return err
//	}
//	o, err := order.NewOrder(created)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(o.Status(), o.Version()) // Created 1
type Order struct {
	id          kernel.UUID
	customerRef string
	amount      int64
	status      Status
	riderID     *kernel.UUID
	proof       *Proof
	createdAt   time.Time
	updatedAt   time.Time
	enteredAt   map[Status]time.Time
	history     []Transition
	version     uint64

	isConstructed bool
}

// NewOrder creates an Order from its OrderCreated event.
func NewOrder(created Event) (*Order, error) {
	o := &Order{}
	if err := o.Apply(created); err != nil {
		return nil, err
	}
	return o, nil
}

// RestoreOrder rebuilds an Order from a Snapshot so that further events can be applied to it.
//
// The snapshot may have been taken between two events of one committed batch, for example
// after RiderAssigned and before the StatusChanged to Assigned that follows it. The rider
// rule is therefore not checked here; Replay checks it once the whole stream is folded.
func RestoreOrder(s Snapshot) (*Order, error) {
	if err := s.ID.Validate(); err != nil {
		return nil, err
	}
	if err := s.Status.Validate(); err != nil {
		return nil, err
	}
	if s.Version == 0 {
		return nil, errs.NewValueIsRequiredError("version")
	}

	o := &Order{
		id:            s.ID,
		customerRef:   s.CustomerRef,
		amount:        s.Amount,
		status:        s.Status,
		riderID:       copyUUID(s.RiderID),
		createdAt:     s.CreatedAt,
		updatedAt:     s.UpdatedAt,
		enteredAt:     maps.Clone(s.StatusTimestamps),
		history:       slices.Clone(s.History),
		version:       s.Version,
		isConstructed: true,
	}
	if s.Proof != nil {
		p := *s.Proof
		o.proof = &p
	}
	if o.enteredAt == nil {
		o.enteredAt = map[Status]time.Time{}
	}
	return o, nil
}

// Replay folds an event stream into an Order. An empty stream yields ObjectNotFound for
// orderID. The stream must belong to orderID and be in sequence order.
//
// Replay is how every command sees the current order: the log is authoritative, and the
// read model is never consulted on the write path. A stream that leaves the order breaking
// an invariant (a dispatched order without a rider, say) is rejected.
//
// Example:
//
//	o, err := order.Replay(orderID, log.ReadFrom(ctx, orderID, 0))
//	if errors.Is(err, errs.ErrObjectNotFound) {
//	    return c.JSON(http.StatusNotFound, ...)
//	}
func Replay(orderID kernel.UUID, events iter.Seq2[Event, error]) (*Order, error) {
	o := &Order{}
	for e, err := range events {
		if err != nil {
			return nil, err
		}
		if !e.OrderID.IsEqual(orderID) {
			return nil, errs.NewValueIsInvalidErrorWithCause("event order id",
				fmt.Errorf("event %s does not belong to order %s", e.ID(), orderID))
		}
		if err := o.Apply(e); err != nil {
			return nil, fmt.Errorf("replay %s: %w", e.ID(), err)
		}
	}
	if !o.isConstructed {
		return nil, errs.NewObjectNotFoundError("order", orderID)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// Apply folds one event into the order. The event must carry the next sequence.
// A rejected event leaves the order unchanged.
func (o *Order) Apply(e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	if !o.isConstructed {
		if e.Kind != OrderCreated {
			return errs.NewValueIsInvalidErrorWithCause("event kind",
				fmt.Errorf("first event of an order must be %s, got %s", OrderCreated, e.Kind))
		}
	} else {
		if !e.OrderID.IsEqual(o.id) {
			return errs.NewValueIsInvalidErrorWithCause("event order id",
				fmt.Errorf("event %s does not belong to order %s", e.ID(), o.id))
		}
		if e.Sequence != o.version+1 {
			return errs.NewVersionIsInvalidError("event sequence",
				fmt.Errorf("expected %d, got %d", o.version+1, e.Sequence))
		}
	}

	switch e.Kind {
	case OrderCreated:
		if o.isConstructed {
			return errs.NewValueIsInvalidErrorWithCause("event kind", fmt.Errorf("order %s already exists", o.id))
		}
		o.id = e.OrderID
		o.customerRef = e.Payload.CustomerRef
		o.amount = e.Payload.Amount
		o.status = Created
		o.createdAt = e.OccurredAt
		o.enteredAt = map[Status]time.Time{Created: e.OccurredAt}
		o.isConstructed = true
	case StatusChanged:
		if err := o.changeStatus(e, e.Payload.From, e.Payload.To); err != nil {
			return err
		}
		if e.Payload.RiderID != nil {
			o.riderID = copyUUID(e.Payload.RiderID)
		}
	case RiderAssigned:
		if o.status.IsTerminal() {
			return errs.NewValueIsInvalidErrorWithCause("status is invalid",
				fmt.Errorf("%s order cannot take a rider", o.status))
		}
		if prev := e.Payload.PreviousRiderID; prev != nil && (o.riderID == nil || !o.riderID.IsEqual(*prev)) {
			return errs.NewValueIsInvalidErrorWithCause("previous rider id",
				fmt.Errorf("order %s is not held by rider %s", o.id, prev))
		}
		o.riderID = copyUUID(e.Payload.RiderID)
	case DeliveryConfirmed:
		if err := o.changeStatus(e, InTransit, Delivered); err != nil {
			return err
		}
		p := *e.Payload.Proof
		o.proof = &p
	}

	o.version = e.Sequence
	o.updatedAt = e.OccurredAt
	return nil
}

// ApplyAll applies a batch of events. On error the order is left at the last applied event;
// callers working on a batch should apply it to a Clone.
func (o *Order) ApplyAll(events []Event) error {
	for _, e := range events {
		if err := o.Apply(e); err != nil {
			return err
		}
	}
	return nil
}

func (o *Order) changeStatus(e Event, from, to Status) error {
	if o.status != from {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid",
			fmt.Errorf("event %s expects %s, order is %s", e.ID(), from, o.status))
	}
	if o.status.IsTerminal() {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid",
			fmt.Errorf("%s is terminal", o.status))
	}
	o.status = to
	o.enteredAt[to] = e.OccurredAt
	o.history = append(o.history, Transition{
		From:     from,
		To:       to,
		Actor:    e.Actor,
		At:       e.OccurredAt,
		Sequence: e.Sequence,
	})
	return nil
}

// Validate ensures the Order was built from an OrderCreated event and that its status and
// rider agree.
func (o *Order) Validate() error {
	if o == nil || !o.isConstructed {
		return ErrOrderIsNotConstructed
	}
	return o.status.ValidateCanHaveRider(o.riderID != nil)
}

// Clone returns a deep copy that can be mutated independently.
func (o *Order) Clone() *Order {
	c := *o
	c.riderID = copyUUID(o.riderID)
	if o.proof != nil {
		p := *o.proof
		c.proof = &p
	}
	c.enteredAt = maps.Clone(o.enteredAt)
	c.history = slices.Clone(o.history)
	return &c
}

// IsEqual compares two orders by their identifiers.
func (o *Order) IsEqual(other *Order) bool {
	return other != nil && o.id.IsEqual(other.id)
}

// ID returns the order's identifier.
func (o *Order) ID() kernel.UUID {
	return o.id
}

// CustomerRef returns the customer reference the order was created for.
func (o *Order) CustomerRef() string {
	return o.customerRef
}

// Amount returns the order value in minor units.
func (o *Order) Amount() int64 {
	return o.amount
}

// Status returns the current status.
func (o *Order) Status() Status {
	return o.status
}

// Rider returns the attached rider, or nil.
func (o *Order) Rider() *kernel.UUID {
	return copyUUID(o.riderID)
}

// Proof returns the delivery proof, or nil.
func (o *Order) Proof() *Proof {
	if o.proof == nil {
		return nil
	}
	p := *o.proof
	return &p
}

// Version returns the sequence of the last applied event.
func (o *Order) Version() uint64 {
	return o.version
}

// CreatedAt returns the time of the OrderCreated event.
func (o *Order) CreatedAt() time.Time {
	return o.createdAt
}

// History returns a copy of the status transitions in the order they happened.
func (o *Order) History() []Transition {
	return slices.Clone(o.history)
}

// Snapshot is an immutable copy of an Order, safe to share between goroutines and to
// serialize.
type Snapshot struct {
	ID               kernel.UUID          `json:"id"`
	CustomerRef      string               `json:"customer_ref"`
	Amount           int64                `json:"amount"`
	Status           Status               `json:"status"`
	RiderID          *kernel.UUID         `json:"rider_id,omitempty"`
	Proof            *Proof               `json:"proof,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
	StatusTimestamps map[Status]time.Time `json:"status_timestamps"`
	History          []Transition         `json:"history"`
	Version          uint64               `json:"version"`
}

// Snapshot copies the current state of the order.
func (o *Order) Snapshot() Snapshot {
	history := slices.Clone(o.history)
	if history == nil {
		history = []Transition{}
	}
	return Snapshot{
		ID:               o.id,
		CustomerRef:      o.customerRef,
		Amount:           o.amount,
		Status:           o.status,
		RiderID:          o.Rider(),
		Proof:            o.Proof(),
		CreatedAt:        o.createdAt,
		UpdatedAt:        o.updatedAt,
		StatusTimestamps: maps.Clone(o.enteredAt),
		History:          history,
		Version:          o.version,
	}
}

// HasRider reports whether rider currently holds the order.
func (s Snapshot) HasRider(rider kernel.UUID) bool {
	return s.RiderID != nil && s.RiderID.IsEqual(rider)
}
