package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
)

// EventKind is the type of a recorded fact about an order.
type EventKind int

const (
	// UnknownEvent represents an invalid or undefined event kind.
	UnknownEvent EventKind = iota
	// OrderCreated opens the stream of an order.
	OrderCreated
	// StatusChanged moves the order along its lifecycle.
	StatusChanged
	// RiderAssigned binds a rider to the order. A non-nil PreviousRiderID marks a reassignment.
	RiderAssigned
	// DeliveryConfirmed closes the order as Delivered and carries the completion proof.
	DeliveryConfirmed
)

func getEventKindStrings() map[EventKind]string {
	return map[EventKind]string{
		UnknownEvent:      "Unknown",
		OrderCreated:      "OrderCreated",
		StatusChanged:     "StatusChanged",
		RiderAssigned:     "RiderAssigned",
		DeliveryConfirmed: "DeliveryConfirmed",
	}
}

// ParseEventKind converts a kind name into an EventKind.
func ParseEventKind(s string) (EventKind, error) {
	for kind, str := range getEventKindStrings() {
		if str == s && kind != UnknownEvent {
			return kind, nil
		}
	}
	return UnknownEvent, errs.NewValueIsInvalidErrorWithCause("event kind is invalid", fmt.Errorf("%q is not a valid event kind", s))
}

func (k EventKind) String() string {
	if str, ok := getEventKindStrings()[k]; ok {
		return str
	}
	return "Unknown"
}

// MarshalText encodes the kind by name.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name produced by MarshalText.
func (k *EventKind) UnmarshalText(text []byte) error {
	parsed, err := ParseEventKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ProofKind is the form of evidence a rider gives when confirming a delivery.
type ProofKind string

const (
	ProofSignature ProofKind = "signature"
	ProofPhoto     ProofKind = "photo"
	ProofCode      ProofKind = "code"
)

// Proof is the completion evidence of a delivered order.
type Proof struct {
	Kind      ProofKind `json:"kind"`
	Reference string    `json:"reference"`
}

// NewProof creates a validated Proof.
func NewProof(kind ProofKind, reference string) (Proof, error) {
	p := Proof{Kind: kind, Reference: strings.TrimSpace(reference)}
	if err := p.Validate(); err != nil {
		return Proof{}, err
	}
	return p, nil
}

// Validate checks the kind and requires a reference.
func (p Proof) Validate() error {
	var kindErr, refErr error
	switch p.Kind {
	case ProofSignature, ProofPhoto, ProofCode:
	default:
		kindErr = errs.NewValueIsInvalidErrorWithCause("proof kind", fmt.Errorf("%q is not a valid proof kind", p.Kind))
	}
	if p.Reference == "" {
		refErr = errs.NewValueIsRequiredError("proof reference")
	}
	return errors.Join(kindErr, refErr)
}

// Payload holds the kind-specific fields of an event. Unused fields stay zero.
type Payload struct {
	CustomerRef     string       `json:"customer_ref,omitempty"`
	Amount          int64        `json:"amount,omitempty"`
	From            Status       `json:"from,omitempty"`
	To              Status       `json:"to,omitempty"`
	RiderID         *kernel.UUID `json:"rider_id,omitempty"`
	PreviousRiderID *kernel.UUID `json:"previous_rider_id,omitempty"`
	Proof           *Proof       `json:"proof,omitempty"`
}

// EventID identifies an event. It is unique and monotonic per order.
type EventID struct {
	OrderID  kernel.UUID
	Sequence uint64
}

func (id EventID) String() string {
	return fmt.Sprintf("%s/%d", id.OrderID, id.Sequence)
}

// Event is an immutable fact about one order.
//
// Sequence is assigned by the writer (last sequence + 1, 1-based and gap-free per order).
// Position is assigned by the event log at commit and is strictly increasing across all
// orders; it is zero on events that have not been appended yet.
//
// One command may produce several events, appended together. Assigning a rider, for one,
// records RiderAssigned and then StatusChanged(Created → Assigned) with consecutive
// sequences.
//
// Example:
//
//	seq := o.Version() + 1
//	batch := []order.Event{
//	    order.NewRiderAssignedEvent(o.ID(), seq, agent, now, riderID, nil),
//	    order.NewStatusChangedEvent(o.ID(), seq+1, agent, now, order.Created, order.Assigned, &riderID),
//	}
//	committed, err := log.Append(ctx, batch...)
type Event struct {
	OrderID    kernel.UUID `json:"order_id"`
	Sequence   uint64      `json:"sequence"`
	Position   uint64      `json:"position"`
	Kind       EventKind   `json:"kind"`
	Actor      Actor       `json:"actor"`
	Payload    Payload     `json:"payload"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// ID returns the (order, sequence) identifier of the event.
func (e Event) ID() EventID {
	return EventID{OrderID: e.OrderID, Sequence: e.Sequence}
}

// Validate checks the envelope and the payload fields the kind requires.
func (e Event) Validate() error {
	var envErr []error
	if err := e.OrderID.Validate(); err != nil {
		envErr = append(envErr, err)
	}
	if e.Sequence == 0 {
		envErr = append(envErr, errs.NewValueIsRequiredError("event sequence"))
	}
	if err := e.Actor.Validate(); err != nil {
		envErr = append(envErr, err)
	}
	if e.OccurredAt.IsZero() {
		envErr = append(envErr, errs.NewValueIsRequiredError("event time"))
	}
	if len(envErr) > 0 {
		return errors.Join(envErr...)
	}

	p := e.Payload
	switch e.Kind {
	case OrderCreated:
		if e.Sequence != 1 {
			return errs.NewValueIsInvalidErrorWithCause("event sequence", fmt.Errorf("%s must be the first event, got %d", e.Kind, e.Sequence))
		}
		var refErr, amountErr error
		if strings.TrimSpace(p.CustomerRef) == "" {
			refErr = errs.NewValueIsRequiredError("customer reference")
		}
		if p.Amount <= 0 {
			amountErr = errs.NewValueIsInvalidErrorWithCause("amount", fmt.Errorf("%d is not greater than 0", p.Amount))
		}
		return errors.Join(refErr, amountErr)
	case StatusChanged:
		return errors.Join(p.From.Validate(), p.To.Validate())
	case RiderAssigned:
		if p.RiderID == nil {
			return errs.NewValueIsRequiredError("rider id")
		}
		return p.RiderID.Validate()
	case DeliveryConfirmed:
		if p.Proof == nil {
			return errs.NewValueIsRequiredError("proof")
		}
		return p.Proof.Validate()
	default:
		return errs.NewValueIsInvalidErrorWithCause("event kind", fmt.Errorf("%d is not a valid event kind", e.Kind))
	}
}

// NewOrderCreatedEvent opens a new order stream.
func NewOrderCreatedEvent(orderID kernel.UUID, actor Actor, at time.Time, customerRef string, amount int64) (Event, error) {
	e := Event{
		OrderID:    orderID,
		Sequence:   1,
		Kind:       OrderCreated,
		Actor:      actor,
		OccurredAt: at,
		Payload: Payload{
			CustomerRef: strings.TrimSpace(customerRef),
			Amount:      amount,
		},
	}
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}

// NewStatusChangedEvent records a move from one status to another. rider is the rider attached
// to the order after the change, if any.
func NewStatusChangedEvent(orderID kernel.UUID, seq uint64, actor Actor, at time.Time, from, to Status, rider *kernel.UUID) Event {
	return Event{
		OrderID:    orderID,
		Sequence:   seq,
		Kind:       StatusChanged,
		Actor:      actor,
		OccurredAt: at,
		Payload: Payload{
			From:    from,
			To:      to,
			RiderID: copyUUID(rider),
		},
	}
}

// NewRiderAssignedEvent binds rider to the order. previous is set on reassignment.
func NewRiderAssignedEvent(orderID kernel.UUID, seq uint64, actor Actor, at time.Time, rider kernel.UUID, previous *kernel.UUID) Event {
	return Event{
		OrderID:    orderID,
		Sequence:   seq,
		Kind:       RiderAssigned,
		Actor:      actor,
		OccurredAt: at,
		Payload: Payload{
			RiderID:         &rider,
			PreviousRiderID: copyUUID(previous),
		},
	}
}

// NewDeliveryConfirmedEvent closes the order as Delivered with the given proof.
func NewDeliveryConfirmedEvent(orderID kernel.UUID, seq uint64, actor Actor, at time.Time, rider *kernel.UUID, proof Proof) Event {
	return Event{
		OrderID:    orderID,
		Sequence:   seq,
		Kind:       DeliveryConfirmed,
		Actor:      actor,
		OccurredAt: at,
		Payload: Payload{
			From:    InTransit,
			To:      Delivered,
			RiderID: copyUUID(rider),
			Proof:   &proof,
		},
	}
}

func copyUUID(id *kernel.UUID) *kernel.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

// ValidateBatch checks that events are non-empty, valid, belong to one order and carry
// consecutive sequences. Event logs call it before committing a batch.
func ValidateBatch(events []Event) error {
	if len(events) == 0 {
		return errs.NewValueIsRequiredError("events")
	}
	first := events[0]
	for i, e := range events {
		if err := e.Validate(); err != nil {
			return err
		}
		if !e.OrderID.IsEqual(first.OrderID) {
			return errs.NewValueIsInvalidErrorWithCause("events",
				fmt.Errorf("batch mixes orders %s and %s", first.OrderID, e.OrderID))
		}
		if e.Sequence != first.Sequence+uint64(i) {
			return errs.NewValueIsInvalidErrorWithCause("events",
				fmt.Errorf("batch sequences are not consecutive at %s", e.ID()))
		}
	}
	return nil
}
