// Package notification describes the messages the engine asks an outbound transport to
// deliver after an order event commits.
package notification

import (
	"strconv"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
)

// Recipient is the audience of an intent.
type Recipient string

const (
	Customer Recipient = "customer"
	Rider    Recipient = "rider"
)

// Intent is one message to one recipient. ID is "<event id>/<recipient>", so an intent
// derived twice from the same event is recognisable as a duplicate.
type Intent struct {
	ID          string            `json:"id"`
	EventID     string            `json:"event_id"`
	Recipient   Recipient         `json:"recipient"`
	RecipientID string            `json:"recipient_id"`
	OrderID     kernel.UUID       `json:"order_id"`
	Kind        order.EventKind   `json:"kind"`
	Payload     map[string]string `json:"payload"`
	CreatedAt   time.Time         `json:"created_at"`
}

// CustomerResolver returns the customer reference of an order, if known.
type CustomerResolver func(orderID kernel.UUID) (string, bool)

// FromEvent maps a committed event to the intents it produces:
//
//	StatusChanged            customer; plus the rider on Assigned and on Cancelled with a rider
//	RiderAssigned (reassign) the new rider and the previous rider
//	DeliveryConfirmed        customer and rider
//	OrderCreated             nothing
//
// Customer intents are addressed to the order's customer reference when resolve knows it and
// to the order id otherwise.
func FromEvent(e order.Event, resolve CustomerResolver) []Intent {
	var out []Intent
	customer := func() {
		id := e.OrderID.String()
		if resolve != nil {
			if ref, ok := resolve(e.OrderID); ok && ref != "" {
				id = ref
			}
		}
		out = append(out, newIntent(e, Customer, id, ""))
	}
	rider := func(riderID *kernel.UUID, suffix string) {
		if riderID != nil {
			out = append(out, newIntent(e, Rider, riderID.String(), suffix))
		}
	}

	switch e.Kind {
	case order.StatusChanged:
		customer()
		if e.Payload.To == order.Assigned || e.Payload.To == order.Cancelled {
			rider(e.Payload.RiderID, "")
		}
	case order.RiderAssigned:
		if e.Payload.PreviousRiderID != nil {
			rider(e.Payload.RiderID, "")
			rider(e.Payload.PreviousRiderID, "previous")
		}
	case order.DeliveryConfirmed:
		customer()
		rider(e.Payload.RiderID, "")
	case order.OrderCreated, order.UnknownEvent:
	}
	return out
}

func newIntent(e order.Event, recipient Recipient, recipientID, suffix string) Intent {
	eventID := e.ID().String()
	id := eventID + "/" + string(recipient)
	if suffix != "" {
		id += "/" + suffix
	}

	payload := map[string]string{
		"order_id": e.OrderID.String(),
		"sequence": strconv.FormatUint(e.Sequence, 10),
		"actor":    e.Actor.String(),
	}
	if e.Payload.To != order.Unknown {
		payload["status"] = e.Payload.To.String()
	}
	if e.Payload.From != order.Unknown {
		payload["previous_status"] = e.Payload.From.String()
	}
	if e.Payload.RiderID != nil {
		payload["rider_id"] = e.Payload.RiderID.String()
	}
	if e.Payload.PreviousRiderID != nil {
		payload["previous_rider_id"] = e.Payload.PreviousRiderID.String()
	}
	if e.Payload.Proof != nil {
		payload["proof_kind"] = string(e.Payload.Proof.Kind)
	}

	return Intent{
		ID:          id,
		EventID:     eventID,
		Recipient:   recipient,
		RecipientID: recipientID,
		OrderID:     e.OrderID,
		Kind:        e.Kind,
		Payload:     payload,
		CreatedAt:   e.OccurredAt,
	}
}
