package order_test

import (
	"encoding/json"
	"iter"
	"slices"
	"testing"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0    = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	agent = order.Actor{Role: order.Agent, ID: "agent-1"}
)

func riderActor(id kernel.UUID) order.Actor {
	return order.Actor{Role: order.Rider, ID: id.String()}
}

func stream(events ...order.Event) iter.Seq2[order.Event, error] {
	return func(yield func(order.Event, error) bool) {
		for _, e := range events {
			if !yield(e, nil) {
				return
			}
		}
	}
}

// lifecycle returns the events of an order that went all the way to Delivered.
func lifecycle(t *testing.T, orderID, riderID kernel.UUID) []order.Event {
	t.Helper()
	created, err := order.NewOrderCreatedEvent(orderID, agent, t0, "cust-7", 2599)
	require.NoError(t, err)
	proof, err := order.NewProof(order.ProofCode, "4821")
	require.NoError(t, err)

	return []order.Event{
		created,
		order.NewRiderAssignedEvent(orderID, 2, agent, t0.Add(time.Minute), riderID, nil),
		order.NewStatusChangedEvent(orderID, 3, agent, t0.Add(time.Minute), order.Created, order.Assigned, &riderID),
		order.NewStatusChangedEvent(orderID, 4, riderActor(riderID), t0.Add(5*time.Minute), order.Assigned, order.PickedUp, &riderID),
		order.NewStatusChangedEvent(orderID, 5, riderActor(riderID), t0.Add(6*time.Minute), order.PickedUp, order.InTransit, &riderID),
		order.NewDeliveryConfirmedEvent(orderID, 6, riderActor(riderID), t0.Add(20*time.Minute), &riderID, proof),
	}
}

func TestNewOrder(t *testing.T) {
	orderID := kernel.NewUUID()

	t.Run("should create order from OrderCreated event", func(t *testing.T) {
		created, err := order.NewOrderCreatedEvent(orderID, agent, t0, " cust-1 ", 1500)
		require.NoError(t, err)

		o, err := order.NewOrder(created)

		require.NoError(t, err)
		require.NoError(t, o.Validate())
		assert.True(t, o.ID().IsEqual(orderID))
		assert.Equal(t, "cust-1", o.CustomerRef())
		assert.Equal(t, int64(1500), o.Amount())
		assert.Equal(t, order.Created, o.Status())
		assert.Nil(t, o.Rider())
		assert.Equal(t, uint64(1), o.Version())
		assert.Equal(t, t0, o.CreatedAt())
		assert.Empty(t, o.History())
	})

	t.Run("should reject missing customer and non-positive amount together", func(t *testing.T) {
		_, err := order.NewOrderCreatedEvent(orderID, agent, t0, "  ", 0)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "customer reference")
		assert.Contains(t, err.Error(), "0 is not greater than 0")
	})

	t.Run("should reject invalid order id", func(t *testing.T) {
		_, err := order.NewOrderCreatedEvent(kernel.UUID{}, agent, t0, "c", 1)

		require.ErrorIs(t, err, kernel.ErrUUIDIsNotConstructed)
	})

	t.Run("should refuse a first event other than OrderCreated", func(t *testing.T) {
		rider := kernel.NewUUID()
		o, err := order.NewOrder(order.NewRiderAssignedEvent(orderID, 1, agent, t0, rider, nil))

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
		assert.Nil(t, o)
	})

	t.Run("should fail Validate on zero value", func(t *testing.T) {
		var o order.Order
		assert.ErrorIs(t, o.Validate(), order.ErrOrderIsNotConstructed)

		var nilOrder *order.Order
		assert.ErrorIs(t, nilOrder.Validate(), order.ErrOrderIsNotConstructed)
	})
}

func TestOrder_Apply(t *testing.T) {
	orderID := kernel.NewUUID()
	riderID := kernel.NewUUID()

	t.Run("should fold the full lifecycle", func(t *testing.T) {
		events := lifecycle(t, orderID, riderID)

		o, err := order.NewOrder(events[0])
		require.NoError(t, err)
		require.NoError(t, o.ApplyAll(events[1:]))

		require.NoError(t, o.Validate())
		assert.Equal(t, order.Delivered, o.Status())
		assert.True(t, o.Rider().IsEqual(riderID))
		require.NotNil(t, o.Proof())
		assert.Equal(t, order.ProofCode, o.Proof().Kind)
		assert.Equal(t, uint64(6), o.Version())

		history := o.History()
		require.Len(t, history, 4)
		assert.Equal(t, order.Created, history[0].From)
		assert.Equal(t, order.Delivered, history[3].To)
		assert.Equal(t, uint64(6), history[3].Sequence)
	})

	t.Run("should reject a sequence gap without changing the order", func(t *testing.T) {
		events := lifecycle(t, orderID, riderID)
		o, err := order.NewOrder(events[0])
		require.NoError(t, err)

		err = o.Apply(events[2])

		require.ErrorIs(t, err, errs.ErrVersionIsInvalid)
		assert.Equal(t, uint64(1), o.Version())
		assert.Equal(t, order.Created, o.Status())
	})

	t.Run("should reject an event for another order", func(t *testing.T) {
		events := lifecycle(t, orderID, riderID)
		o, err := order.NewOrder(events[0])
		require.NoError(t, err)

		other := order.NewRiderAssignedEvent(kernel.NewUUID(), 2, agent, t0, riderID, nil)

		require.ErrorIs(t, o.Apply(other), errs.ErrValueIsInvalid)
	})

	t.Run("should reject a status change whose origin does not match", func(t *testing.T) {
		events := lifecycle(t, orderID, riderID)
		o, err := order.NewOrder(events[0])
		require.NoError(t, err)

		err = o.Apply(order.NewStatusChangedEvent(orderID, 2, agent, t0, order.Assigned, order.PickedUp, &riderID))

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
		assert.Contains(t, err.Error(), "order is Created")
	})

	t.Run("should refuse changes after a terminal status", func(t *testing.T) {
		created, _ := order.NewOrderCreatedEvent(orderID, agent, t0, "c", 10)
		o, err := order.NewOrder(created)
		require.NoError(t, err)
		require.NoError(t, o.Apply(order.NewStatusChangedEvent(orderID, 2, agent, t0, order.Created, order.Cancelled, nil)))

		err = o.Apply(order.NewStatusChangedEvent(orderID, 3, agent, t0, order.Cancelled, order.Assigned, nil))
		require.ErrorIs(t, err, errs.ErrValueIsInvalid)

		err = o.Apply(order.NewRiderAssignedEvent(orderID, 3, agent, t0, riderID, nil))
		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
		assert.Nil(t, o.Rider())
	})

	t.Run("should keep the rider on a cancelled order", func(t *testing.T) {
		events := lifecycle(t, orderID, riderID)[:4]
		o, err := order.Replay(orderID, stream(events...))
		require.NoError(t, err)

		require.NoError(t, o.Apply(order.NewStatusChangedEvent(orderID, 5, agent, t0.Add(time.Hour), order.PickedUp, order.Cancelled, o.Rider())))

		require.NoError(t, o.Validate())
		assert.Equal(t, order.Cancelled, o.Status())
		assert.True(t, o.Rider().IsEqual(riderID))
	})

	t.Run("should swap riders on reassignment only from the holder", func(t *testing.T) {
		events := lifecycle(t, orderID, riderID)[:3]
		o, err := order.Replay(orderID, stream(events...))
		require.NoError(t, err)
		next := kernel.NewUUID()
		stranger := kernel.NewUUID()

		err = o.Apply(order.NewRiderAssignedEvent(orderID, 4, agent, t0, next, &stranger))
		require.ErrorIs(t, err, errs.ErrValueIsInvalid)

		require.NoError(t, o.Apply(order.NewRiderAssignedEvent(orderID, 4, agent, t0, next, &riderID)))
		assert.True(t, o.Rider().IsEqual(next))
		assert.Equal(t, order.Assigned, o.Status())
	})
}

func TestReplay(t *testing.T) {
	orderID := kernel.NewUUID()
	riderID := kernel.NewUUID()

	t.Run("should produce the same snapshot as incremental application", func(t *testing.T) {
		events := lifecycle(t, orderID, riderID)

		incremental, err := order.NewOrder(events[0])
		require.NoError(t, err)
		for _, e := range events[1:] {
			require.NoError(t, incremental.Apply(e))
		}

		replayed, err := order.Replay(orderID, stream(events...))

		require.NoError(t, err)
		assert.Equal(t, incremental.Snapshot(), replayed.Snapshot())
	})

	t.Run("should report unknown order for an empty stream", func(t *testing.T) {
		o, err := order.Replay(orderID, stream())

		require.ErrorIs(t, err, errs.ErrObjectNotFound)
		assert.Nil(t, o)
	})

	t.Run("should stop at the first stream error", func(t *testing.T) {
		failing := func(yield func(order.Event, error) bool) {
			yield(order.Event{}, assert.AnError)
		}

		_, err := order.Replay(orderID, failing)

		require.ErrorIs(t, err, assert.AnError)
	})

	t.Run("should reject a stream that ends inside an assignment batch", func(t *testing.T) {
		events := lifecycle(t, orderID, riderID)[:2]

		_, err := order.Replay(orderID, stream(events...))

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
		assert.Contains(t, err.Error(), "Created is not a valid status to have a rider")
	})
}

func TestOrder_Snapshot(t *testing.T) {
	orderID := kernel.NewUUID()
	riderID := kernel.NewUUID()

	t.Run("should not share state with the order", func(t *testing.T) {
		events := lifecycle(t, orderID, riderID)
		o, err := order.Replay(orderID, stream(events[:5]...))
		require.NoError(t, err)

		snap := o.Snapshot()
		require.NoError(t, o.Apply(events[5]))

		assert.Equal(t, order.InTransit, snap.Status)
		assert.Len(t, snap.History, 3)
		assert.NotContains(t, snap.StatusTimestamps, order.Delivered)
		assert.Nil(t, snap.Proof)
	})

	t.Run("should keep clones independent", func(t *testing.T) {
		events := lifecycle(t, orderID, riderID)
		o, err := order.Replay(orderID, stream(events[:5]...))
		require.NoError(t, err)

		clone := o.Clone()
		require.NoError(t, clone.Apply(events[5]))

		assert.Equal(t, order.InTransit, o.Status())
		assert.Equal(t, order.Delivered, clone.Status())
		assert.Len(t, o.History(), 3)
	})

	t.Run("should serialize with status names", func(t *testing.T) {
		events := lifecycle(t, orderID, riderID)
		o, err := order.Replay(orderID, stream(events...))
		require.NoError(t, err)

		b, err := json.Marshal(o.Snapshot())
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(b, &decoded))
		assert.Equal(t, "Delivered", decoded["status"])
		assert.Equal(t, riderID.String(), decoded["rider_id"])
		assert.Contains(t, decoded["status_timestamps"], "PickedUp")
	})

	t.Run("should report the holding rider", func(t *testing.T) {
		events := lifecycle(t, orderID, riderID)
		o, err := order.Replay(orderID, stream(events[:3]...))
		require.NoError(t, err)

		assert.True(t, o.Snapshot().HasRider(riderID))
		assert.False(t, o.Snapshot().HasRider(kernel.NewUUID()))
	})
}

func TestEvent(t *testing.T) {
	orderID := kernel.NewUUID()

	t.Run("should render id as order/sequence", func(t *testing.T) {
		e := order.NewStatusChangedEvent(orderID, 7, agent, t0, order.Created, order.Cancelled, nil)

		assert.Equal(t, orderID.String()+"/7", e.ID().String())
	})

	t.Run("should require proof on delivery confirmation", func(t *testing.T) {
		e := order.NewDeliveryConfirmedEvent(orderID, 5, agent, t0, nil, order.Proof{})

		require.Error(t, e.Validate())
	})

	t.Run("should validate proof kinds", func(t *testing.T) {
		for _, kind := range []order.ProofKind{order.ProofSignature, order.ProofPhoto, order.ProofCode} {
			_, err := order.NewProof(kind, "ref")
			require.NoError(t, err)
		}

		_, err := order.NewProof("fingerprint", "")
		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
		require.ErrorIs(t, err, errs.ErrValueIsRequired)
	})

	t.Run("should survive a JSON round trip", func(t *testing.T) {
		riderID := kernel.NewUUID()
		events := lifecycle(t, orderID, riderID)

		b, err := json.Marshal(events)
		require.NoError(t, err)
		var decoded []order.Event
		require.NoError(t, json.Unmarshal(b, &decoded))

		assert.True(t, slices.EqualFunc(events, decoded, func(a, b order.Event) bool {
			return a.ID() == b.ID() && a.Kind == b.Kind && a.Payload.To == b.Payload.To && a.OccurredAt.Equal(b.OccurredAt)
		}))
		assert.Equal(t, order.ProofCode, decoded[5].Payload.Proof.Kind)
	})
}

func TestRestoreOrder(t *testing.T) {
	orderID := kernel.NewUUID()
	riderID := kernel.NewUUID()

	t.Run("should continue folding from a snapshot", func(t *testing.T) {
		events := lifecycle(t, orderID, riderID)
		partial, err := order.Replay(orderID, stream(events[:4]...))
		require.NoError(t, err)

		restored, err := order.RestoreOrder(partial.Snapshot())
		require.NoError(t, err)
		require.NoError(t, restored.ApplyAll(events[4:]))

		full, err := order.Replay(orderID, stream(events...))
		require.NoError(t, err)
		assert.Equal(t, full.Snapshot(), restored.Snapshot())
	})

	t.Run("should reject an empty snapshot", func(t *testing.T) {
		_, err := order.RestoreOrder(order.Snapshot{})

		require.ErrorIs(t, err, kernel.ErrUUIDIsNotConstructed)
	})

	t.Run("should continue from a snapshot taken inside an assignment batch", func(t *testing.T) {
		events := lifecycle(t, orderID, riderID)
		inside, err := order.NewOrder(events[0])
		require.NoError(t, err)
		require.NoError(t, inside.Apply(events[1]))

		restored, err := order.RestoreOrder(inside.Snapshot())
		require.NoError(t, err)
		require.NoError(t, restored.Apply(events[2]))

		assert.Equal(t, order.Assigned, restored.Status())
		require.NoError(t, restored.Validate())
	})

	t.Run("should reject a snapshot without a version", func(t *testing.T) {
		_, err := order.RestoreOrder(order.Snapshot{ID: orderID, Status: order.Assigned})

		require.ErrorIs(t, err, errs.ErrValueIsRequired)
	})
}
