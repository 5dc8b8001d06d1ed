// Package eventlogtest holds the behaviour every ports.EventLog implementation must show.
// Adapter tests call Run with a constructor for a fresh, empty log.
package eventlogtest

import (
	"context"
	"iter"
	"sync"
	"testing"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	at    = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	agent = order.Actor{Role: order.Agent, ID: "agent-1"}
)

// Created returns an OrderCreated event for a fresh order id.
func Created(t *testing.T) order.Event {
	t.Helper()
	e, err := order.NewOrderCreatedEvent(kernel.NewUUID(), agent, at, "cust-1", 1250)
	require.NoError(t, err)
	return e
}

// AssignBatch returns the two events of an initial assignment following created.
func AssignBatch(created order.Event, riderID kernel.UUID) []order.Event {
	return []order.Event{
		order.NewRiderAssignedEvent(created.OrderID, 2, agent, at.Add(time.Minute), riderID, nil),
		order.NewStatusChangedEvent(created.OrderID, 3, agent, at.Add(time.Minute), order.Created, order.Assigned, &riderID),
	}
}

// Collect drains an event sequence.
func Collect(t *testing.T, seq iter.Seq2[order.Event, error]) []order.Event {
	t.Helper()
	var out []order.Event
	for e, err := range seq {
		require.NoError(t, err)
		out = append(out, e)
	}
	return out
}

// Run checks newLog against the EventLog contract.
func Run(t *testing.T, newLog func(t *testing.T) ports.EventLog) {
	t.Run("should assign increasing positions on append", func(t *testing.T) {
		log := newLog(t)
		created := Created(t)

		first, err := log.Append(t.Context(), created)
		require.NoError(t, err)
		second, err := log.Append(t.Context(), AssignBatch(created, kernel.NewUUID())...)
		require.NoError(t, err)

		require.Len(t, first, 1)
		require.Len(t, second, 2)
		assert.Equal(t, uint64(1), first[0].Position)
		assert.Equal(t, uint64(2), second[0].Position)
		assert.Equal(t, uint64(3), second[1].Position)
	})

	t.Run("should read back an order in sequence order", func(t *testing.T) {
		log := newLog(t)
		created := Created(t)
		riderID := kernel.NewUUID()
		_, err := log.Append(t.Context(), created)
		require.NoError(t, err)
		_, err = log.Append(t.Context(), AssignBatch(created, riderID)...)
		require.NoError(t, err)

		events := Collect(t, log.ReadFrom(t.Context(), created.OrderID, 0))

		require.Len(t, events, 3)
		for i, e := range events {
			assert.Equal(t, uint64(i+1), e.Sequence)
			assert.True(t, e.OrderID.IsEqual(created.OrderID))
		}
		assert.Equal(t, order.RiderAssigned, events[1].Kind)
		assert.True(t, events[1].Payload.RiderID.IsEqual(riderID))
		assert.Equal(t, order.Assigned, events[2].Payload.To)
		assert.True(t, events[0].OccurredAt.Equal(at))
		assert.Equal(t, "cust-1", events[0].Payload.CustomerRef)
		assert.Equal(t, int64(1250), events[0].Payload.Amount)
		assert.Equal(t, agent, events[0].Actor)

		o, err := order.Replay(created.OrderID, log.ReadFrom(t.Context(), created.OrderID, 0))
		require.NoError(t, err)
		assert.Equal(t, order.Assigned, o.Status())
	})

	t.Run("should read from a sequence", func(t *testing.T) {
		log := newLog(t)
		created := Created(t)
		_, err := log.Append(t.Context(), created)
		require.NoError(t, err)
		_, err = log.Append(t.Context(), AssignBatch(created, kernel.NewUUID())...)
		require.NoError(t, err)

		events := Collect(t, log.ReadFrom(t.Context(), created.OrderID, 2))

		require.Len(t, events, 1)
		assert.Equal(t, uint64(3), events[0].Sequence)
	})

	t.Run("should yield nothing for an unknown order", func(t *testing.T) {
		log := newLog(t)

		assert.Empty(t, Collect(t, log.ReadFrom(t.Context(), kernel.NewUUID(), 0)))
	})

	t.Run("should be restartable", func(t *testing.T) {
		log := newLog(t)
		created := Created(t)
		_, err := log.Append(t.Context(), created)
		require.NoError(t, err)

		seq := log.ReadFrom(t.Context(), created.OrderID, 0)
		require.Len(t, Collect(t, seq), 1)

		_, err = log.Append(t.Context(), AssignBatch(created, kernel.NewUUID())...)
		require.NoError(t, err)
		assert.Len(t, Collect(t, seq), 3)
	})

	t.Run("should reject a stale sequence as a conflict", func(t *testing.T) {
		log := newLog(t)
		created := Created(t)
		_, err := log.Append(t.Context(), created)
		require.NoError(t, err)

		_, err = log.Append(t.Context(), created)

		require.ErrorIs(t, err, errs.ErrWriteFailed)
		var wf *errs.WriteFailedError
		require.ErrorAs(t, err, &wf)
		require.ErrorIs(t, wf.Cause, errs.ErrVersionIsInvalid)
	})

	t.Run("should reject a sequence gap", func(t *testing.T) {
		log := newLog(t)
		created := Created(t)
		_, err := log.Append(t.Context(), created)
		require.NoError(t, err)

		_, err = log.Append(t.Context(), AssignBatch(created, kernel.NewUUID())[1])

		require.ErrorIs(t, err, errs.ErrWriteFailed)
		assert.Len(t, Collect(t, log.ReadFrom(t.Context(), created.OrderID, 0)), 1)
	})

	t.Run("should commit nothing from a rejected batch", func(t *testing.T) {
		log := newLog(t)
		created := Created(t)
		batch := AssignBatch(created, kernel.NewUUID())
		broken := batch[1]
		broken.Sequence = 4

		_, err := log.Append(t.Context(), created, batch[0], broken)

		require.ErrorIs(t, err, errs.ErrWriteFailed)
		assert.Empty(t, Collect(t, log.ReadAll(t.Context(), 0)))
	})

	t.Run("should let exactly one concurrent writer win a sequence", func(t *testing.T) {
		log := newLog(t)
		created := Created(t)
		_, err := log.Append(t.Context(), created)
		require.NoError(t, err)

		const writers = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := log.Append(context.Background(), AssignBatch(created, kernel.NewUUID())...)
				if err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, errs.ErrWriteFailed)
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, wins)
		assert.Len(t, Collect(t, log.ReadFrom(t.Context(), created.OrderID, 0)), 3)
	})

	t.Run("should read everything in position order", func(t *testing.T) {
		log := newLog(t)
		a, b := Created(t), Created(t)
		for _, batch := range [][]order.Event{{a}, {b}, AssignBatch(a, kernel.NewUUID()), AssignBatch(b, kernel.NewUUID())} {
			_, err := log.Append(t.Context(), batch...)
			require.NoError(t, err)
		}

		all := Collect(t, log.ReadAll(t.Context(), 0))
		tail := Collect(t, log.ReadAll(t.Context(), 4))

		require.Len(t, all, 6)
		for i, e := range all {
			assert.Equal(t, uint64(i+1), e.Position)
		}
		assert.True(t, all[1].OrderID.IsEqual(b.OrderID))
		require.Len(t, tail, 2)
		assert.Equal(t, uint64(5), tail[0].Position)
	})

	t.Run("should stop reading when the context is done", func(t *testing.T) {
		log := newLog(t)
		_, err := log.Append(t.Context(), Created(t))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		var gotErr error
		for _, err := range log.ReadAll(ctx, 0) {
			if err != nil {
				gotErr = err
				break
			}
		}
		require.Error(t, gotErr)
	})

	t.Run("should refuse an append on an expired context", func(t *testing.T) {
		log := newLog(t)
		ctx, cancel := context.WithTimeout(t.Context(), time.Nanosecond)
		defer cancel()
		<-ctx.Done()

		_, err := log.Append(ctx, Created(t))

		require.ErrorIs(t, err, errs.ErrTimeout)
	})
}
