package notifications_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"dispatch/internal/adapters/out/memory"
	"dispatch/internal/core/application/notifications"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/notification"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0     = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	agent  = order.Actor{Role: order.Agent, ID: "agent-1"}
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// recordingTransport records sent intents and fails while failing is set.
type recordingTransport struct {
	mu      sync.Mutex
	sent    []notification.Intent
	failing bool
}

func (r *recordingTransport) Send(_ context.Context, in notification.Intent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return errors.New("broker unavailable")
	}
	r.sent = append(r.sent, in)
	return nil
}

func (r *recordingTransport) setFailing(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failing = v
}

func (r *recordingTransport) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	for i, in := range r.sent {
		out[i] = in.ID
	}
	return out
}

func assignment(orderID, riderID kernel.UUID) order.Event {
	return order.NewStatusChangedEvent(orderID, 3, agent, t0, order.Created, order.Assigned, &riderID)
}

func TestDispatcher_OnEvent(t *testing.T) {
	t.Run("should enqueue the intents of an event", func(t *testing.T) {
		d := notifications.NewDispatcher(&recordingTransport{}, logger)
		orderID, riderID := kernel.NewUUID(), kernel.NewUUID()

		require.NoError(t, d.OnEvent(t.Context(), assignment(orderID, riderID)))

		pending := d.Pending()
		require.Len(t, pending, 2)
		assert.Equal(t, notification.Customer, pending[0].Recipient)
		assert.Equal(t, notification.Rider, pending[1].Recipient)
		assert.Equal(t, riderID.String(), pending[1].RecipientID)
	})

	t.Run("should ignore a repeated event", func(t *testing.T) {
		d := notifications.NewDispatcher(&recordingTransport{}, logger)
		e := assignment(kernel.NewUUID(), kernel.NewUUID())

		require.NoError(t, d.OnEvent(t.Context(), e))
		require.NoError(t, d.OnEvent(t.Context(), e))

		stats := d.Stats()
		assert.Equal(t, int64(2), stats.Enqueued)
		assert.Equal(t, int64(1), stats.Duplicates)
		assert.Equal(t, 2, stats.Pending)
	})

	t.Run("should forget ids beyond the dedup window", func(t *testing.T) {
		d := notifications.NewDispatcher(&recordingTransport{}, logger, notifications.WithDedupWindow(1))
		first := assignment(kernel.NewUUID(), kernel.NewUUID())
		second := assignment(kernel.NewUUID(), kernel.NewUUID())

		require.NoError(t, d.OnEvent(t.Context(), first))
		require.NoError(t, d.OnEvent(t.Context(), second))
		require.NoError(t, d.OnEvent(t.Context(), first))

		assert.Equal(t, int64(6), d.Stats().Enqueued)
	})

	t.Run("should address customers through the resolver", func(t *testing.T) {
		orderID := kernel.NewUUID()
		d := notifications.NewDispatcher(&recordingTransport{}, logger,
			notifications.WithCustomerResolver(func(kernel.UUID) (string, bool) { return "cust-42", true }),
			notifications.WithClock(clock.NewManual(t0)))

		require.NoError(t, d.OnEvent(t.Context(), assignment(orderID, kernel.NewUUID())))

		pending := d.Pending()
		assert.Equal(t, "cust-42", pending[0].RecipientID)
		assert.Equal(t, t0, pending[0].CreatedAt)
	})

	t.Run("should produce nothing for a created order", func(t *testing.T) {
		d := notifications.NewDispatcher(&recordingTransport{}, logger)
		created, err := order.NewOrderCreatedEvent(kernel.NewUUID(), agent, t0, "cust-1", 100)
		require.NoError(t, err)

		require.NoError(t, d.OnEvent(t.Context(), created))

		assert.Empty(t, d.Pending())
	})
}

func TestDispatcher_Flush(t *testing.T) {
	t.Run("should deliver pending intents in order", func(t *testing.T) {
		transport := &recordingTransport{}
		d := notifications.NewDispatcher(transport, logger)
		e := assignment(kernel.NewUUID(), kernel.NewUUID())
		require.NoError(t, d.OnEvent(t.Context(), e))

		sent := d.Flush(t.Context())

		assert.Equal(t, 2, sent)
		assert.Equal(t, []string{e.ID().String() + "/customer", e.ID().String() + "/rider"}, transport.ids())
		assert.Empty(t, d.Pending())
	})

	t.Run("should keep failed intents for the next flush", func(t *testing.T) {
		transport := &recordingTransport{failing: true}
		d := notifications.NewDispatcher(transport, logger)
		require.NoError(t, d.OnEvent(t.Context(), assignment(kernel.NewUUID(), kernel.NewUUID())))

		assert.Equal(t, 0, d.Flush(t.Context()))
		assert.Len(t, d.Pending(), 2)
		assert.Equal(t, int64(2), d.Stats().Failed)

		transport.setFailing(false)
		assert.Equal(t, 2, d.Flush(t.Context()))
		assert.Empty(t, d.Pending())
		assert.Equal(t, int64(2), d.Stats().Sent)
	})

	t.Run("should keep intents that arrive during a failed flush behind the failed ones", func(t *testing.T) {
		transport := &recordingTransport{failing: true}
		d := notifications.NewDispatcher(transport, logger)
		first := assignment(kernel.NewUUID(), kernel.NewUUID())
		second := assignment(kernel.NewUUID(), kernel.NewUUID())
		require.NoError(t, d.OnEvent(t.Context(), first))
		d.Flush(t.Context())
		require.NoError(t, d.OnEvent(t.Context(), second))

		transport.setFailing(false)
		d.Flush(t.Context())

		ids := transport.ids()
		require.Len(t, ids, 4)
		assert.Equal(t, first.ID().String()+"/customer", ids[0])
		assert.Equal(t, second.ID().String()+"/customer", ids[2])
	})

	t.Run("should not send once the context is done", func(t *testing.T) {
		transport := &recordingTransport{}
		d := notifications.NewDispatcher(transport, logger)
		require.NoError(t, d.OnEvent(t.Context(), assignment(kernel.NewUUID(), kernel.NewUUID())))
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		assert.Equal(t, 0, d.Flush(ctx))
		assert.Len(t, d.Pending(), 2)
		assert.Equal(t, int64(0), d.Stats().Failed)
	})
}

// cancelled commits an order created and then cancelled by an agent and returns the
// committed events.
func cancelled(t *testing.T, log *memory.EventLog) []order.Event {
	t.Helper()
	orderID := kernel.NewUUID()
	created, err := order.NewOrderCreatedEvent(orderID, agent, t0, "cust-9", 700)
	require.NoError(t, err)
	cancel := order.NewStatusChangedEvent(orderID, 2, agent, t0.Add(time.Minute), order.Created, order.Cancelled, nil)

	first, err := log.Append(t.Context(), created)
	require.NoError(t, err)
	second, err := log.Append(t.Context(), cancel)
	require.NoError(t, err)
	return append(first, second...)
}

func TestDispatcher_Resume(t *testing.T) {
	t.Run("should send after a restart what was committed but never flushed", func(t *testing.T) {
		log := memory.NewEventLog()
		cursors := memory.NewCursorStore()
		crashed := notifications.NewDispatcher(&recordingTransport{}, logger, notifications.WithCursorStore(cursors))
		events := cancelled(t, log)
		for _, e := range events {
			require.NoError(t, crashed.OnEvent(t.Context(), e))
		}
		require.Len(t, crashed.Pending(), 1)

		transport := &recordingTransport{}
		restarted := notifications.NewDispatcher(transport, logger, notifications.WithCursorStore(cursors))
		accepted, err := restarted.Resume(t.Context(), log)
		require.NoError(t, err)
		assert.Equal(t, 2, accepted)

		assert.Equal(t, 1, restarted.Flush(t.Context()))
		assert.Equal(t, []string{events[1].ID().String() + "/customer"}, transport.ids())
		assert.Equal(t, events[1].Position, restarted.Delivered())
	})

	t.Run("should not resend what the saved cursor covers", func(t *testing.T) {
		log := memory.NewEventLog()
		cursors := memory.NewCursorStore()
		first := notifications.NewDispatcher(&recordingTransport{}, logger, notifications.WithCursorStore(cursors))
		for _, e := range cancelled(t, log) {
			require.NoError(t, first.OnEvent(t.Context(), e))
		}
		require.Equal(t, 1, first.Flush(t.Context()))

		saved, err := cursors.Load(t.Context(), notifications.CursorName)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), saved)

		transport := &recordingTransport{}
		restarted := notifications.NewDispatcher(transport, logger, notifications.WithCursorStore(cursors))
		accepted, err := restarted.Resume(t.Context(), log)
		require.NoError(t, err)
		assert.Zero(t, accepted)
		assert.Zero(t, restarted.Flush(t.Context()))
	})

	t.Run("should hold the cursor at the oldest unsent event", func(t *testing.T) {
		log := memory.NewEventLog()
		cursors := memory.NewCursorStore()
		transport := &recordingTransport{failing: true}
		d := notifications.NewDispatcher(transport, logger, notifications.WithCursorStore(cursors))
		for _, e := range cancelled(t, log) {
			require.NoError(t, d.OnEvent(t.Context(), e))
		}

		d.Flush(t.Context())
		assert.Equal(t, uint64(1), d.Delivered())
		saved, err := cursors.Load(t.Context(), notifications.CursorName)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), saved)

		transport.setFailing(false)
		d.Flush(t.Context())
		assert.Equal(t, uint64(2), d.Delivered())
	})

	t.Run("should pick up events the live feed skipped", func(t *testing.T) {
		log := memory.NewEventLog()
		d := notifications.NewDispatcher(&recordingTransport{}, logger)
		events := cancelled(t, log)
		require.NoError(t, d.OnEvent(t.Context(), events[0]))

		accepted, err := d.CatchUp(t.Context(), log)
		require.NoError(t, err)
		assert.Equal(t, 1, accepted)
		require.Len(t, d.Pending(), 1)

		require.NoError(t, d.OnEvent(t.Context(), events[1]))
		assert.Len(t, d.Pending(), 1)
		assert.Equal(t, int64(1), d.Stats().Duplicates)
	})
}
