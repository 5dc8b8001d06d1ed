// Package analytics folds the event stream into delivery metrics: revenue, order counts
// by status and time spent in each status.
//
// The figures are derived and never authoritative: a rebuild from position 0 always yields
// the same snapshot as the live aggregator that saw the events one by one.
package analytics

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/ports"
)

const catchUpPage = 256

// StatusTime is the accumulated time orders spent in one status before leaving it.
type StatusTime struct {
	TotalNanos int64 `json:"total_nanos"`
	Count      int64 `json:"count"`
}

// Mean returns the average time in the status, or zero when no order left it yet.
func (s StatusTime) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return time.Duration(s.TotalNanos / s.Count)
}

// Snapshot is an immutable view of the aggregated metrics.
type Snapshot struct {
	// Revenue is the sum of the amounts of delivered orders, in minor units.
	Revenue      int64                       `json:"revenue"`
	TotalOrders  int64                       `json:"total_orders"`
	ByStatus     map[order.Status]int64      `json:"by_status"`
	TimeInStatus map[order.Status]StatusTime `json:"time_in_status"`
	// Watermark is the highest position up to which every event has been applied.
	Watermark uint64 `json:"watermark"`
}

type orderStats struct {
	sequence  uint64
	status    order.Status
	amount    int64
	enteredAt time.Time
}

// Aggregator is the AnalyticsAggregator. Writers are serialized; Snapshot never blocks.
type Aggregator struct {
	logger *slog.Logger

	mu           sync.Mutex
	orders       map[kernel.UUID]*orderStats
	revenue      int64
	total        int64
	byStatus     map[order.Status]int64
	timeInStatus map[order.Status]StatusTime
	watermark    uint64
	ahead        map[uint64]struct{}

	published atomic.Pointer[Snapshot]
}

// NewAggregator creates an aggregator that has seen no event.
func NewAggregator(logger *slog.Logger) *Aggregator {
	a := &Aggregator{
		logger:       logger.With("component", "AnalyticsAggregator"),
		orders:       make(map[kernel.UUID]*orderStats),
		byStatus:     make(map[order.Status]int64),
		timeInStatus: make(map[order.Status]StatusTime),
		ahead:        make(map[uint64]struct{}),
	}
	a.publish()
	return a
}

// OnEvent applies one committed event. Events already applied are ignored.
func (a *Aggregator) OnEvent(_ context.Context, e order.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.apply(e) {
		a.publish()
	}
	return nil
}

// CatchUp applies every event after the watermark and returns how many changed the figures.
// It is the recovery path for events the live feed missed and the rebuild path from an
// empty aggregator.
//
// The log is read without holding the writer lock; each page is applied under it, so live
// events keep flowing during a long rebuild.
func (a *Aggregator) CatchUp(ctx context.Context, log ports.EventLog) (int, error) {
	a.mu.Lock()
	since := a.watermark
	a.mu.Unlock()

	applied := 0
	page := make([]order.Event, 0, catchUpPage)
	for e, err := range log.ReadAll(ctx, since) {
		if err != nil {
			applied += a.applyPage(page)
			return applied, err
		}
		page = append(page, e)
		if len(page) == catchUpPage {
			applied += a.applyPage(page)
			page = page[:0]
		}
	}
	applied += a.applyPage(page)
	return applied, nil
}

// applyPage folds events under the writer lock and publishes once if any changed the figures.
func (a *Aggregator) applyPage(events []order.Event) int {
	if len(events) == 0 {
		return 0
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	applied := 0
	for _, e := range events {
		if a.apply(e) {
			applied++
		}
	}
	if applied > 0 {
		a.publish()
	}
	return applied
}

// Snapshot returns the latest published figures.
func (a *Aggregator) Snapshot() Snapshot {
	return *a.published.Load()
}

// apply folds e and reports whether it changed anything. a.mu must be held.
func (a *Aggregator) apply(e order.Event) bool {
	st, known := a.orders[e.OrderID]
	switch {
	case known && e.Sequence <= st.sequence:
		a.advance(e.Position)
		return false
	case !known && e.Kind != order.OrderCreated, known && e.Sequence != st.sequence+1:
		// A gap: leave the position unmarked so catch-up reads the event again.
		a.logger.Warn("event out of order, waiting for catch-up", "event", e.ID().String())
		return false
	}

	switch e.Kind {
	case order.OrderCreated:
		st = &orderStats{status: order.Created, amount: e.Payload.Amount, enteredAt: e.OccurredAt}
		a.orders[e.OrderID] = st
		a.total++
		a.byStatus[order.Created]++
	case order.StatusChanged:
		a.move(st, e.Payload.To, e.OccurredAt)
	case order.DeliveryConfirmed:
		a.move(st, order.Delivered, e.OccurredAt)
	case order.RiderAssigned, order.UnknownEvent:
	}

	st.sequence = e.Sequence
	a.advance(e.Position)
	return true
}

func (a *Aggregator) move(st *orderStats, to order.Status, at time.Time) {
	if st.status == to {
		return
	}

	elapsed := max(at.Sub(st.enteredAt), 0)
	ts := a.timeInStatus[st.status]
	ts.TotalNanos += elapsed.Nanoseconds()
	ts.Count++
	a.timeInStatus[st.status] = ts

	a.byStatus[st.status]--
	if a.byStatus[st.status] == 0 {
		delete(a.byStatus, st.status)
	}
	a.byStatus[to]++

	if to == order.Delivered {
		a.revenue += st.amount
	}
	st.status = to
	st.enteredAt = at
}

// advance records position p as applied and moves the watermark over every contiguous
// applied position. Positions are 1-based; 0 marks an event that was never committed.
func (a *Aggregator) advance(p uint64) {
	if p == 0 || p <= a.watermark {
		return
	}
	a.ahead[p] = struct{}{}
	for {
		next := a.watermark + 1
		if _, ok := a.ahead[next]; !ok {
			return
		}
		delete(a.ahead, next)
		a.watermark = next
	}
}

func (a *Aggregator) publish() {
	a.published.Store(&Snapshot{
		Revenue:      a.revenue,
		TotalOrders:  a.total,
		ByStatus:     maps.Clone(a.byStatus),
		TimeInStatus: maps.Clone(a.timeInStatus),
		Watermark:    a.watermark,
	})
}
