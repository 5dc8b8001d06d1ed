// Package notifications turns committed order events into notification intents and hands
// them to an outbound transport.
//
// Intents wait in an in-process outbox until Flush delivers them. A failed send stays in the
// outbox and is offered again on the next flush. Transport failures are logged and counted;
// they never reach the command that produced the event.
//
// The outbox itself is not durable. What survives a restart is the delivery cursor: the
// highest log position up to which every event was seen and all of its intents were sent.
// Resume reads the log after that cursor and enqueues those events again, so delivery stays
// at least once across crashes.
package notifications

import (
	"container/list"
	"context"
	"log/slog"
	"sync"

	"dispatch/internal/core/domain/model/notification"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/clock"
	"dispatch/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DefaultDedupWindow is how many event ids the dispatcher remembers.
const DefaultDedupWindow = 10_000

// CursorName identifies the dispatcher's delivery cursor in a ports.CursorStore.
const CursorName = "notifications"

// Stats are the dispatcher's counters since start.
type Stats struct {
	Enqueued   int64
	Sent       int64
	Failed     int64
	Duplicates int64
	Pending    int
}

type pendingIntent struct {
	intent   notification.Intent
	position uint64
	attempts int
}

// Dispatcher is the NotificationDispatcher. It is safe for concurrent use.
type Dispatcher struct {
	transport ports.NotificationTransport
	resolve   notification.CustomerResolver
	cursor    ports.CursorStore
	clock     clock.Clock
	logger    *slog.Logger

	mu     sync.Mutex
	seen   map[string]*list.Element
	order  *list.List
	window int
	outbox []pendingIntent
	stats  Stats

	// seenUpTo is the highest position below which every event was enqueued; ahead holds
	// seen positions past a gap. pendingAt counts unsent intents per position.
	seenUpTo  uint64
	ahead     map[uint64]struct{}
	pendingAt map[uint64]int
	saved     uint64

	flushMu sync.Mutex

	sentCounter   metric.Int64Counter
	failedCounter metric.Int64Counter
	dupCounter    metric.Int64Counter
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDedupWindow sets how many event ids are remembered for deduplication.
func WithDedupWindow(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.window = n
		}
	}
}

// WithCustomerResolver sets how customer recipients are looked up.
func WithCustomerResolver(resolve notification.CustomerResolver) Option {
	return func(d *Dispatcher) {
		d.resolve = resolve
	}
}

// WithCursorStore makes Flush record the delivery cursor in store.
func WithCursorStore(store ports.CursorStore) Option {
	return func(d *Dispatcher) {
		d.cursor = store
	}
}

// WithClock sets the clock stamping intents.
func WithClock(c clock.Clock) Option {
	return func(d *Dispatcher) {
		d.clock = c
	}
}

// NewDispatcher creates a dispatcher delivering through transport.
func NewDispatcher(transport ports.NotificationTransport, logger *slog.Logger, opts ...Option) *Dispatcher {
	meter := telemetry.Meter("dispatch/notifications")
	d := &Dispatcher{
		transport: transport,
		clock:     clock.NewSystem(),
		logger:    logger.With("component", "NotificationDispatcher"),
		seen:      make(map[string]*list.Element),
		order:     list.New(),
		window:    DefaultDedupWindow,
		ahead:     make(map[uint64]struct{}),
		pendingAt: make(map[uint64]int),

		sentCounter:   telemetry.Counter(meter, "dispatch.notifications.sent", "Intents handed to the transport"),
		failedCounter: telemetry.Counter(meter, "dispatch.notifications.failed", "Failed transport sends"),
		dupCounter:    telemetry.Counter(meter, "dispatch.notifications.duplicates", "Events ignored as already seen"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OnEvent maps e to intents and puts them in the outbox. An event already seen, by id within
// the dedup window or by log position, produces nothing.
func (d *Dispatcher) OnEvent(ctx context.Context, e order.Event) error {
	d.accept(ctx, e)
	return nil
}

// accept enqueues the intents of e and reports whether e was new.
func (d *Dispatcher) accept(ctx context.Context, e order.Event) bool {
	id := e.ID().String()
	intents := notification.FromEvent(e, d.resolve)
	now := d.clock.Now()

	d.mu.Lock()
	if d.isSeen(id, e.Position) {
		d.stats.Duplicates++
		d.mu.Unlock()
		d.dupCounter.Add(ctx, 1)
		return false
	}
	d.remember(id)
	for _, in := range intents {
		in.CreatedAt = now
		d.outbox = append(d.outbox, pendingIntent{intent: in, position: e.Position})
	}
	if e.Position != 0 && len(intents) > 0 {
		d.pendingAt[e.Position] += len(intents)
	}
	d.markSeen(e.Position)
	d.stats.Enqueued += int64(len(intents))
	d.mu.Unlock()

	return true
}

// CatchUp enqueues every event after the seen watermark and returns how many were new.
func (d *Dispatcher) CatchUp(ctx context.Context, log ports.EventLog) (int, error) {
	d.mu.Lock()
	from := d.seenUpTo
	d.mu.Unlock()

	accepted := 0
	for e, err := range log.ReadAll(ctx, from) {
		if err != nil {
			return accepted, err
		}
		if d.accept(ctx, e) {
			accepted++
		}
	}
	return accepted, nil
}

// Resume loads the delivery cursor and enqueues the events after it. Intents of those
// events may have been sent before the restart; they are sent again.
func (d *Dispatcher) Resume(ctx context.Context, log ports.EventLog) (int, error) {
	if d.cursor != nil {
		pos, err := d.cursor.Load(ctx, CursorName)
		if err != nil {
			return 0, err
		}
		d.mu.Lock()
		if pos > d.seenUpTo {
			d.seenUpTo = pos
			for p := range d.ahead {
				if p <= pos {
					delete(d.ahead, p)
				}
			}
			d.advance()
		}
		d.mu.Unlock()

		d.flushMu.Lock()
		d.saved = max(d.saved, pos)
		d.flushMu.Unlock()
	}
	return d.CatchUp(ctx, log)
}

// Delivered returns the position up to which every event's intents were sent.
func (d *Dispatcher) Delivered() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.delivered()
}

func (d *Dispatcher) isSeen(id string, position uint64) bool {
	if _, ok := d.seen[id]; ok {
		return true
	}
	if position == 0 {
		return false
	}
	if position <= d.seenUpTo {
		return true
	}
	_, ok := d.ahead[position]
	return ok
}

// markSeen records position and moves seenUpTo over contiguous seen positions. Position 0
// marks an event that was never committed and is not tracked. d.mu must be held.
func (d *Dispatcher) markSeen(position uint64) {
	if position == 0 || position <= d.seenUpTo {
		return
	}
	d.ahead[position] = struct{}{}
	d.advance()
}

func (d *Dispatcher) advance() {
	for {
		next := d.seenUpTo + 1
		if _, ok := d.ahead[next]; !ok {
			return
		}
		delete(d.ahead, next)
		d.seenUpTo = next
	}
}

// delivered is seenUpTo held back by the oldest position with unsent intents. d.mu must be
// held.
func (d *Dispatcher) delivered() uint64 {
	w := d.seenUpTo
	for p := range d.pendingAt {
		if p-1 < w {
			w = p - 1
		}
	}
	return w
}

// remember records id, evicting the oldest id once the window is full. d.mu must be held.
func (d *Dispatcher) remember(id string) {
	d.seen[id] = d.order.PushBack(id)
	for d.order.Len() > d.window {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.seen, oldest.Value.(string))
	}
}

// Flush sends every pending intent in enqueue order and returns how many were sent. Intents
// whose send fails go back to the head of the outbox. Flush stops early when ctx is done.
func (d *Dispatcher) Flush(ctx context.Context) int {
	d.flushMu.Lock()
	defer d.flushMu.Unlock()

	d.mu.Lock()
	batch := d.outbox
	d.outbox = nil
	d.mu.Unlock()

	var (
		sent      int
		failures  int
		failed    []pendingIntent
		delivered []uint64
	)
	for i, p := range batch {
		if ctx.Err() != nil {
			failed = append(failed, batch[i:]...)
			break
		}

		attrs := metric.WithAttributes(attribute.String("recipient", string(p.intent.Recipient)))
		if err := d.transport.Send(ctx, p.intent); err != nil {
			p.attempts++
			failures++
			failed = append(failed, p)
			d.failedCounter.Add(ctx, 1, attrs)
			d.logger.ErrorContext(ctx, "notification send failed",
				"intent", p.intent.ID,
				"attempts", p.attempts,
				"error", err)
			continue
		}
		sent++
		delivered = append(delivered, p.position)
		d.sentCounter.Add(ctx, 1, attrs)
	}

	d.mu.Lock()
	d.outbox = append(failed, d.outbox...)
	d.stats.Sent += int64(sent)
	d.stats.Failed += int64(failures)
	for _, pos := range delivered {
		if pos == 0 {
			continue
		}
		if d.pendingAt[pos]--; d.pendingAt[pos] <= 0 {
			delete(d.pendingAt, pos)
		}
	}
	cursor := d.delivered()
	d.mu.Unlock()

	d.saveCursor(ctx, cursor)

	if sent > 0 || len(failed) > 0 {
		d.logger.InfoContext(ctx, "notifications flushed", "sent", sent, "pending", len(failed))
	}
	return sent
}

// saveCursor records cursor when it moved. Only Flush calls it, under flushMu.
func (d *Dispatcher) saveCursor(ctx context.Context, cursor uint64) {
	if d.cursor == nil || cursor <= d.saved {
		return
	}
	if err := d.cursor.Save(context.WithoutCancel(ctx), CursorName, cursor); err != nil {
		d.logger.ErrorContext(ctx, "saving delivery cursor failed", "position", cursor, "error", err)
		return
	}
	d.saved = cursor
}

// Pending returns the intents waiting in the outbox, oldest first.
func (d *Dispatcher) Pending() []notification.Intent {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]notification.Intent, len(d.outbox))
	for i, p := range d.outbox {
		out[i] = p.intent
	}
	return out
}

// Stats returns the dispatcher's counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.stats
	s.Pending = len(d.outbox)
	return s
}
