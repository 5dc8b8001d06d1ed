// Package commands contains the operations that change order and rider state.
//
// Every order command runs through the same Pipeline:
//  1. bound the command by the configured timeout
//  2. lock the order id
//  3. rebuild the order from the event log
//  4. validate the transition and, when a rider is involved, let the assignment
//     coordinator serialize it and run the append inside the rider locks
//  5. fan the committed events out to the subscribers (read model, notifications,
//     analytics) while still holding the order lock, so they see each order in sequence order
//
// Nothing is mutated before the append succeeds. Once it has, the remaining in-memory
// updates run to completion even if the caller goes away.
package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/clock"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/keylock"
	"dispatch/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DefaultCommandTimeout bounds a command when no timeout is configured.
const DefaultCommandTimeout = 5 * time.Second

// PipelineDeps are the collaborators of a Pipeline.
type PipelineDeps struct {
	EventLog    ports.EventLog
	Riders      ports.RiderRepository
	Locks       *keylock.Locker
	Coordinator *services.AssignmentCoordinator
	Validator   services.TransitionValidator
	Subscribers []ports.EventSubscriber
	Clock       clock.Clock
	Timeout     time.Duration
	Logger      *slog.Logger
}

// Pipeline runs commands against the event log. It is shared by all command handlers and
// safe for concurrent use.
type Pipeline struct {
	log         ports.EventLog
	riders      ports.RiderRepository
	locks       *keylock.Locker
	coordinator *services.AssignmentCoordinator
	validator   services.TransitionValidator
	subscribers []ports.EventSubscriber
	clock       clock.Clock
	timeout     time.Duration
	logger      *slog.Logger

	commands metric.Int64Counter
	duration metric.Float64Histogram
	appended metric.Int64Counter
}

// NewPipeline creates a Pipeline. Missing clock, timeout and logger get defaults.
func NewPipeline(deps PipelineDeps) *Pipeline {
	if deps.Clock == nil {
		deps.Clock = clock.NewSystem()
	}
	if deps.Timeout <= 0 {
		deps.Timeout = DefaultCommandTimeout
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	meter := telemetry.Meter("dispatch/commands")
	return &Pipeline{
		log:         deps.EventLog,
		riders:      deps.Riders,
		locks:       deps.Locks,
		coordinator: deps.Coordinator,
		validator:   deps.Validator,
		subscribers: deps.Subscribers,
		clock:       deps.Clock,
		timeout:     deps.Timeout,
		logger:      deps.Logger.With("component", "CommandPipeline"),

		commands: telemetry.Counter(meter, "dispatch.commands", "Commands handled, by command and outcome"),
		duration: telemetry.Histogram(meter, "dispatch.command.duration", "Command latency"),
		appended: telemetry.Counter(meter, "dispatch.events.appended", "Events committed to the log"),
	}
}

// orderStep decides what a command does with the current order. It returns the events to
// commit through commit, which the step may run inside the coordinator.
type orderStep func(ctx context.Context, o *order.Order, commit appendFunc) error

// appendFunc commits events and remembers what was committed.
type appendFunc func(events ...order.Event) services.CommitFunc

// execute runs step for an existing order and returns the order after the commit.
func (p *Pipeline) execute(ctx context.Context, name string, orderID kernel.UUID, step orderStep) (order.Snapshot, error) {
	return p.run(ctx, name, orderID, func(ctx context.Context, commit appendFunc) (*order.Order, error) {
		o, err := order.Replay(orderID, p.log.ReadFrom(ctx, orderID, 0))
		if err != nil {
			return nil, p.readError(err)
		}
		if err := step(ctx, o, commit); err != nil {
			return nil, err
		}
		return o, nil
	})
}

// run holds the order lock around body and publishes whatever body committed.
func (p *Pipeline) run(
	ctx context.Context,
	name string,
	orderID kernel.UUID,
	body func(ctx context.Context, commit appendFunc) (*order.Order, error),
) (snap order.Snapshot, err error) {
	start := p.clock.Now()
	defer func() { p.record(ctx, name, start, err) }()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	unlock, err := p.locks.Lock(ctx, services.OrderLockKey(orderID))
	if err != nil {
		return order.Snapshot{}, errs.NewTimeoutError(name, err)
	}
	defer unlock()

	var committed []order.Event
	commit := func(events ...order.Event) services.CommitFunc {
		return func(ctx context.Context) error {
			out, err := p.log.Append(ctx, events...)
			if err != nil {
				return appendError(err)
			}
			committed = out
			return nil
		}
	}

	base, err := body(ctx, commit)
	if err != nil {
		return order.Snapshot{}, err
	}
	if len(committed) == 0 {
		return order.Snapshot{}, errs.NewWriteFailedError(name, errors.New("no events were committed"))
	}

	// From here on the command has happened; the caller's cancellation no longer applies.
	ctx = context.WithoutCancel(ctx)
	p.appended.Add(ctx, int64(len(committed)))

	result, err := p.fold(base, committed)
	if err != nil {
		p.logger.ErrorContext(ctx, "committed events do not fold", "order", orderID.String(), "error", err)
		return order.Snapshot{}, err
	}
	p.publish(ctx, committed)
	return result.Snapshot(), nil
}

// fold applies committed events to base, or builds the order from them when base is nil.
func (p *Pipeline) fold(base *order.Order, committed []order.Event) (*order.Order, error) {
	if base == nil {
		o, err := order.NewOrder(committed[0])
		if err != nil {
			return nil, err
		}
		return o, o.ApplyAll(committed[1:])
	}
	o := base.Clone()
	return o, o.ApplyAll(committed)
}

// publish hands events to every subscriber. Subscriber failures are logged and never reach
// the caller.
func (p *Pipeline) publish(ctx context.Context, events []order.Event) {
	for _, e := range events {
		for _, s := range p.subscribers {
			if err := s.OnEvent(ctx, e); err != nil {
				p.logger.ErrorContext(ctx, "subscriber failed",
					"event", e.ID().String(),
					"kind", e.Kind.String(),
					"error", err)
			}
		}
	}
}

// withTimeout bounds commands that touch riders only.
func (p *Pipeline) withTimeout(ctx context.Context, name string, fn func(ctx context.Context) error) (err error) {
	start := p.clock.Now()
	defer func() { p.record(ctx, name, start, err) }()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return fn(ctx)
}

func (p *Pipeline) record(ctx context.Context, name string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = errs.Code(err)
	}
	attrs := metric.WithAttributes(
		attribute.String("command", name),
		attribute.String("outcome", outcome),
	)
	p.commands.Add(context.WithoutCancel(ctx), 1, attrs)
	p.duration.Record(context.WithoutCancel(ctx), p.clock.Now().Sub(start).Seconds(), attrs)
}

// next returns the sequence following the order's last event.
func next(o *order.Order) uint64 {
	return o.Version() + 1
}

func (p *Pipeline) readError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.NewTimeoutError("read order", err)
	}
	return err
}

// appendError keeps the event log's classification and fills it in for logs that return
// raw errors.
func appendError(err error) error {
	switch {
	case errors.Is(err, errs.ErrTimeout), errors.Is(err, errs.ErrWriteFailed):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return errs.NewTimeoutError("append events", err)
	default:
		return errs.NewWriteFailedError("append events", err)
	}
}
