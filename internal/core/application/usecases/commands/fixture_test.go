package commands_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"dispatch/internal/adapters/out/memory"
	"dispatch/internal/core/application/orderstate"
	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/rider"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/clock"
	"dispatch/internal/pkg/keylock"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	agent  = order.Actor{Role: order.Agent, ID: "agent-1"}
	system = order.SystemActor("timer")
)

func riderActor(id kernel.UUID) order.Actor {
	return order.Actor{Role: order.Rider, ID: id.String()}
}

type fixture struct {
	log         ports.EventLog
	riders      *memory.RiderRepository
	locks       *keylock.Locker
	coordinator *services.AssignmentCoordinator
	store       *orderstate.Store
	clock       *clock.Manual
	pipeline    *commands.Pipeline
}

type fixtureOption func(*fixture, *commands.PipelineDeps)

func withEventLog(log ports.EventLog) fixtureOption {
	return func(f *fixture, deps *commands.PipelineDeps) {
		f.log = log
		deps.EventLog = log
	}
}

func withTimeout(d time.Duration) fixtureOption {
	return func(_ *fixture, deps *commands.PipelineDeps) {
		deps.Timeout = d
	}
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	locks := keylock.New()
	f := &fixture{
		log:         memory.NewEventLog(),
		riders:      memory.NewRiderRepository(),
		locks:       locks,
		coordinator: services.NewAssignmentCoordinator(locks),
		store:       orderstate.NewStore(),
		clock:       clock.NewManual(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
	}
	deps := commands.PipelineDeps{
		EventLog:    f.log,
		Riders:      f.riders,
		Locks:       f.locks,
		Coordinator: f.coordinator,
		Validator:   services.NewTransitionValidator(),
		Subscribers: []ports.EventSubscriber{f.store},
		Clock:       f.clock,
		Logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f, &deps)
	}
	f.pipeline = commands.NewPipeline(deps)
	return f
}

func (f *fixture) createOrder(t *testing.T) order.Snapshot {
	t.Helper()

	cmd, err := commands.NewCreateOrderCommand(kernel.NewUUID(), "customer-1", 1500, agent)
	require.NoError(t, err)
	h := commands.NewCreateOrderCommandHandler(f.pipeline)
	snap, err := h.Handle(t.Context(), cmd)
	require.NoError(t, err)
	return snap
}

func (f *fixture) registerRider(t *testing.T, name string) rider.Snapshot {
	t.Helper()

	cmd, err := commands.NewRegisterRiderCommand(kernel.NewUUID(), name)
	require.NoError(t, err)
	h := commands.NewRegisterRiderCommandHandler(f.pipeline)
	snap, err := h.Handle(t.Context(), cmd)
	require.NoError(t, err)
	return snap
}

func (f *fixture) assign(ctx context.Context, orderID, riderID kernel.UUID) (order.Snapshot, error) {
	cmd, err := commands.NewAssignRiderCommand(orderID, riderID, agent)
	if err != nil {
		return order.Snapshot{}, err
	}
	return commands.NewAssignRiderCommandHandler(f.pipeline).Handle(ctx, cmd)
}

func (f *fixture) updateStatus(ctx context.Context, orderID kernel.UUID, to order.Status, actor order.Actor) (order.Snapshot, error) {
	cmd, err := commands.NewUpdateStatusCommand(orderID, to, actor)
	if err != nil {
		return order.Snapshot{}, err
	}
	return commands.NewUpdateStatusCommandHandler(f.pipeline).Handle(ctx, cmd)
}

func (f *fixture) confirm(ctx context.Context, orderID kernel.UUID, actor order.Actor) (order.Snapshot, error) {
	proof, err := order.NewProof(order.ProofSignature, "sig-001")
	if err != nil {
		return order.Snapshot{}, err
	}
	cmd, err := commands.NewConfirmDeliveryCommand(orderID, proof, actor)
	if err != nil {
		return order.Snapshot{}, err
	}
	return commands.NewConfirmDeliveryCommandHandler(f.pipeline).Handle(ctx, cmd)
}

// dispatched creates an order, assigns riderID and drives it to status through the rider.
func (f *fixture) dispatched(t *testing.T, riderID kernel.UUID, status order.Status) order.Snapshot {
	t.Helper()

	ctx := t.Context()
	created := f.createOrder(t)
	snap, err := f.assign(ctx, created.ID, riderID)
	require.NoError(t, err)

	for _, next := range []order.Status{order.PickedUp, order.InTransit} {
		if snap.Status == status {
			break
		}
		snap, err = f.updateStatus(ctx, created.ID, next, riderActor(riderID))
		require.NoError(t, err)
	}
	require.Equal(t, status, snap.Status)
	return snap
}

func (f *fixture) slot(t *testing.T, riderID kernel.UUID) *kernel.UUID {
	t.Helper()

	r, err := f.coordinator.Rider(riderID)
	require.NoError(t, err)
	return r.CurrentOrderID
}

// MockEventLog reads from a real in-memory log. Append consults the mock first and only
// reaches the log when the scripted error is nil.
type MockEventLog struct {
	mock.Mock
	*memory.EventLog
}

func newMockEventLog() *MockEventLog {
	return &MockEventLog{EventLog: memory.NewEventLog()}
}

func (m *MockEventLog) Append(ctx context.Context, events ...order.Event) ([]order.Event, error) {
	args := m.Called(ctx, events)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return m.EventLog.Append(ctx, events...)
}
