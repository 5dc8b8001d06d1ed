package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	httpin "dispatch/internal/adapters/in/http"
	"dispatch/internal/adapters/out/kafka"
	"dispatch/internal/adapters/out/lognotify"
	"dispatch/internal/adapters/out/memory"
	"dispatch/internal/adapters/out/postgres"
	"dispatch/internal/adapters/out/postgres/cursorrepo"
	"dispatch/internal/adapters/out/postgres/eventlogrepo"
	"dispatch/internal/adapters/out/postgres/riderrepo"
	"dispatch/internal/core/application/analytics"
	"dispatch/internal/core/application/notifications"
	"dispatch/internal/core/application/orderstate"
	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/jobs"
	"dispatch/internal/pkg/keylock"

	"gorm.io/gorm"
)

type CompositionRoot struct {
	config Config
	logger *slog.Logger

	gormDB    *gorm.DB
	eventLog  ports.EventLog
	riders    ports.RiderRepository
	cursors   ports.CursorStore
	transport ports.NotificationTransport

	coordinator *services.AssignmentCoordinator
	orders      *orderstate.Store
	dispatcher  *notifications.Dispatcher
	aggregator  *analytics.Aggregator
	pipeline    *commands.Pipeline

	closers []io.Closer
}

// NewCompositionRoot opens storage and rebuilds every in-memory view from the event log
// before any command is accepted.
func NewCompositionRoot(ctx context.Context, config Config, logger *slog.Logger) (*CompositionRoot, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &CompositionRoot{config: config, logger: logger}
	if err := c.openStorage(); err != nil {
		return nil, errors.Join(err, c.Close())
	}
	c.openTransport()

	locks := keylock.New()
	c.coordinator = services.NewAssignmentCoordinator(locks)
	c.orders = orderstate.NewStore()
	c.aggregator = analytics.NewAggregator(logger)
	c.dispatcher = notifications.NewDispatcher(c.transport, logger,
		notifications.WithCustomerResolver(c.orders.CustomerRef),
		notifications.WithCursorStore(c.cursors))

	if err := c.restore(ctx); err != nil {
		return nil, errors.Join(err, c.Close())
	}

	c.pipeline = commands.NewPipeline(commands.PipelineDeps{
		EventLog:    c.eventLog,
		Riders:      c.riders,
		Locks:       locks,
		Coordinator: c.coordinator,
		Validator:   services.NewTransitionValidator(),
		Subscribers: []ports.EventSubscriber{c.orders, c.dispatcher, c.aggregator},
		Timeout:     config.CommandTimeout,
		Logger:      logger,
	})
	return c, nil
}

func (c *CompositionRoot) openStorage() error {
	switch c.config.Storage {
	case StoragePostgres:
		if err := postgres.Migrate(c.config.PostgresURL()); err != nil {
			return err
		}
		db, err := postgres.OpenPostgres(c.config.PostgresURL(), c.config.TracingEnabled)
		if err != nil {
			return err
		}
		c.useDB(db)
	case StorageSQLite:
		db, err := postgres.OpenSQLite(c.config.SQLitePath,
			&eventlogrepo.EventDTO{}, &riderrepo.RiderDTO{}, &cursorrepo.CursorDTO{})
		if err != nil {
			return err
		}
		c.useDB(db)
	default:
		c.eventLog = memory.NewEventLog()
		c.riders = memory.NewRiderRepository()
		c.cursors = memory.NewCursorStore()
	}
	return nil
}

func (c *CompositionRoot) useDB(db *gorm.DB) {
	c.gormDB = db
	c.eventLog = eventlogrepo.NewGormEventLog(db)
	c.riders = riderrepo.NewGormRiderRepository(db)
	c.cursors = cursorrepo.NewGormCursorStore(db)
	if sqlDB, err := db.DB(); err == nil {
		c.closers = append(c.closers, sqlDB)
	}
}

func (c *CompositionRoot) openTransport() {
	if c.config.NotifyTransport == TransportKafka {
		t := kafka.NewTransport(c.config.Brokers(), c.config.KafkaNotificationTopic)
		c.closers = append(c.closers, t)
		c.transport = t
		return
	}
	c.transport = lognotify.NewTransport(c.logger)
}

// restore loads riders and replays the log into the coordinator, the order store and the
// analytics aggregator. The dispatcher re-enqueues what was committed after its delivery
// cursor.
func (c *CompositionRoot) restore(ctx context.Context) error {
	riders, err := c.riders.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load riders: %w", err)
	}
	if err := c.coordinator.Restore(riders, c.eventLog.ReadAll(ctx, 0)); err != nil {
		return fmt.Errorf("restore assignments: %w", err)
	}
	if err := c.orders.Rebuild(ctx, c.eventLog); err != nil {
		return fmt.Errorf("rebuild orders: %w", err)
	}
	applied, err := c.aggregator.CatchUp(ctx, c.eventLog)
	if err != nil {
		return fmt.Errorf("rebuild analytics: %w", err)
	}
	undelivered, err := c.dispatcher.Resume(ctx, c.eventLog)
	if err != nil {
		return fmt.Errorf("resume notifications: %w", err)
	}

	c.logger.InfoContext(ctx, "state restored",
		"storage", c.config.Storage,
		"riders", len(riders),
		"orders", c.orders.Len(),
		"events", applied,
		"undelivered_events", undelivered)
	return nil
}

func (c *CompositionRoot) Handlers() httpin.Handlers {
	return httpin.Handlers{
		CreateOrder:          commands.NewCreateOrderCommandHandler(c.pipeline),
		UpdateStatus:         commands.NewUpdateStatusCommandHandler(c.pipeline),
		AssignRider:          commands.NewAssignRiderCommandHandler(c.pipeline),
		ReassignRider:        commands.NewReassignRiderCommandHandler(c.pipeline),
		ConfirmDelivery:      commands.NewConfirmDeliveryCommandHandler(c.pipeline),
		RegisterRider:        commands.NewRegisterRiderCommandHandler(c.pipeline),
		SetRiderAvailability: commands.NewSetRiderAvailabilityCommandHandler(c.pipeline),

		GetOrder:     queries.NewGetOrderQueryHandler(c.orders),
		ListOrders:   queries.NewListOrdersQueryHandler(c.orders),
		GetRider:     queries.NewGetRiderQueryHandler(c.coordinator),
		ListRiders:   queries.NewListRidersQueryHandler(c.coordinator),
		GetAnalytics: queries.NewGetAnalyticsQueryHandler(c.aggregator),
	}
}

func (c *CompositionRoot) NewJobManager() *jobs.JobManager {
	return jobs.NewJobManager(c.dispatcher, c.aggregator, c.eventLog, jobs.Schedules{
		NotificationFlush: c.config.NotificationFlushSpec,
		AnalyticsCatchUp:  c.config.AnalyticsCatchUpSpec,
	}, c.logger)
}

// PendingNotifications returns how many intents wait in the outbox.
func (c *CompositionRoot) PendingNotifications() int {
	return c.dispatcher.Stats().Pending
}

// Health pings the database when one is in use.
func (c *CompositionRoot) Health(ctx context.Context) error {
	if c.gormDB == nil {
		return nil
	}
	sqlDB, err := c.gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the database and the transport.
func (c *CompositionRoot) Close() error {
	var err error
	for i := len(c.closers) - 1; i >= 0; i-- {
		err = errors.Join(err, c.closers[i].Close())
	}
	c.closers = nil
	return err
}
