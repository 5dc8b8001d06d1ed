package jobs

import (
	"context"
	"log/slog"
	"time"

	"dispatch/internal/core/ports"

	"github.com/robfig/cron/v3"
)

// DefaultNotificationFlushSpec flushes the outbox every second.
const DefaultNotificationFlushSpec = "* * * * * *"

// Flusher delivers pending notification intents and returns how many were sent. CatchUp
// enqueues committed events the live feed did not deliver.
type Flusher interface {
	CatchUp(ctx context.Context, log ports.EventLog) (int, error)
	Flush(ctx context.Context) int
}

// NotificationDeliveryJob drains the notification outbox on a schedule. Each run first picks
// up committed events missing from the outbox, then sends. Failed sends stay in the outbox
// and are retried on the next run.
type NotificationDeliveryJob struct {
	flusher Flusher
	log     ports.EventLog
	spec    string
	timeout time.Duration
	cron    *cron.Cron
	logger  *slog.Logger
}

// NewNotificationDeliveryJob creates the job. spec is a cron expression with seconds; an
// empty spec uses DefaultNotificationFlushSpec.
func NewNotificationDeliveryJob(flusher Flusher, log ports.EventLog, spec string, logger *slog.Logger) *NotificationDeliveryJob {
	if spec == "" {
		spec = DefaultNotificationFlushSpec
	}
	logger = logger.With("component", "notification_delivery_job")
	return &NotificationDeliveryJob{
		flusher: flusher,
		log:     log,
		spec:    spec,
		timeout: 30 * time.Second,
		cron:    newCron(logger),
		logger:  logger,
	}
}

// RunOnce catches up with the log and flushes the outbox once. A failed catch-up is logged
// and the flush still runs.
func (j *NotificationDeliveryJob) RunOnce(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	if j.log != nil {
		if caught, err := j.flusher.CatchUp(ctx, j.log); err != nil {
			j.logger.ErrorContext(ctx, "Notification catch-up failed", "enqueued_events", caught, "error", err)
		} else if caught > 0 {
			j.logger.InfoContext(ctx, "Notification catch-up enqueued events", "events", caught)
		}
	}
	return j.flusher.Flush(ctx)
}

// Start schedules the job.
func (j *NotificationDeliveryJob) Start() error {
	if _, err := j.cron.AddFunc(j.spec, func() { j.RunOnce(context.Background()) }); err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Notification delivery job started", "spec", j.spec)
	return nil
}

// Stop stops scheduling and waits for a running flush. A final flush then delivers what the
// last commands enqueued.
func (j *NotificationDeliveryJob) Stop() {
	<-j.cron.Stop().Done()
	sent := j.RunOnce(context.Background())
	j.logger.InfoContext(context.Background(), "Notification delivery job stopped", "final_flush_sent", sent)
}

// newCron runs jobs with seconds precision and never overlaps two runs of the same job.
func newCron(logger *slog.Logger) *cron.Cron {
	return cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger})),
	)
}

// cronLogger adapts slog to cron's logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
