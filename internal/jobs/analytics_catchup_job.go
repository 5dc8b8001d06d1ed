package jobs

import (
	"context"
	"log/slog"
	"time"

	"dispatch/internal/core/ports"

	"github.com/robfig/cron/v3"
)

// DefaultAnalyticsCatchUpSpec runs the catch-up every ten seconds.
const DefaultAnalyticsCatchUpSpec = "*/10 * * * * *"

// CatchUpper applies the events after its watermark.
type CatchUpper interface {
	CatchUp(ctx context.Context, log ports.EventLog) (int, error)
}

// AnalyticsCatchUpJob reads the event log after the aggregator's watermark, so events the
// live feed missed still reach the figures.
type AnalyticsCatchUpJob struct {
	aggregator CatchUpper
	log        ports.EventLog
	spec       string
	timeout    time.Duration
	cron       *cron.Cron
	logger     *slog.Logger
}

// NewAnalyticsCatchUpJob creates the job. An empty spec uses DefaultAnalyticsCatchUpSpec.
func NewAnalyticsCatchUpJob(aggregator CatchUpper, log ports.EventLog, spec string, logger *slog.Logger) *AnalyticsCatchUpJob {
	if spec == "" {
		spec = DefaultAnalyticsCatchUpSpec
	}
	logger = logger.With("component", "analytics_catchup_job")
	return &AnalyticsCatchUpJob{
		aggregator: aggregator,
		log:        log,
		spec:       spec,
		timeout:    time.Minute,
		cron:       newCron(logger),
		logger:     logger,
	}
}

// RunOnce catches up once and returns how many events changed the figures.
func (j *AnalyticsCatchUpJob) RunOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	applied, err := j.aggregator.CatchUp(ctx, j.log)
	if err != nil {
		j.logger.ErrorContext(ctx, "Analytics catch-up failed", "applied", applied, "error", err)
		return applied, err
	}
	if applied > 0 {
		j.logger.InfoContext(ctx, "Analytics caught up", "applied", applied)
	}
	return applied, nil
}

// Start schedules the job.
func (j *AnalyticsCatchUpJob) Start() error {
	if _, err := j.cron.AddFunc(j.spec, func() { _, _ = j.RunOnce(context.Background()) }); err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Analytics catch-up job started", "spec", j.spec)
	return nil
}

// Stop stops scheduling and waits for a running catch-up.
func (j *AnalyticsCatchUpJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.InfoContext(context.Background(), "Analytics catch-up job stopped")
}
