package jobs

import (
	"fmt"
	"log/slog"

	"dispatch/internal/core/ports"
)

// JobManager coordinates all scheduled jobs in the application.
// Provides a unified interface to start and stop all background jobs.
type JobManager struct {
	notificationDeliveryJob *NotificationDeliveryJob
	analyticsCatchUpJob     *AnalyticsCatchUpJob
}

// Schedules are the cron expressions of the jobs; empty values use the defaults.
type Schedules struct {
	NotificationFlush string
	AnalyticsCatchUp  string
}

// NewJobManager creates a new job manager with all required jobs.
func NewJobManager(
	flusher Flusher,
	aggregator CatchUpper,
	log ports.EventLog,
	schedules Schedules,
	logger *slog.Logger,
) *JobManager {
	return &JobManager{
		notificationDeliveryJob: NewNotificationDeliveryJob(flusher, log, schedules.NotificationFlush, logger),
		analyticsCatchUpJob:     NewAnalyticsCatchUpJob(aggregator, log, schedules.AnalyticsCatchUp, logger),
	}
}

// StartAll starts all scheduled jobs.
// Returns an error if any job fails to start.
func (jm *JobManager) StartAll() error {
	if err := jm.notificationDeliveryJob.Start(); err != nil {
		return fmt.Errorf("failed to start notification delivery job: %w", err)
	}

	if err := jm.analyticsCatchUpJob.Start(); err != nil {
		// Stop already started jobs if this one fails
		jm.notificationDeliveryJob.Stop()
		return fmt.Errorf("failed to start analytics catch-up job: %w", err)
	}

	return nil
}

// StopAll stops all scheduled jobs gracefully.
func (jm *JobManager) StopAll() {
	jm.analyticsCatchUpJob.Stop()
	jm.notificationDeliveryJob.Stop()
}
