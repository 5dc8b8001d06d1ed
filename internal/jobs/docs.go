// Package jobs provides scheduled background tasks for the dispatch engine.
//
// This package implements cron-based jobs using github.com/robfig/cron/v3.
//
// # Available Jobs
//
// 1. NotificationDeliveryJob - drains the notification outbox through the configured transport
// 2. AnalyticsCatchUpJob - applies events the analytics aggregator has not seen yet
//
// # Usage
//
//	jobManager := jobs.NewJobManager(dispatcher, aggregator, eventLog, jobs.Schedules{}, logger)
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//	defer jobManager.StopAll()
//
// # Scheduling
//
// Schedules are cron expressions with a seconds field. Runs of the same job never overlap; a
// run that is still busy when the next tick fires makes that tick a no-op.
//
// # Error Handling
//
// - Delivery failures stay in the outbox and are retried on the next run
// - Catch-up failures are logged; the next run resumes from the same watermark
// - Failed job starts will stop any already running jobs
package jobs
