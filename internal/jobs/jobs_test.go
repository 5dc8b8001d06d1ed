package jobs_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"dispatch/internal/adapters/out/memory"
	"dispatch/internal/core/ports"
	"dispatch/internal/jobs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockFlusher struct{ mock.Mock }

func (m *MockFlusher) Flush(ctx context.Context) int {
	return m.Called(ctx).Int(0)
}

func (m *MockFlusher) CatchUp(ctx context.Context, log ports.EventLog) (int, error) {
	args := m.Called(ctx, log)
	return args.Int(0), args.Error(1)
}

type MockCatchUpper struct{ mock.Mock }

func (m *MockCatchUpper) CatchUp(ctx context.Context, log ports.EventLog) (int, error) {
	args := m.Called(ctx, log)
	return args.Int(0), args.Error(1)
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestNotificationDeliveryJob(t *testing.T) {
	t.Run("should catch up and flush with a bounded context", func(t *testing.T) {
		log := memory.NewEventLog()
		flusher := new(MockFlusher)
		flusher.On("CatchUp", mock.Anything, log).Return(1, nil).Once()
		flusher.On("Flush", mock.MatchedBy(func(ctx context.Context) bool {
			_, ok := ctx.Deadline()
			return ok
		})).Return(3).Once()

		sent := jobs.NewNotificationDeliveryJob(flusher, log, "", discard()).RunOnce(t.Context())

		assert.Equal(t, 3, sent)
		flusher.AssertExpectations(t)
	})

	t.Run("should still flush when the catch-up fails", func(t *testing.T) {
		flusher := new(MockFlusher)
		flusher.On("CatchUp", mock.Anything, mock.Anything).Return(0, errors.New("read failed")).Once()
		flusher.On("Flush", mock.Anything).Return(2).Once()

		sent := jobs.NewNotificationDeliveryJob(flusher, memory.NewEventLog(), "", discard()).RunOnce(t.Context())

		assert.Equal(t, 2, sent)
		flusher.AssertExpectations(t)
	})

	t.Run("should flush once more when stopped", func(t *testing.T) {
		flusher := new(MockFlusher)
		flusher.On("CatchUp", mock.Anything, mock.Anything).Return(0, nil)
		flusher.On("Flush", mock.Anything).Return(0)
		job := jobs.NewNotificationDeliveryJob(flusher, memory.NewEventLog(), "@every 1h", discard())

		require.NoError(t, job.Start())
		job.Stop()

		flusher.AssertNumberOfCalls(t, "Flush", 1)
	})

	t.Run("should refuse a malformed schedule", func(t *testing.T) {
		job := jobs.NewNotificationDeliveryJob(new(MockFlusher), nil, "every now and then", discard())

		require.Error(t, job.Start())
	})
}

func TestAnalyticsCatchUpJob(t *testing.T) {
	t.Run("should catch up from the event log", func(t *testing.T) {
		log := memory.NewEventLog()
		aggregator := new(MockCatchUpper)
		aggregator.On("CatchUp", mock.Anything, log).Return(2, nil).Once()

		applied, err := jobs.NewAnalyticsCatchUpJob(aggregator, log, "", discard()).RunOnce(t.Context())

		require.NoError(t, err)
		assert.Equal(t, 2, applied)
		aggregator.AssertExpectations(t)
	})

	t.Run("should report failures", func(t *testing.T) {
		aggregator := new(MockCatchUpper)
		aggregator.On("CatchUp", mock.Anything, mock.Anything).Return(1, errors.New("read failed")).Once()

		applied, err := jobs.NewAnalyticsCatchUpJob(aggregator, memory.NewEventLog(), "", discard()).RunOnce(t.Context())

		require.Error(t, err)
		assert.Equal(t, 1, applied)
	})
}

func TestJobManager(t *testing.T) {
	t.Run("should start and stop every job", func(t *testing.T) {
		flusher := new(MockFlusher)
		flusher.On("CatchUp", mock.Anything, mock.Anything).Return(0, nil)
		flusher.On("Flush", mock.Anything).Return(0)
		manager := jobs.NewJobManager(flusher, new(MockCatchUpper), memory.NewEventLog(),
			jobs.Schedules{NotificationFlush: "@every 1h", AnalyticsCatchUp: "@every 1h"}, discard())

		require.NoError(t, manager.StartAll())
		manager.StopAll()

		flusher.AssertNumberOfCalls(t, "Flush", 1)
	})

	t.Run("should stop started jobs when a later one fails", func(t *testing.T) {
		flusher := new(MockFlusher)
		flusher.On("CatchUp", mock.Anything, mock.Anything).Return(0, nil)
		flusher.On("Flush", mock.Anything).Return(0)
		manager := jobs.NewJobManager(flusher, new(MockCatchUpper), memory.NewEventLog(),
			jobs.Schedules{NotificationFlush: "@every 1h", AnalyticsCatchUp: "not a schedule"}, discard())

		require.Error(t, manager.StartAll())
		flusher.AssertNumberOfCalls(t, "Flush", 1)
	})
}
