// Package memory provides in-process implementations of the storage ports. They keep
// everything in memory and are used for local runs and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"
)

const defaultPageSize = 256

// EventLog is an in-memory ports.EventLog. Appends are serialized by a single mutex, which
// also makes positions visible in commit order.
type EventLog struct {
	mu       sync.RWMutex
	byOrder  map[kernel.UUID][]order.Event
	all      []order.Event
	pageSize int
}

// NewEventLog creates an empty log.
func NewEventLog() *EventLog {
	return &EventLog{
		byOrder:  make(map[kernel.UUID][]order.Event),
		pageSize: defaultPageSize,
	}
}

// Append implements ports.EventLog.
func (l *EventLog) Append(ctx context.Context, events ...order.Event) ([]order.Event, error) {
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errs.NewTimeoutError("append events", err)
		}
		return nil, errs.NewWriteFailedError("append events", err)
	}
	if err := order.ValidateBatch(events); err != nil {
		return nil, errs.NewWriteFailedError("append events", err)
	}

	orderID := events[0].OrderID

	l.mu.Lock()
	defer l.mu.Unlock()

	stored := l.byOrder[orderID]
	if want := uint64(len(stored)) + 1; events[0].Sequence != want {
		return nil, errs.NewWriteFailedError("append events", errs.NewVersionIsInvalidError("order version",
			fmt.Errorf("order %s expects sequence %d, got %d", orderID, want, events[0].Sequence)))
	}

	committed := make([]order.Event, len(events))
	for i, e := range events {
		e.Position = uint64(len(l.all)) + 1
		l.all = append(l.all, e)
		stored = append(stored, e)
		committed[i] = e
	}
	l.byOrder[orderID] = stored

	return committed, nil
}

// ReadFrom implements ports.EventLog.
func (l *EventLog) ReadFrom(ctx context.Context, orderID kernel.UUID, sinceSequence uint64) iter.Seq2[order.Event, error] {
	return l.pages(ctx, sinceSequence, func() []order.Event { return l.byOrder[orderID] })
}

// ReadAll implements ports.EventLog.
func (l *EventLog) ReadAll(ctx context.Context, sincePosition uint64) iter.Seq2[order.Event, error] {
	return l.pages(ctx, sincePosition, func() []order.Event { return l.all })
}

// Len returns the number of stored events.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.all)
}

// pages yields source()[since:] a page at a time, copying each page under the read lock.
// Sequences and positions are 1-based and gap-free, so they double as slice offsets.
func (l *EventLog) pages(ctx context.Context, since uint64, source func() []order.Event) iter.Seq2[order.Event, error] {
	return func(yield func(order.Event, error) bool) {
		next := since
		for {
			if err := ctx.Err(); err != nil {
				yield(order.Event{}, errs.NewTimeoutError("read events", err))
				return
			}

			l.mu.RLock()
			src := source()
			var page []order.Event
			if next < uint64(len(src)) {
				end := min(next+uint64(l.pageSize), uint64(len(src)))
				page = slices.Clone(src[next:end])
			}
			l.mu.RUnlock()

			if len(page) == 0 {
				return
			}
			for _, e := range page {
				if !yield(e, nil) {
					return
				}
			}
			next += uint64(len(page))
		}
	}
}
