package eventlogrepo

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	"dispatch/internal/adapters/out/postgres"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 256

	// appendLockKey is the postgres advisory lock serializing appends across processes.
	appendLockKey int64 = 0x64697370617463
)

// GormEventLog implements ports.EventLog on top of gorm.
//
// Appends run in one transaction that checks the order's last sequence, assigns positions
// after the current maximum and inserts the batch. On postgres the transaction first takes a
// transaction-scoped advisory lock, so positions become visible in commit order and a reader
// resuming from a position never skips a late commit.
type GormEventLog struct {
	db       *gorm.DB
	mu       sync.Mutex
	pageSize int
}

// NewGormEventLog creates an event log over db. The order_events table must exist.
func NewGormEventLog(db *gorm.DB) *GormEventLog {
	return &GormEventLog{
		db:       db,
		pageSize: defaultPageSize,
	}
}

// WithPageSize sets how many rows a read fetches per query.
func (r *GormEventLog) WithPageSize(n int) *GormEventLog {
	if n > 0 {
		r.pageSize = n
	}
	return r
}

// Append implements ports.EventLog.
func (r *GormEventLog) Append(ctx context.Context, events ...order.Event) ([]order.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, appendError(err)
	}
	if err := order.ValidateBatch(events); err != nil {
		return nil, errs.NewWriteFailedError("append events", err)
	}

	dtos := make([]EventDTO, len(events))
	for i, e := range events {
		dto, err := fromDomain(e)
		if err != nil {
			return nil, errs.NewWriteFailedError("append events", err)
		}
		dtos[i] = dto
	}
	orderID := dtos[0].OrderID
	first := events[0].Sequence

	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", appendLockKey).Error; err != nil {
				return err
			}
		}

		var last uint64
		if err := tx.Model(&EventDTO{}).
			Where("order_id = ?", orderID).
			Select("COALESCE(MAX(sequence), 0)").
			Scan(&last).Error; err != nil {
			return err
		}
		if first != last+1 {
			return errs.NewVersionIsInvalidError("order version",
				fmt.Errorf("order %s expects sequence %d, got %d", events[0].OrderID, last+1, first))
		}

		var head uint64
		if err := tx.Model(&EventDTO{}).
			Select("COALESCE(MAX(position), 0)").
			Scan(&head).Error; err != nil {
			return err
		}
		for i := range dtos {
			dtos[i].Position = head + uint64(i) + 1
		}

		return tx.Create(&dtos).Error
	})
	if err != nil {
		return nil, appendError(err)
	}

	committed := make([]order.Event, len(events))
	for i, e := range events {
		e.Position = dtos[i].Position
		e.OccurredAt = dtos[i].OccurredAt
		committed[i] = e
	}
	return committed, nil
}

// ReadFrom implements ports.EventLog.
func (r *GormEventLog) ReadFrom(ctx context.Context, orderID kernel.UUID, sinceSequence uint64) iter.Seq2[order.Event, error] {
	return r.pages(ctx, sinceSequence, func(db *gorm.DB, after uint64) *gorm.DB {
		return db.Where("order_id = ? AND sequence > ?", orderID.Bytes(), after).Order("sequence")
	}, func(e order.Event) uint64 { return e.Sequence })
}

// ReadAll implements ports.EventLog.
func (r *GormEventLog) ReadAll(ctx context.Context, sincePosition uint64) iter.Seq2[order.Event, error] {
	return r.pages(ctx, sincePosition, func(db *gorm.DB, after uint64) *gorm.DB {
		return db.Where("position > ?", after).Order("position")
	}, func(e order.Event) uint64 { return e.Position })
}

// pages runs one keyset query per page, resuming after the cursor of the last yielded event.
func (r *GormEventLog) pages(
	ctx context.Context,
	since uint64,
	scope func(db *gorm.DB, after uint64) *gorm.DB,
	cursor func(order.Event) uint64,
) iter.Seq2[order.Event, error] {
	return func(yield func(order.Event, error) bool) {
		after := since
		for {
			if err := ctx.Err(); err != nil {
				yield(order.Event{}, errs.NewTimeoutError("read events", err))
				return
			}

			var dtos []EventDTO
			query := scope(r.db.WithContext(ctx).Model(&EventDTO{}), after).Limit(r.pageSize)
			if err := query.Find(&dtos).Error; err != nil {
				yield(order.Event{}, readError(err))
				return
			}

			for _, dto := range dtos {
				e, err := toDomain(dto)
				if err != nil {
					yield(order.Event{}, fmt.Errorf("read events: %w", err))
					return
				}
				if !yield(e, nil) {
					return
				}
				after = cursor(e)
			}
			if len(dtos) < r.pageSize {
				return
			}
		}
	}
}

func appendError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return errs.NewTimeoutError("append events", err)
	case errors.Is(err, errs.ErrVersionIsInvalid):
		return errs.NewWriteFailedError("append events", err)
	case postgres.IsUniqueViolation(err):
		return errs.NewWriteFailedError("append events",
			errs.NewVersionIsInvalidError("order version", err))
	default:
		return errs.NewWriteFailedError("append events", err)
	}
}

func readError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.NewTimeoutError("read events", err)
	}
	return fmt.Errorf("read events: %w", err)
}
