// Package queries contains the read operations. Queries never touch the event log; they
// read the projections the command pipeline keeps current.
package queries

import (
	"dispatch/internal/core/application/analytics"
	"dispatch/internal/core/application/orderstate"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/rider"
)

// OrderReader is the read side of the order projection.
type OrderReader interface {
	Get(id kernel.UUID) (order.Snapshot, error)
	List(f orderstate.Filter) []order.Snapshot
}

// RiderReader exposes the live rider records, slots included.
type RiderReader interface {
	Rider(id kernel.UUID) (rider.Snapshot, error)
	Riders() []rider.Snapshot
}

// AnalyticsReader returns the latest aggregated figures.
type AnalyticsReader interface {
	Snapshot() analytics.Snapshot
}
