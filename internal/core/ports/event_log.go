// Package ports defines the contracts between the dispatch core and its infrastructure.
package ports

import (
	"context"
	"iter"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
)

// EventLog is the append-only, durable record of every order event. It is the single source
// of truth; every other state in the engine is derived from it.
type EventLog interface {
	// Append commits events atomically: either every event is stored or none is. All events
	// must belong to one order and carry consecutive sequences, the first one being the
	// order's last stored sequence + 1. A stale first sequence is a conflict and is reported
	// as a WriteFailedError caused by a VersionIsInvalidError. The returned events carry the
	// global positions assigned at commit.
	Append(ctx context.Context, events ...order.Event) ([]order.Event, error)

	// ReadFrom yields the events of one order with a sequence greater than sinceSequence, in
	// sequence order. Each range over the result reads the store again.
	ReadFrom(ctx context.Context, orderID kernel.UUID, sinceSequence uint64) iter.Seq2[order.Event, error]

	// ReadAll yields every event with a position greater than sincePosition, in position
	// order. It is used for rebuilds and catch-up.
	ReadAll(ctx context.Context, sincePosition uint64) iter.Seq2[order.Event, error]
}

// EventSubscriber receives committed events in per-order sequence order. Subscribers must
// tolerate redelivery of an event they have already seen.
type EventSubscriber interface {
	OnEvent(ctx context.Context, e order.Event) error
}
