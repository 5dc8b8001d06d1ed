package commands

import (
	"context"

	"dispatch/internal/core/domain/model/order"
)

// CreateOrderCommandHandler appends the OrderCreated event of a new order.
//
// Example:
//
//	handler := NewCreateOrderCommandHandler(pipeline)
//	snap, err := handler.Handle(ctx, cmd)
//	if err != nil {
//	    return fmt.Errorf("order creation failed: %w", err)
//	}
//	// snap.Status == order.Created
type CreateOrderCommandHandler struct {
	pipeline *Pipeline
}

func NewCreateOrderCommandHandler(pipeline *Pipeline) CreateOrderCommandHandler {
	return CreateOrderCommandHandler{pipeline: pipeline}
}

// Handle creates the order. An id that already has events is a conflict and is reported as
// WriteFailed caused by VersionIsInvalid.
func (h CreateOrderCommandHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (order.Snapshot, error) {
	if err := cmd.Validate(); err != nil {
		return order.Snapshot{}, err
	}

	p := h.pipeline
	return p.run(ctx, "create_order", cmd.OrderID(), func(ctx context.Context, commit appendFunc) (*order.Order, error) {
		created, err := order.NewOrderCreatedEvent(cmd.OrderID(), cmd.Actor(), p.clock.Now(), cmd.CustomerRef(), cmd.Amount())
		if err != nil {
			return nil, err
		}
		return nil, commit(created)(ctx)
	})
}
