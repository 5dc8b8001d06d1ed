package commands

import (
	"context"

	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/services"
)

// ConfirmDeliveryCommandHandler moves an InTransit order to Delivered and frees the rider.
// A confirmation racing a cancellation is decided by the order lock: whichever commits
// second sees a terminal order and gets InvalidTransition.
type ConfirmDeliveryCommandHandler struct {
	pipeline *Pipeline
}

func NewConfirmDeliveryCommandHandler(pipeline *Pipeline) ConfirmDeliveryCommandHandler {
	return ConfirmDeliveryCommandHandler{pipeline: pipeline}
}

func (h ConfirmDeliveryCommandHandler) Handle(ctx context.Context, cmd ConfirmDeliveryCommand) (order.Snapshot, error) {
	if err := cmd.Validate(); err != nil {
		return order.Snapshot{}, err
	}

	p := h.pipeline
	return p.execute(ctx, "confirm_delivery", cmd.OrderID(), func(ctx context.Context, o *order.Order, commit appendFunc) error {
		if err := p.validator.Validate(services.TransitionRequest{
			From:          o.Status(),
			To:            order.Delivered,
			Actor:         cmd.Actor(),
			AssignedRider: o.Rider(),
		}); err != nil {
			return err
		}

		e := order.NewDeliveryConfirmedEvent(o.ID(), next(o), cmd.Actor(), p.clock.Now(), o.Rider(), cmd.Proof())
		return p.coordinator.Release(ctx, o.ID(), o.Rider(), commit(e))
	})
}
