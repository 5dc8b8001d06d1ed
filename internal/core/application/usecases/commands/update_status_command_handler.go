package commands

import (
	"context"

	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/services"
)

// UpdateStatusCommandHandler applies plain status changes: pickup, in transit, delivery and
// cancellation. Assigned is reached through AssignRider. A delivery recorded here carries no
// proof; ConfirmDelivery is the path that attaches one.
//
// Moving to a terminal status releases the rider's slot in the same critical section that
// commits the change.
type UpdateStatusCommandHandler struct {
	pipeline *Pipeline
}

func NewUpdateStatusCommandHandler(pipeline *Pipeline) UpdateStatusCommandHandler {
	return UpdateStatusCommandHandler{pipeline: pipeline}
}

// Handle validates the change against the order rebuilt from the log and commits it.
func (h UpdateStatusCommandHandler) Handle(ctx context.Context, cmd UpdateStatusCommand) (order.Snapshot, error) {
	if err := cmd.Validate(); err != nil {
		return order.Snapshot{}, err
	}

	p := h.pipeline
	return p.execute(ctx, "update_status", cmd.OrderID(), func(ctx context.Context, o *order.Order, commit appendFunc) error {
		from, to, actor := o.Status(), cmd.Status(), cmd.Actor()

		if err := p.validator.Validate(services.TransitionRequest{
			From:          from,
			To:            to,
			Actor:         actor,
			AssignedRider: o.Rider(),
		}); err != nil {
			return err
		}

		e := order.NewStatusChangedEvent(o.ID(), next(o), actor, p.clock.Now(), from, to, o.Rider())
		if to.IsTerminal() {
			return p.coordinator.Release(ctx, o.ID(), o.Rider(), commit(e))
		}
		return commit(e)(ctx)
	})
}
