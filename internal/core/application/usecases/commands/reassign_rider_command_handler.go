package commands

import (
	"context"

	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"
)

// ReassignRiderCommandHandler swaps the rider of an Assigned order. Only agents may do it
// and only before pickup; the old rider's slot is freed and the new one taken in one
// critical section holding both rider locks.
type ReassignRiderCommandHandler struct {
	pipeline *Pipeline
}

func NewReassignRiderCommandHandler(pipeline *Pipeline) ReassignRiderCommandHandler {
	return ReassignRiderCommandHandler{pipeline: pipeline}
}

func (h ReassignRiderCommandHandler) Handle(ctx context.Context, cmd ReassignRiderCommand) (order.Snapshot, error) {
	if err := cmd.Validate(); err != nil {
		return order.Snapshot{}, err
	}

	p := h.pipeline
	return p.execute(ctx, "reassign_rider", cmd.OrderID(), func(ctx context.Context, o *order.Order, commit appendFunc) error {
		current := o.Rider()
		if current == nil {
			return errs.NewOrderNotAssignableError(o.ID().String(), "order has no rider to replace")
		}

		e := order.NewRiderAssignedEvent(o.ID(), next(o), cmd.Actor(), p.clock.Now(), cmd.RiderID(), current)
		_, err := p.coordinator.Reassign(ctx, o.Snapshot(), cmd.Actor(), *current, cmd.RiderID(), commit(e))
		return err
	})
}
