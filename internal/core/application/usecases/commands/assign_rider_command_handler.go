package commands

import (
	"context"

	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/services"
)

// AssignRiderCommandHandler performs the initial assignment. The RiderAssigned and
// StatusChanged events are committed together inside the rider's lock, so of two concurrent
// assignments of the same rider exactly one succeeds and the other gets RiderUnavailable.
type AssignRiderCommandHandler struct {
	pipeline *Pipeline
}

func NewAssignRiderCommandHandler(pipeline *Pipeline) AssignRiderCommandHandler {
	return AssignRiderCommandHandler{pipeline: pipeline}
}

// Handle assigns the rider. Orders past Created are not assignable; use ReassignRider to
// change the rider of an Assigned order.
func (h AssignRiderCommandHandler) Handle(ctx context.Context, cmd AssignRiderCommand) (order.Snapshot, error) {
	if err := cmd.Validate(); err != nil {
		return order.Snapshot{}, err
	}

	p := h.pipeline
	return p.execute(ctx, "assign_rider", cmd.OrderID(), func(ctx context.Context, o *order.Order, commit appendFunc) error {
		snap := o.Snapshot()
		if snap.Status == order.Created {
			if err := p.validator.Validate(services.TransitionRequest{
				From:          order.Created,
				To:            order.Assigned,
				Actor:         cmd.Actor(),
				RiderAttached: true,
			}); err != nil {
				return err
			}
		}

		riderID := cmd.RiderID()
		now := p.clock.Now()
		seq := next(o)
		events := []order.Event{
			order.NewRiderAssignedEvent(o.ID(), seq, cmd.Actor(), now, riderID, nil),
			order.NewStatusChangedEvent(o.ID(), seq+1, cmd.Actor(), now, order.Created, order.Assigned, &riderID),
		}

		_, err := p.coordinator.Assign(ctx, snap, riderID, commit(events...))
		return err
	})
}
