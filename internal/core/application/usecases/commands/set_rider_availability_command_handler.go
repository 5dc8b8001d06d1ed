package commands

import (
	"context"

	"dispatch/internal/core/domain/model/rider"
)

// SetRiderAvailabilityCommandHandler changes a rider's shift. A rider going off shift keeps
// the order it holds but cannot be assigned another one.
type SetRiderAvailabilityCommandHandler struct {
	pipeline *Pipeline
}

func NewSetRiderAvailabilityCommandHandler(pipeline *Pipeline) SetRiderAvailabilityCommandHandler {
	return SetRiderAvailabilityCommandHandler{pipeline: pipeline}
}

func (h SetRiderAvailabilityCommandHandler) Handle(ctx context.Context, cmd SetRiderAvailabilityCommand) (rider.Snapshot, error) {
	if err := cmd.Validate(); err != nil {
		return rider.Snapshot{}, err
	}

	p := h.pipeline
	var out rider.Snapshot
	err := p.withTimeout(ctx, "set_rider_availability", func(ctx context.Context) error {
		var err error
		out, err = p.coordinator.SetAvailability(ctx, cmd.RiderID(), cmd.Available(),
			func(ctx context.Context, s rider.Snapshot) error {
				return riderWriteError("update rider", p.riders.Update(ctx, s))
			})
		return err
	})
	if err != nil {
		return rider.Snapshot{}, err
	}
	return out, nil
}
