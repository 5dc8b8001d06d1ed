package commands

import (
	"context"
	"errors"

	"dispatch/internal/core/domain/model/rider"
	"dispatch/internal/pkg/errs"
)

// RegisterRiderCommandHandler persists a new rider and makes it assignable.
type RegisterRiderCommandHandler struct {
	pipeline *Pipeline
}

func NewRegisterRiderCommandHandler(pipeline *Pipeline) RegisterRiderCommandHandler {
	return RegisterRiderCommandHandler{pipeline: pipeline}
}

// Handle registers the rider. A rider id that is already registered is ValueIsInvalid.
func (h RegisterRiderCommandHandler) Handle(ctx context.Context, cmd RegisterRiderCommand) (rider.Snapshot, error) {
	if err := cmd.Validate(); err != nil {
		return rider.Snapshot{}, err
	}

	r, err := rider.NewRider(cmd.RiderID(), cmd.Name())
	if err != nil {
		return rider.Snapshot{}, err
	}

	p := h.pipeline
	var out rider.Snapshot
	err = p.withTimeout(ctx, "register_rider", func(ctx context.Context) error {
		var err error
		out, err = p.coordinator.Register(ctx, r, func(ctx context.Context, s rider.Snapshot) error {
			return riderWriteError("add rider", p.riders.Add(ctx, s))
		})
		return err
	})
	if err != nil {
		return rider.Snapshot{}, err
	}
	return out, nil
}

// riderWriteError keeps classified repository errors and reports the rest as WriteFailed.
func riderWriteError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errs.ErrValueIsInvalid),
		errors.Is(err, errs.ErrObjectNotFound),
		errors.Is(err, errs.ErrTimeout),
		errors.Is(err, errs.ErrWriteFailed):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return errs.NewTimeoutError(op, err)
	default:
		return errs.NewWriteFailedError(op, err)
	}
}
