package commands

import (
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var ErrSetRiderAvailabilityCommandIsNotConstructed = errors.New(
	"SetRiderAvailabilityCommand must be created via NewSetRiderAvailabilityCommand constructor",
)

// SetRiderAvailabilityCommand puts a rider on or off shift.
type SetRiderAvailabilityCommand struct { //nolint:recvcheck //using for validation
	riderID   kernel.UUID
	available bool

	guard guard.ConstructorGuard
}

func NewSetRiderAvailabilityCommand(riderID kernel.UUID, available bool) (SetRiderAvailabilityCommand, error) {
	cmd := SetRiderAvailabilityCommand{
		available: available,
		guard:     guard.NewConstructorGuard(),
	}

	if err := cmd.setRiderID(riderID); err != nil {
		return SetRiderAvailabilityCommand{}, err
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c SetRiderAvailabilityCommand) Validate() error {
	return c.guard.Validate(ErrSetRiderAvailabilityCommandIsNotConstructed)
}

func (c SetRiderAvailabilityCommand) RiderID() kernel.UUID {
	return c.riderID
}

func (c SetRiderAvailabilityCommand) Available() bool {
	return c.available
}

func (c *SetRiderAvailabilityCommand) setRiderID(riderID kernel.UUID) error {
	if err := riderID.Validate(); err != nil {
		return err
	}

	c.riderID = riderID
	return nil
}
