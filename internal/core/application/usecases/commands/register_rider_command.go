package commands

import (
	"errors"
	"strings"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

var ErrRegisterRiderCommandIsNotConstructed = errors.New(
	"RegisterRiderCommand must be created via NewRegisterRiderCommand constructor",
)

// RegisterRiderCommand adds a rider to the fleet. New riders start on shift with no order.
type RegisterRiderCommand struct { //nolint:recvcheck //using for validation
	riderID kernel.UUID
	name    string

	guard guard.ConstructorGuard
}

func NewRegisterRiderCommand(riderID kernel.UUID, name string) (RegisterRiderCommand, error) {
	cmd := RegisterRiderCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setRiderID(riderID),
		cmd.setName(name),
	); err != nil {
		return RegisterRiderCommand{}, err
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c RegisterRiderCommand) Validate() error {
	return c.guard.Validate(ErrRegisterRiderCommandIsNotConstructed)
}

func (c RegisterRiderCommand) RiderID() kernel.UUID {
	return c.riderID
}

func (c RegisterRiderCommand) Name() string {
	return c.name
}

func (c *RegisterRiderCommand) setRiderID(riderID kernel.UUID) error {
	if err := riderID.Validate(); err != nil {
		return err
	}

	c.riderID = riderID
	return nil
}

func (c *RegisterRiderCommand) setName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errs.NewValueIsRequiredError("name")
	}

	c.name = name
	return nil
}
