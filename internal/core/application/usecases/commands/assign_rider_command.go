package commands

import (
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/guard"
)

var ErrAssignRiderCommandIsNotConstructed = errors.New(
	"AssignRiderCommand must be created via NewAssignRiderCommand constructor",
)

// AssignRiderCommand binds a rider to a Created order and moves it to Assigned.
//
// Example:
//
//	cmd, err := NewAssignRiderCommand(orderID, riderID, agent)
//	if err != nil {
//	    return err
//	}
//	snap, err := handler.Handle(ctx, cmd)
//	if errors.Is(err, errs.ErrRiderUnavailable) {
//	    // somebody else got the rider first
//	}
type AssignRiderCommand struct { //nolint:recvcheck //using for validation
	orderID kernel.UUID
	riderID kernel.UUID
	actor   order.Actor

	guard guard.ConstructorGuard
}

func NewAssignRiderCommand(orderID, riderID kernel.UUID, actor order.Actor) (AssignRiderCommand, error) {
	cmd := AssignRiderCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setOrderID(orderID),
		cmd.setRiderID(riderID),
		cmd.setActor(actor),
	); err != nil {
		return AssignRiderCommand{}, err
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c AssignRiderCommand) Validate() error {
	return c.guard.Validate(ErrAssignRiderCommandIsNotConstructed)
}

func (c AssignRiderCommand) OrderID() kernel.UUID {
	return c.orderID
}

func (c AssignRiderCommand) RiderID() kernel.UUID {
	return c.riderID
}

func (c AssignRiderCommand) Actor() order.Actor {
	return c.actor
}

func (c *AssignRiderCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}

	c.orderID = orderID
	return nil
}

func (c *AssignRiderCommand) setRiderID(riderID kernel.UUID) error {
	if err := riderID.Validate(); err != nil {
		return err
	}

	c.riderID = riderID
	return nil
}

func (c *AssignRiderCommand) setActor(actor order.Actor) error {
	if err := actor.Validate(); err != nil {
		return err
	}

	c.actor = actor
	return nil
}
