package commands

import (
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/guard"
)

var ErrReassignRiderCommandIsNotConstructed = errors.New(
	"ReassignRiderCommand must be created via NewReassignRiderCommand constructor",
)

// ReassignRiderCommand hands an Assigned order over to another rider before pickup.
type ReassignRiderCommand struct { //nolint:recvcheck //using for validation
	orderID kernel.UUID
	riderID kernel.UUID
	actor   order.Actor

	guard guard.ConstructorGuard
}

// NewReassignRiderCommand validates the identifiers. riderID is the rider taking over.
func NewReassignRiderCommand(orderID, riderID kernel.UUID, actor order.Actor) (ReassignRiderCommand, error) {
	cmd := ReassignRiderCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setOrderID(orderID),
		cmd.setRiderID(riderID),
		cmd.setActor(actor),
	); err != nil {
		return ReassignRiderCommand{}, err
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c ReassignRiderCommand) Validate() error {
	return c.guard.Validate(ErrReassignRiderCommandIsNotConstructed)
}

func (c ReassignRiderCommand) OrderID() kernel.UUID {
	return c.orderID
}

// RiderID returns the rider taking over the order.
func (c ReassignRiderCommand) RiderID() kernel.UUID {
	return c.riderID
}

func (c ReassignRiderCommand) Actor() order.Actor {
	return c.actor
}

func (c *ReassignRiderCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}

	c.orderID = orderID
	return nil
}

func (c *ReassignRiderCommand) setRiderID(riderID kernel.UUID) error {
	if err := riderID.Validate(); err != nil {
		return err
	}

	c.riderID = riderID
	return nil
}

func (c *ReassignRiderCommand) setActor(actor order.Actor) error {
	if err := actor.Validate(); err != nil {
		return err
	}

	c.actor = actor
	return nil
}
