package commands

import (
	"errors"
	"strings"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

var ErrCreateOrderCommandIsNotConstructed = errors.New(
	"CreateOrderCommand must be created via NewCreateOrderCommand constructor",
)

// CreateOrderCommand opens a new order in Created status.
//
// Example:
//
//	cmd, err := NewCreateOrderCommand(kernel.NewUUID(), "customer-42", 2500, agent)
//	if err != nil {
//	    return fmt.Errorf("invalid order data: %w", err)
//	}
//	snap, err := handler.Handle(ctx, cmd)
type CreateOrderCommand struct { //nolint:recvcheck //using for validation
	orderID     kernel.UUID
	customerRef string
	amount      int64
	actor       order.Actor

	guard guard.ConstructorGuard
}

// NewCreateOrderCommand validates the order data. The amount is in minor units and must be
// positive. Riders cannot open orders.
func NewCreateOrderCommand(orderID kernel.UUID, customerRef string, amount int64, actor order.Actor) (CreateOrderCommand, error) {
	cmd := CreateOrderCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setOrderID(orderID),
		cmd.setCustomerRef(customerRef),
		cmd.setAmount(amount),
		cmd.setActor(actor),
	); err != nil {
		return CreateOrderCommand{}, err
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c CreateOrderCommand) Validate() error {
	return c.guard.Validate(ErrCreateOrderCommandIsNotConstructed)
}

func (c CreateOrderCommand) OrderID() kernel.UUID {
	return c.orderID
}

func (c CreateOrderCommand) CustomerRef() string {
	return c.customerRef
}

// Amount returns the order value in minor units.
func (c CreateOrderCommand) Amount() int64 {
	return c.amount
}

func (c CreateOrderCommand) Actor() order.Actor {
	return c.actor
}

func (c *CreateOrderCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}

	c.orderID = orderID
	return nil
}

func (c *CreateOrderCommand) setCustomerRef(customerRef string) error {
	customerRef = strings.TrimSpace(customerRef)
	if customerRef == "" {
		return errs.NewValueIsRequiredError("customer reference")
	}

	c.customerRef = customerRef
	return nil
}

func (c *CreateOrderCommand) setAmount(amount int64) error {
	if amount <= 0 {
		return errs.NewValueIsOutOfRangeError("amount", amount, 1, "max int64")
	}

	c.amount = amount
	return nil
}

func (c *CreateOrderCommand) setActor(actor order.Actor) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	if actor.Role == order.Rider {
		return errs.NewValueIsInvalidError("riders cannot create orders")
	}

	c.actor = actor
	return nil
}
