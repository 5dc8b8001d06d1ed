package commands

import (
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/guard"
)

var ErrConfirmDeliveryCommandIsNotConstructed = errors.New(
	"ConfirmDeliveryCommand must be created via NewConfirmDeliveryCommand constructor",
)

// ConfirmDeliveryCommand completes an InTransit order with a proof of delivery: a signature,
// a photo or a code handed over by the customer.
//
// Example:
//
//	proof, _ := order.NewProof(order.ProofCode, "4711")
//	rider, _ := order.NewActor(order.Rider, riderID.String())
//	cmd, err := NewConfirmDeliveryCommand(orderID, proof, rider)
type ConfirmDeliveryCommand struct { //nolint:recvcheck //using for validation
	orderID kernel.UUID
	proof   order.Proof
	actor   order.Actor

	guard guard.ConstructorGuard
}

func NewConfirmDeliveryCommand(orderID kernel.UUID, proof order.Proof, actor order.Actor) (ConfirmDeliveryCommand, error) {
	cmd := ConfirmDeliveryCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setOrderID(orderID),
		cmd.setProof(proof),
		cmd.setActor(actor),
	); err != nil {
		return ConfirmDeliveryCommand{}, err
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c ConfirmDeliveryCommand) Validate() error {
	return c.guard.Validate(ErrConfirmDeliveryCommandIsNotConstructed)
}

func (c ConfirmDeliveryCommand) OrderID() kernel.UUID {
	return c.orderID
}

func (c ConfirmDeliveryCommand) Proof() order.Proof {
	return c.proof
}

func (c ConfirmDeliveryCommand) Actor() order.Actor {
	return c.actor
}

func (c *ConfirmDeliveryCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}

	c.orderID = orderID
	return nil
}

func (c *ConfirmDeliveryCommand) setProof(proof order.Proof) error {
	if err := proof.Validate(); err != nil {
		return err
	}

	c.proof = proof
	return nil
}

func (c *ConfirmDeliveryCommand) setActor(actor order.Actor) error {
	if err := actor.Validate(); err != nil {
		return err
	}

	c.actor = actor
	return nil
}
