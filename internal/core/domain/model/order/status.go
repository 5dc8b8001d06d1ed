package order

import (
	"fmt"

	"dispatch/internal/pkg/errs"
)

// Status represents the lifecycle state of an order.
//
// Lifecycle:
//
//	Created ──> Assigned ──> PickedUp ──> InTransit ──> Delivered
//	   │           │            │             │
//	   └───────────┴────────────┴─────────────┴──────> Cancelled
//
// Delivered and Cancelled are terminal. Which actor may take each edge is decided by the
// transition validator, not by Status itself.
//
// Statuses serialize by name, both as JSON and in the event log.
//
// Example:
//
//	s, err := order.ParseStatus("InTransit")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(s.IsDispatched(), s.IsTerminal()) // true false
type Status int

const (
	// Unknown represents an invalid or undefined status.
	// This value (0) helps catch uninitialized Status values.
	Unknown Status = iota

	// Created is the initial status. The order waits for a rider.
	Created

	// Assigned indicates a rider holds the order but has not collected it yet.
	// The rider can still be replaced in this status.
	Assigned

	// PickedUp indicates the rider has collected the order.
	PickedUp

	// InTransit indicates the rider is on the way to the customer.
	InTransit

	// Delivered is terminal. The order reached the customer.
	Delivered

	// Cancelled is terminal. The order keeps the rider it had for history.
	Cancelled
)

func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:   "Unknown",
		Created:   "Created",
		Assigned:  "Assigned",
		PickedUp:  "PickedUp",
		InTransit: "InTransit",
		Delivered: "Delivered",
		Cancelled: "Cancelled",
	}
}

func getValidStatusStrings() map[Status]string {
	//nolint:exhaustive // Unknown is intentionally excluded as it's invalid
	return map[Status]string{
		Created:   "Created",
		Assigned:  "Assigned",
		PickedUp:  "PickedUp",
		InTransit: "InTransit",
		Delivered: "Delivered",
		Cancelled: "Cancelled",
	}
}

// Statuses returns every valid status in lifecycle order.
func Statuses() []Status {
	return []Status{Created, Assigned, PickedUp, InTransit, Delivered, Cancelled}
}

// ParseStatus converts a status name into a Status. Only valid statuses are accepted.
func ParseStatus(s string) (Status, error) {
	for status, str := range getValidStatusStrings() {
		if str == s {
			return status, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%q is not a valid status", s))
}

// Validate checks if the Status value is valid.
//
// Unknown (0) and any value outside the lifecycle are invalid. This is used on values
// coming from storage or the HTTP surface before they reach the domain.
func (s Status) Validate() error {
	if _, ok := getValidStatusStrings()[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String returns the human-readable name of the status.
// It is safe to call on any Status value, including invalid ones.
func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "Unknown"
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == Delivered || s == Cancelled
}

// IsDispatched reports whether a rider is expected to hold the order in this status.
func (s Status) IsDispatched() bool {
	return s == Assigned || s == PickedUp || s == InTransit
}

// ValidateCanHaveRider validates the consistency between order status and rider assignment.
//
// Business rules:
//   - Created orders must not have a rider
//   - Assigned, PickedUp, InTransit and Delivered orders must have a rider
//   - Cancelled orders may keep the rider they had before cancellation
func (s Status) ValidateCanHaveRider(rider bool) error {
	if s == Cancelled {
		return nil
	}

	if rider && s == Created {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to have a rider", s.String()),
		)
	}

	if !rider && (s.IsDispatched() || s == Delivered) {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to have no rider", s.String()),
		)
	}

	return nil
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name produced by MarshalText.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
