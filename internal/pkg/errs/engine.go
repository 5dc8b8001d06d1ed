package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is the sentinel for status changes that are not edges of the
	// order lifecycle or are requested by the wrong actor.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrRiderUnavailable is the sentinel for assignments to an off-shift or busy rider.
	ErrRiderUnavailable = errors.New("rider unavailable")
	// ErrOrderNotAssignable is the sentinel for assignments to an order that cannot take one.
	ErrOrderNotAssignable = errors.New("order not assignable")
	// ErrWriteFailed is the sentinel for rejected event log appends. Nothing was committed.
	ErrWriteFailed = errors.New("write failed")
	// ErrTimeout is the sentinel for commands that could not be decided within their deadline.
	ErrTimeout = errors.New("timeout")
)

// InvalidTransitionError describes a rejected status change.
type InvalidTransitionError struct {
	From   string
	To     string
	Role   string
	Reason string
	Cause  error
}

// NewInvalidTransitionError creates an InvalidTransitionError.
func NewInvalidTransitionError(from, to, role, reason string) *InvalidTransitionError {
	return &InvalidTransitionError{
		From:   from,
		To:     to,
		Role:   role,
		Reason: reason,
	}
}

// NewInvalidTransitionErrorWithCause creates an InvalidTransitionError wrapping a cause.
func NewInvalidTransitionErrorWithCause(from, to, role, reason string, cause error) *InvalidTransitionError {
	return &InvalidTransitionError{
		From:   from,
		To:     to,
		Role:   role,
		Reason: reason,
		Cause:  cause,
	}
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("%s: %s -> %s by %s: %s", ErrInvalidTransition, e.From, e.To, e.Role, e.Reason)
	if e.Cause != nil {
		msg += fmt.Sprintf(" (cause: %v)", e.Cause)
	}
	return msg
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// RiderUnavailableError reports that a rider cannot take an order right now.
type RiderUnavailableError struct {
	RiderID string
	Reason  string
}

// NewRiderUnavailableError creates a RiderUnavailableError.
func NewRiderUnavailableError(riderID, reason string) *RiderUnavailableError {
	return &RiderUnavailableError{
		RiderID: riderID,
		Reason:  reason,
	}
}

func (e *RiderUnavailableError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrRiderUnavailable, e.RiderID, e.Reason)
}

func (e *RiderUnavailableError) Unwrap() error {
	return ErrRiderUnavailable
}

// OrderNotAssignableError reports that an order cannot be given to a rider in its current state.
type OrderNotAssignableError struct {
	OrderID string
	Reason  string
}

// NewOrderNotAssignableError creates an OrderNotAssignableError.
func NewOrderNotAssignableError(orderID, reason string) *OrderNotAssignableError {
	return &OrderNotAssignableError{
		OrderID: orderID,
		Reason:  reason,
	}
}

func (e *OrderNotAssignableError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrOrderNotAssignable, e.OrderID, e.Reason)
}

func (e *OrderNotAssignableError) Unwrap() error {
	return ErrOrderNotAssignable
}

// WriteFailedError reports that the durability layer rejected an append.
// Cause is reachable through As but errors.Is matches ErrWriteFailed only.
type WriteFailedError struct {
	Operation string
	Cause     error
}

// NewWriteFailedError creates a WriteFailedError.
func NewWriteFailedError(operation string, cause error) *WriteFailedError {
	return &WriteFailedError{
		Operation: operation,
		Cause:     cause,
	}
}

func (e *WriteFailedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", ErrWriteFailed, e.Operation, e.Cause)
	}
	return fmt.Sprintf("%s: %s", ErrWriteFailed, e.Operation)
}

func (e *WriteFailedError) Unwrap() error {
	return ErrWriteFailed
}

// TimeoutError reports that an operation did not finish within its deadline.
type TimeoutError struct {
	Operation string
	Cause     error
}

// NewTimeoutError creates a TimeoutError.
func NewTimeoutError(operation string, cause error) *TimeoutError {
	return &TimeoutError{
		Operation: operation,
		Cause:     cause,
	}
}

func (e *TimeoutError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", ErrTimeout, e.Operation, e.Cause)
	}
	return fmt.Sprintf("%s: %s", ErrTimeout, e.Operation)
}

func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}
