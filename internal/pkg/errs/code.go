package errs

import (
	"context"
	"errors"
)

// Stable codes for the error kinds. They appear in API responses and metric labels.
const (
	CodeNotFound           = "not_found"
	CodeInvalidTransition  = "invalid_transition"
	CodeRiderUnavailable   = "rider_unavailable"
	CodeOrderNotAssignable = "order_not_assignable"
	CodeInvalidValue       = "invalid_value"
	CodeTimeout            = "timeout"
	CodeWriteFailed        = "write_failed"
	CodeInternal           = "internal"
)

// Code classifies err into one of the Code constants. A nil error has no code.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrObjectNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidTransition):
		return CodeInvalidTransition
	case errors.Is(err, ErrRiderUnavailable):
		return CodeRiderUnavailable
	case errors.Is(err, ErrOrderNotAssignable):
		return CodeOrderNotAssignable
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, ErrWriteFailed):
		return CodeWriteFailed
	case errors.Is(err, ErrValueIsInvalid),
		errors.Is(err, ErrValueIsRequired),
		errors.Is(err, ErrValueIsOutOfRange),
		errors.Is(err, ErrVersionIsInvalid):
		return CodeInvalidValue
	default:
		return CodeInternal
	}
}
