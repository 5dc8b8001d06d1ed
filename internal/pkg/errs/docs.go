// Package errs provides the error types shared by the dispatch engine.
//
// Two families live here:
//   - value errors raised while building commands and entities: ValueIsRequiredError,
//     ValueIsInvalidError, ValueIsOutOfRangeError, ObjectNotFoundError, VersionIsInvalidError;
//   - engine outcomes returned by commands: InvalidTransitionError, RiderUnavailableError,
//     OrderNotAssignableError, WriteFailedError, TimeoutError.
//
// Every type pairs a sentinel (ErrObjectNotFound, ErrInvalidTransition, ...) with a struct
// carrying the details. Unwrap returns the sentinel, so callers classify with errors.Is and
// read details with errors.As.
package errs
