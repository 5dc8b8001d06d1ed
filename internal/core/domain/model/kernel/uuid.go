package kernel

import (
	"bytes"
	"fmt"

	"dispatch/internal/pkg/errs"

	"github.com/google/uuid"
)

// ErrUUIDIsNotConstructed indicates a zero-value UUID. Validate returns it, and so does every
// constructor in the domain that takes an identifier it did not generate.
var ErrUUIDIsNotConstructed = errs.NewValueIsRequiredError("UUID must be created via NewUUID, UUIDFromString, or UUIDFromBytes")

// UUID identifies orders and riders. It wraps github.com/google/uuid so the domain can
// compare, order and validate identifiers without importing the library everywhere.
//
// The zero value is invalid: build a UUID with NewUUID, UUIDFromString or UUIDFromBytes.
// A UUID is a plain value, safe to copy and to share between goroutines.
//
// UUIDs have a total order (Compare). The assignment coordinator relies on it to lock several
// riders in the same order every time.
//
// Example:
//
//	orderID := kernel.NewUUID()
//	riderID, err := kernel.UUIDFromString("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
//	if err != nil {
//	    return err
//	}
//	if orderID.Compare(riderID) < 0 {
//	    // orderID sorts first
//	}
type UUID struct {
	id uuid.UUID
}

// NewUUID generates a random (version 4) UUID. New orders and riders get their
// identifier here; the result always passes Validate.
//
// Example:
//
//	r, err := rider.NewRider(kernel.NewUUID(), "Ann")
func NewUUID() UUID {
	return UUID{
		id: uuid.New(),
	}
}

// UUIDFromString parses the canonical, braced, urn or hyphen-less forms.
//
//	orderID, err := kernel.UUIDFromString(c.Param("id"))
//	if err != nil {
//	    return errs.NewValueIsInvalidErrorWithCause("order id", err)
//	}
func UUIDFromString(s string) (UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UUID{}, fmt.Errorf("invalid UUID format: %w", err)
	}
	return UUID{id: id}, nil
}

// UUIDFromBytes builds a UUID from its 16-byte form, as stored by the gorm adapters.
// A slice of any other length, or sixteen zero bytes, is rejected.
func UUIDFromBytes(b []byte) (UUID, error) {
	id, err := uuid.FromBytes(b)
	if err != nil {
		return UUID{}, fmt.Errorf("invalid UUID format: %w", err)
	}
	newID := UUID{id: id}
	if err = newID.Validate(); err != nil {
		return UUID{}, err
	}

	return newID, nil
}

func (u UUID) String() string {
	return u.id.String()
}

// Bytes returns a copy of the underlying uuid.UUID.
func (u UUID) Bytes() uuid.UUID {
	return u.id
}

// IsEqual reports whether both UUIDs hold the same value.
func (u UUID) IsEqual(other UUID) bool {
	return u.id == other.id
}

// Compare orders UUIDs bytewise. It returns -1, 0 or +1.
func (u UUID) Compare(other UUID) int {
	return bytes.Compare(u.id[:], other.id[:])
}

// Validate returns ErrUUIDIsNotConstructed for the zero (nil) UUID.
func (u UUID) Validate() error {
	if u.id == uuid.Nil {
		return ErrUUIDIsNotConstructed
	}
	return nil
}

// MarshalText renders the canonical form so UUIDs serialize as JSON strings.
func (u UUID) MarshalText() ([]byte, error) {
	return u.id.MarshalText()
}

// UnmarshalText parses any form accepted by UUIDFromString.
func (u *UUID) UnmarshalText(data []byte) error {
	parsed, err := UUIDFromString(string(data))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
