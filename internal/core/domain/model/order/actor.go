package order

import (
	"errors"
	"fmt"

	"dispatch/internal/pkg/errs"
)

// Role identifies the kind of party that requests a change.
type Role int

const (
	// RoleUnknown represents an invalid or undefined role.
	RoleUnknown Role = iota
	// Agent is a support or operations agent.
	Agent
	// Rider is the courier holding the order.
	Rider
	// System covers timers and automated policies.
	System
)

func getRoleStrings() map[Role]string {
	return map[Role]string{
		RoleUnknown: "unknown",
		Agent:       "agent",
		Rider:       "rider",
		System:      "system",
	}
}

// ParseRole converts a role name into a Role.
func ParseRole(s string) (Role, error) {
	for role, str := range getRoleStrings() {
		if str == s && role != RoleUnknown {
			return role, nil
		}
	}
	return RoleUnknown, errs.NewValueIsInvalidErrorWithCause("role is invalid", fmt.Errorf("%q is not a valid role", s))
}

// Validate checks if the Role value is valid.
func (r Role) Validate() error {
	if r == RoleUnknown {
		return errs.NewValueIsInvalidErrorWithCause("role is invalid", fmt.Errorf("%d is not a valid role", r))
	}
	if _, ok := getRoleStrings()[r]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("role is invalid", fmt.Errorf("%d is not a valid role", r))
	}
	return nil
}

func (r Role) String() string {
	if str, ok := getRoleStrings()[r]; ok {
		return str
	}
	return "unknown"
}

// MarshalText encodes the role by name.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a role name produced by MarshalText.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Actor is the party behind an event: a role plus the caller's identifier.
// For riders the identifier is the rider id.
type Actor struct {
	Role Role   `json:"role"`
	ID   string `json:"id"`
}

// NewActor creates a validated Actor.
func NewActor(role Role, id string) (Actor, error) {
	a := Actor{Role: role, ID: id}
	if err := a.Validate(); err != nil {
		return Actor{}, err
	}
	return a, nil
}

// SystemActor returns the actor used by timers and automated policies.
func SystemActor(id string) Actor {
	return Actor{Role: System, ID: id}
}

// Validate checks the role and requires an identifier.
func (a Actor) Validate() error {
	var idErr error
	if a.ID == "" {
		idErr = errs.NewValueIsRequiredError("actor id")
	}
	return errors.Join(a.Role.Validate(), idErr)
}

func (a Actor) String() string {
	return a.Role.String() + ":" + a.ID
}
