package services

import (
	"strings"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"
)

// Edge is one allowed status change and the role that may request it.
type Edge struct {
	From order.Status
	To   order.Status
	Role order.Role
}

// lifecycle is the authoritative transition table.
var lifecycle = []Edge{
	{From: order.Created, To: order.Assigned, Role: order.Agent},
	{From: order.Created, To: order.Cancelled, Role: order.Agent},
	{From: order.Assigned, To: order.PickedUp, Role: order.Rider},
	{From: order.Assigned, To: order.Cancelled, Role: order.Agent},
	{From: order.PickedUp, To: order.InTransit, Role: order.Rider},
	{From: order.PickedUp, To: order.Cancelled, Role: order.Agent},
	{From: order.PickedUp, To: order.Cancelled, Role: order.System},
	{From: order.InTransit, To: order.Delivered, Role: order.Rider},
	{From: order.InTransit, To: order.Cancelled, Role: order.Agent},
	{From: order.InTransit, To: order.Cancelled, Role: order.System},
}

var edgeSet = func() map[Edge]struct{} {
	m := make(map[Edge]struct{}, len(lifecycle))
	for _, e := range lifecycle {
		m[e] = struct{}{}
	}
	return m
}()

// TransitionRequest is everything the validator needs to decide a status change.
type TransitionRequest struct {
	From  order.Status
	To    order.Status
	Actor order.Actor
	// RiderAttached is set when the same command also binds a rider (initial assignment).
	RiderAttached bool
	// AssignedRider is the rider holding the order before the change, if any.
	AssignedRider *kernel.UUID
}

// TransitionValidator decides whether a status change is an edge of the order lifecycle and
// whether the requesting actor may take it. It is stateless and safe for concurrent use.
//
// Business rules:
//   - nothing leaves Delivered or Cancelled
//   - edges cannot be skipped
//   - rider edges must be requested by the rider holding the order
//   - Created -> Assigned needs a rider attached in the same command
//   - before pickup only an agent may cancel; afterwards an agent or the system may
type TransitionValidator struct{}

// NewTransitionValidator creates a TransitionValidator.
func NewTransitionValidator() TransitionValidator {
	return TransitionValidator{}
}

// Validate returns nil if the request is allowed and an InvalidTransitionError otherwise.
// The error reason lists the statuses reachable from req.From.
func (TransitionValidator) Validate(req TransitionRequest) error {
	from, to, role := req.From.String(), req.To.String(), req.Actor.Role.String()

	if err := req.From.Validate(); err != nil {
		return errs.NewInvalidTransitionErrorWithCause(from, to, role, "unknown origin status", err)
	}
	if err := req.To.Validate(); err != nil {
		return errs.NewInvalidTransitionErrorWithCause(from, to, role, "unknown target status", err)
	}
	if err := req.Actor.Validate(); err != nil {
		return errs.NewInvalidTransitionErrorWithCause(from, to, role, "invalid actor", err)
	}
	if req.From.IsTerminal() {
		return errs.NewInvalidTransitionError(from, to, role, req.From.String()+" is terminal")
	}

	if _, ok := edgeSet[Edge{From: req.From, To: req.To, Role: req.Actor.Role}]; !ok {
		reason := "valid transitions from " + from + " are: " + describe(ValidTransitionsFrom(req.From))
		if roles := rolesFor(req.From, req.To); len(roles) > 0 {
			reason = "only " + describeRoles(roles) + " may move " + from + " to " + to
		}
		return errs.NewInvalidTransitionError(from, to, role, reason)
	}

	if req.From == order.Created && req.To == order.Assigned && !req.RiderAttached {
		return errs.NewInvalidTransitionError(from, to, role, "a rider must be attached in the same command")
	}

	if req.Actor.Role == order.Rider {
		if req.AssignedRider == nil || req.AssignedRider.String() != req.Actor.ID {
			return errs.NewInvalidTransitionError(from, to, role, "rider "+req.Actor.ID+" is not assigned to the order")
		}
	}

	return nil
}

// ValidTransitionsFrom returns the statuses reachable from status, in table order.
func ValidTransitionsFrom(status order.Status) []order.Status {
	var next []order.Status
	seen := map[order.Status]bool{}
	for _, e := range lifecycle {
		if e.From == status && !seen[e.To] {
			next = append(next, e.To)
			seen[e.To] = true
		}
	}
	return next
}

// Edges returns a copy of the transition table.
func Edges() []Edge {
	out := make([]Edge, len(lifecycle))
	copy(out, lifecycle)
	return out
}

func rolesFor(from, to order.Status) []order.Role {
	var roles []order.Role
	for _, e := range lifecycle {
		if e.From == from && e.To == to {
			roles = append(roles, e.Role)
		}
	}
	return roles
}

func describe(statuses []order.Status) string {
	if len(statuses) == 0 {
		return "none (terminal state)"
	}
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = s.String()
	}
	return strings.Join(names, ", ")
}

func describeRoles(roles []order.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.String()
	}
	return strings.Join(names, " or ")
}
