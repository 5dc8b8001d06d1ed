package services_test

import (
	"fmt"
	"testing"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionValidator_Validate(t *testing.T) {
	validator := services.NewTransitionValidator()
	riderID := kernel.NewUUID()
	assignedRider := order.Actor{Role: order.Rider, ID: riderID.String()}
	otherRider := order.Actor{Role: order.Rider, ID: kernel.NewUUID().String()}
	agent := order.Actor{Role: order.Agent, ID: "agent-1"}
	system := order.SystemActor("sla-timer")

	tests := []struct {
		name    string
		req     services.TransitionRequest
		wantErr string
	}{
		{
			name: "should allow agent to assign with a rider attached",
			req:  services.TransitionRequest{From: order.Created, To: order.Assigned, Actor: agent, RiderAttached: true},
		},
		{
			name:    "should reject assignment without a rider",
			req:     services.TransitionRequest{From: order.Created, To: order.Assigned, Actor: agent},
			wantErr: "a rider must be attached in the same command",
		},
		{
			name: "should allow agent to cancel a created order",
			req:  services.TransitionRequest{From: order.Created, To: order.Cancelled, Actor: agent},
		},
		{
			name:    "should reject system cancelling before pickup",
			req:     services.TransitionRequest{From: order.Assigned, To: order.Cancelled, Actor: system, AssignedRider: &riderID},
			wantErr: "only agent may move Assigned to Cancelled",
		},
		{
			name: "should allow the assigned rider to pick up",
			req:  services.TransitionRequest{From: order.Assigned, To: order.PickedUp, Actor: assignedRider, AssignedRider: &riderID},
		},
		{
			name:    "should reject another rider picking up",
			req:     services.TransitionRequest{From: order.Assigned, To: order.PickedUp, Actor: otherRider, AssignedRider: &riderID},
			wantErr: "is not assigned to the order",
		},
		{
			name:    "should reject agent moving to InTransit",
			req:     services.TransitionRequest{From: order.PickedUp, To: order.InTransit, Actor: agent, AssignedRider: &riderID},
			wantErr: "only rider may move PickedUp to InTransit",
		},
		{
			name: "should allow system to cancel after pickup",
			req:  services.TransitionRequest{From: order.PickedUp, To: order.Cancelled, Actor: system, AssignedRider: &riderID},
		},
		{
			name: "should allow agent to cancel in transit",
			req:  services.TransitionRequest{From: order.InTransit, To: order.Cancelled, Actor: agent, AssignedRider: &riderID},
		},
		{
			name:    "should reject skipping an edge",
			req:     services.TransitionRequest{From: order.Assigned, To: order.Delivered, Actor: assignedRider, AssignedRider: &riderID},
			wantErr: "valid transitions from Assigned are: PickedUp, Cancelled",
		},
		{
			name:    "should reject leaving Delivered",
			req:     services.TransitionRequest{From: order.Delivered, To: order.Cancelled, Actor: agent, AssignedRider: &riderID},
			wantErr: "Delivered is terminal",
		},
		{
			name:    "should reject leaving Cancelled",
			req:     services.TransitionRequest{From: order.Cancelled, To: order.Created, Actor: agent},
			wantErr: "Cancelled is terminal",
		},
		{
			name:    "should reject unknown target status",
			req:     services.TransitionRequest{From: order.Created, To: order.Status(77), Actor: agent},
			wantErr: "unknown target status",
		},
		{
			name:    "should reject actor without id",
			req:     services.TransitionRequest{From: order.Created, To: order.Cancelled, Actor: order.Actor{Role: order.Agent}},
			wantErr: "invalid actor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate(tt.req)

			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, errs.ErrInvalidTransition)
			assert.Contains(t, err.Error(), tt.wantErr)

			var invalid *errs.InvalidTransitionError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.req.From.String(), invalid.From)
			assert.Equal(t, tt.req.To.String(), invalid.To)
		})
	}
}

func TestTransitionValidator_Graph(t *testing.T) {
	validator := services.NewTransitionValidator()
	riderID := kernel.NewUUID()
	actors := []order.Actor{
		{Role: order.Agent, ID: "agent-1"},
		{Role: order.Rider, ID: riderID.String()},
		{Role: order.System, ID: "timer"},
	}

	allowed := map[services.Edge]bool{}
	for _, e := range services.Edges() {
		allowed[e] = true
	}

	t.Run("should accept exactly the edges of the table", func(t *testing.T) {
		for _, from := range order.Statuses() {
			for _, to := range order.Statuses() {
				for _, actor := range actors {
					req := services.TransitionRequest{
						From: from, To: to, Actor: actor, RiderAttached: true, AssignedRider: &riderID,
					}
					err := validator.Validate(req)
					want := allowed[services.Edge{From: from, To: to, Role: actor.Role}]
					assert.Equal(t, want, err == nil, fmt.Sprintf("%s -> %s by %s: %v", from, to, actor.Role, err))
				}
			}
		}
	})

	t.Run("should list next statuses", func(t *testing.T) {
		assert.Equal(t, []order.Status{order.Assigned, order.Cancelled}, services.ValidTransitionsFrom(order.Created))
		assert.Equal(t, []order.Status{order.Delivered, order.Cancelled}, services.ValidTransitionsFrom(order.InTransit))
		assert.Empty(t, services.ValidTransitionsFrom(order.Delivered))
		assert.Empty(t, services.ValidTransitionsFrom(order.Cancelled))
	})

	t.Run("should not expose the table for mutation", func(t *testing.T) {
		edges := services.Edges()
		edges[0].Role = order.System

		assert.Equal(t, order.Agent, services.Edges()[0].Role)
	})
}
