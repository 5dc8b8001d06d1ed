package http

import (
	"net/http"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

// CreateOrderRequest is the body of POST /orders. A missing id is generated.
type CreateOrderRequest struct {
	ID          *kernel.UUID `json:"id,omitempty"`
	CustomerRef string       `json:"customer_ref"`
	Amount      int64        `json:"amount"`
	Actor       order.Actor  `json:"actor"`
}

// UpdateStatusRequest is the body of POST /orders/:id/status.
type UpdateStatusRequest struct {
	Status order.Status `json:"status"`
	Actor  order.Actor  `json:"actor"`
}

// AssignmentRequest is the body of POST and PUT /orders/:id/assignment.
type AssignmentRequest struct {
	RiderID kernel.UUID `json:"rider_id"`
	Actor   order.Actor `json:"actor"`
}

// ConfirmDeliveryRequest is the body of POST /orders/:id/delivery.
type ConfirmDeliveryRequest struct {
	Proof order.Proof `json:"proof"`
	Actor order.Actor `json:"actor"`
}

// CreateOrder handles POST /api/v1/orders.
func (s *Server) CreateOrder(c echo.Context) error {
	var req CreateOrderRequest
	if err := bindBody(c, &req); err != nil {
		return s.fail(c, err)
	}

	id := kernel.NewUUID()
	if req.ID != nil {
		id = *req.ID
	}
	cmd, err := commands.NewCreateOrderCommand(id, req.CustomerRef, req.Amount, req.Actor)
	if err != nil {
		return s.fail(c, err)
	}

	snap, err := s.handlers.CreateOrder.Handle(c.Request().Context(), cmd)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, snap)
}

// ListOrders handles GET /api/v1/orders?filter=active|completed|pending|<status>.
func (s *Server) ListOrders(c echo.Context) error {
	q, err := queries.NewListOrdersQuery(c.QueryParam("filter"))
	if err != nil {
		return s.fail(c, err)
	}

	orders, err := s.handlers.ListOrders.Handle(c.Request().Context(), q)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

// GetOrder handles GET /api/v1/orders/:id.
func (s *Server) GetOrder(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return s.fail(c, err)
	}
	q, err := queries.NewGetOrderQuery(id)
	if err != nil {
		return s.fail(c, err)
	}

	snap, err := s.handlers.GetOrder.Handle(c.Request().Context(), q)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

// UpdateStatus handles POST /api/v1/orders/:id/status.
func (s *Server) UpdateStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return s.fail(c, err)
	}
	var req UpdateStatusRequest
	if err := bindBody(c, &req); err != nil {
		return s.fail(c, err)
	}

	cmd, err := commands.NewUpdateStatusCommand(id, req.Status, req.Actor)
	if err != nil {
		return s.fail(c, err)
	}
	snap, err := s.handlers.UpdateStatus.Handle(c.Request().Context(), cmd)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

// AssignRider handles POST /api/v1/orders/:id/assignment.
func (s *Server) AssignRider(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return s.fail(c, err)
	}
	var req AssignmentRequest
	if err := bindBody(c, &req); err != nil {
		return s.fail(c, err)
	}

	cmd, err := commands.NewAssignRiderCommand(id, req.RiderID, req.Actor)
	if err != nil {
		return s.fail(c, err)
	}
	snap, err := s.handlers.AssignRider.Handle(c.Request().Context(), cmd)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

// ReassignRider handles PUT /api/v1/orders/:id/assignment.
func (s *Server) ReassignRider(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return s.fail(c, err)
	}
	var req AssignmentRequest
	if err := bindBody(c, &req); err != nil {
		return s.fail(c, err)
	}

	cmd, err := commands.NewReassignRiderCommand(id, req.RiderID, req.Actor)
	if err != nil {
		return s.fail(c, err)
	}
	snap, err := s.handlers.ReassignRider.Handle(c.Request().Context(), cmd)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

// ConfirmDelivery handles POST /api/v1/orders/:id/delivery.
func (s *Server) ConfirmDelivery(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return s.fail(c, err)
	}
	var req ConfirmDeliveryRequest
	if err := bindBody(c, &req); err != nil {
		return s.fail(c, err)
	}

	cmd, err := commands.NewConfirmDeliveryCommand(id, req.Proof, req.Actor)
	if err != nil {
		return s.fail(c, err)
	}
	snap, err := s.handlers.ConfirmDelivery.Handle(c.Request().Context(), cmd)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

func pathID(c echo.Context) (kernel.UUID, error) {
	id, err := kernel.UUIDFromString(c.Param("id"))
	if err != nil {
		return kernel.UUID{}, errs.NewValueIsInvalidErrorWithCause("id", err)
	}
	return id, nil
}

// bindBody decodes the JSON body only, so path and query parameters never leak into it.
func bindBody(c echo.Context, v any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, v); err != nil {
		return errs.NewValueIsInvalidErrorWithCause("request body", err)
	}
	return nil
}
