package http

import (
	"net/http"
	"strconv"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

// RegisterRiderRequest is the body of POST /riders. A missing id is generated.
type RegisterRiderRequest struct {
	ID   *kernel.UUID `json:"id,omitempty"`
	Name string       `json:"name"`
}

// AvailabilityRequest is the body of PUT /riders/:id/availability.
type AvailabilityRequest struct {
	Available *bool `json:"available"`
}

// RegisterRider handles POST /api/v1/riders.
func (s *Server) RegisterRider(c echo.Context) error {
	var req RegisterRiderRequest
	if err := bindBody(c, &req); err != nil {
		return s.fail(c, err)
	}

	id := kernel.NewUUID()
	if req.ID != nil {
		id = *req.ID
	}
	cmd, err := commands.NewRegisterRiderCommand(id, req.Name)
	if err != nil {
		return s.fail(c, err)
	}

	snap, err := s.handlers.RegisterRider.Handle(c.Request().Context(), cmd)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, snap)
}

// ListRiders handles GET /api/v1/riders?free=true.
func (s *Server) ListRiders(c echo.Context) error {
	freeOnly := false
	if raw := c.QueryParam("free"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return s.fail(c, errs.NewValueIsInvalidErrorWithCause("free", err))
		}
		freeOnly = v
	}

	riders, err := s.handlers.ListRiders.Handle(c.Request().Context(), queries.NewListRidersQuery(freeOnly))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, riders)
}

// GetRider handles GET /api/v1/riders/:id.
func (s *Server) GetRider(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return s.fail(c, err)
	}
	q, err := queries.NewGetRiderQuery(id)
	if err != nil {
		return s.fail(c, err)
	}

	snap, err := s.handlers.GetRider.Handle(c.Request().Context(), q)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

// SetRiderAvailability handles PUT /api/v1/riders/:id/availability.
func (s *Server) SetRiderAvailability(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return s.fail(c, err)
	}
	var req AvailabilityRequest
	if err := bindBody(c, &req); err != nil {
		return s.fail(c, err)
	}
	if req.Available == nil {
		return s.fail(c, errs.NewValueIsRequiredError("available"))
	}

	cmd, err := commands.NewSetRiderAvailabilityCommand(id, *req.Available)
	if err != nil {
		return s.fail(c, err)
	}
	snap, err := s.handlers.SetRiderAvailability.Handle(c.Request().Context(), cmd)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

// GetAnalytics handles GET /api/v1/analytics.
func (s *Server) GetAnalytics(c echo.Context) error {
	snap, err := s.handlers.GetAnalytics.Handle(c.Request().Context(), queries.NewGetAnalyticsQuery())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}
