// Package http is the inbound HTTP boundary. Every route maps one request onto one command
// or query; the package holds no dispatch logic of its own.
package http

import (
	"context"
	"log/slog"
	"net/http"

	"dispatch/internal/core/application/analytics"
	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/rider"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type (
	CreateOrderHandler interface {
		Handle(ctx context.Context, cmd commands.CreateOrderCommand) (order.Snapshot, error)
	}
	UpdateStatusHandler interface {
		Handle(ctx context.Context, cmd commands.UpdateStatusCommand) (order.Snapshot, error)
	}
	AssignRiderHandler interface {
		Handle(ctx context.Context, cmd commands.AssignRiderCommand) (order.Snapshot, error)
	}
	ReassignRiderHandler interface {
		Handle(ctx context.Context, cmd commands.ReassignRiderCommand) (order.Snapshot, error)
	}
	ConfirmDeliveryHandler interface {
		Handle(ctx context.Context, cmd commands.ConfirmDeliveryCommand) (order.Snapshot, error)
	}
	RegisterRiderHandler interface {
		Handle(ctx context.Context, cmd commands.RegisterRiderCommand) (rider.Snapshot, error)
	}
	SetRiderAvailabilityHandler interface {
		Handle(ctx context.Context, cmd commands.SetRiderAvailabilityCommand) (rider.Snapshot, error)
	}

	GetOrderHandler interface {
		Handle(ctx context.Context, q queries.GetOrderQuery) (order.Snapshot, error)
	}
	ListOrdersHandler interface {
		Handle(ctx context.Context, q queries.ListOrdersQuery) ([]order.Snapshot, error)
	}
	GetRiderHandler interface {
		Handle(ctx context.Context, q queries.GetRiderQuery) (rider.Snapshot, error)
	}
	ListRidersHandler interface {
		Handle(ctx context.Context, q queries.ListRidersQuery) ([]rider.Snapshot, error)
	}
	GetAnalyticsHandler interface {
		Handle(ctx context.Context, q queries.GetAnalyticsQuery) (analytics.Snapshot, error)
	}
)

// Handlers are the use cases the server exposes.
type Handlers struct {
	CreateOrder          CreateOrderHandler
	UpdateStatus         UpdateStatusHandler
	AssignRider          AssignRiderHandler
	ReassignRider        ReassignRiderHandler
	ConfirmDelivery      ConfirmDeliveryHandler
	RegisterRider        RegisterRiderHandler
	SetRiderAvailability SetRiderAvailabilityHandler

	GetOrder     GetOrderHandler
	ListOrders   ListOrdersHandler
	GetRider     GetRiderHandler
	ListRiders   ListRidersHandler
	GetAnalytics GetAnalyticsHandler
}

// Server translates HTTP requests into commands and queries.
type Server struct {
	handlers Handlers
	logger   *slog.Logger
}

// NewServer creates a server on top of the given use cases.
func NewServer(handlers Handlers, logger *slog.Logger) *Server {
	return &Server{
		handlers: handlers,
		logger:   logger.With("component", "HTTPServer"),
	}
}

// Options tune the echo instance built by NewEcho.
type Options struct {
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	// Validate checks requests against the embedded OpenAPI document.
	Validate echo.MiddlewareFunc
	// Health reports readiness; nil means always healthy.
	Health func(ctx context.Context) error
}

// NewEcho builds the echo instance with every route registered.
func NewEcho(s *Server, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.LogAttrs(c.Request().Context(), slog.LevelInfo, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			)
			return nil
		},
	}))

	e.GET("/health", func(c echo.Context) error {
		if opts.Health != nil {
			if err := opts.Health(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Code: "unhealthy", Message: err.Error()})
			}
		}
		return c.String(http.StatusOK, "Healthy")
	})
	e.GET("/openapi.yaml", func(c echo.Context) error {
		return c.Blob(http.StatusOK, "application/yaml", OpenAPIDocument())
	})
	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opts.Metrics))
	}

	api := e.Group("/api/v1")
	if opts.Validate != nil {
		api.Use(opts.Validate)
	}
	s.Register(api)
	return e
}

// Register adds the API routes to g.
func (s *Server) Register(g *echo.Group) {
	g.POST("/orders", s.CreateOrder)
	g.GET("/orders", s.ListOrders)
	g.GET("/orders/:id", s.GetOrder)
	g.POST("/orders/:id/status", s.UpdateStatus)
	g.POST("/orders/:id/assignment", s.AssignRider)
	g.PUT("/orders/:id/assignment", s.ReassignRider)
	g.POST("/orders/:id/delivery", s.ConfirmDelivery)

	g.POST("/riders", s.RegisterRider)
	g.GET("/riders", s.ListRiders)
	g.GET("/riders/:id", s.GetRider)
	g.PUT("/riders/:id/availability", s.SetRiderAvailability)

	g.GET("/analytics", s.GetAnalytics)
}

// Instrument wraps h so every request is traced and measured.
func Instrument(h http.Handler) http.Handler {
	return otelhttp.NewHandler(h, "dispatch.http")
}
