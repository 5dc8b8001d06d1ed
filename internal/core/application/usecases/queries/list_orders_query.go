package queries

import (
	"context"
	"errors"

	"dispatch/internal/core/application/orderstate"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/guard"
)

var ErrListOrdersQueryIsNotConstructed = errors.New(
	"ListOrdersQuery must be created via NewListOrdersQuery constructor",
)

// ListOrdersQuery lists orders for the dashboard views.
//
// Example:
//
//	q, err := NewListOrdersQuery("active")
//	if err != nil {
//	    return err // unknown filter
//	}
//	orders, _ := handler.Handle(ctx, q)
type ListOrdersQuery struct {
	filter orderstate.Filter

	guard guard.ConstructorGuard
}

// NewListOrdersQuery parses filter: "" or "all", "active", "completed", "pending", or a
// single status name.
func NewListOrdersQuery(filter string) (ListOrdersQuery, error) {
	f, err := orderstate.ParseFilter(filter)
	if err != nil {
		return ListOrdersQuery{}, err
	}
	return ListOrdersQuery{filter: f, guard: guard.NewConstructorGuard()}, nil
}

// Validate ensures the query was created through the constructor.
func (q ListOrdersQuery) Validate() error {
	return q.guard.Validate(ErrListOrdersQueryIsNotConstructed)
}

func (q ListOrdersQuery) Filter() orderstate.Filter {
	return q.filter
}

type ListOrdersQueryHandler struct {
	orders OrderReader
}

func NewListOrdersQueryHandler(orders OrderReader) ListOrdersQueryHandler {
	return ListOrdersQueryHandler{orders: orders}
}

// Handle returns the matching orders, oldest first.
func (h ListOrdersQueryHandler) Handle(_ context.Context, q ListOrdersQuery) ([]order.Snapshot, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return h.orders.List(q.Filter()), nil
}
