package queries

import (
	"context"
	"errors"

	"dispatch/internal/core/application/analytics"
	"dispatch/internal/pkg/guard"
)

var ErrGetAnalyticsQueryIsNotConstructed = errors.New(
	"GetAnalyticsQuery must be created via NewGetAnalyticsQuery constructor",
)

// GetAnalyticsQuery reads the delivery figures: revenue, orders by status and time spent
// in each status.
type GetAnalyticsQuery struct {
	guard guard.ConstructorGuard
}

func NewGetAnalyticsQuery() GetAnalyticsQuery {
	return GetAnalyticsQuery{guard: guard.NewConstructorGuard()}
}

// Validate ensures the query was created through the constructor.
func (q GetAnalyticsQuery) Validate() error {
	return q.guard.Validate(ErrGetAnalyticsQueryIsNotConstructed)
}

type GetAnalyticsQueryHandler struct {
	analytics AnalyticsReader
}

func NewGetAnalyticsQueryHandler(analytics AnalyticsReader) GetAnalyticsQueryHandler {
	return GetAnalyticsQueryHandler{analytics: analytics}
}

func (h GetAnalyticsQueryHandler) Handle(_ context.Context, q GetAnalyticsQuery) (analytics.Snapshot, error) {
	if err := q.Validate(); err != nil {
		return analytics.Snapshot{}, err
	}
	return h.analytics.Snapshot(), nil
}
