package queries_test

import (
	"testing"
	"time"

	"dispatch/internal/core/application/analytics"
	"dispatch/internal/core/application/orderstate"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/rider"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOrderReader struct{ mock.Mock }

func (m *MockOrderReader) Get(id kernel.UUID) (order.Snapshot, error) {
	args := m.Called(id)
	return args.Get(0).(order.Snapshot), args.Error(1)
}

func (m *MockOrderReader) List(f orderstate.Filter) []order.Snapshot {
	args := m.Called(f)
	return args.Get(0).([]order.Snapshot)
}

type MockRiderReader struct{ mock.Mock }

func (m *MockRiderReader) Rider(id kernel.UUID) (rider.Snapshot, error) {
	args := m.Called(id)
	return args.Get(0).(rider.Snapshot), args.Error(1)
}

func (m *MockRiderReader) Riders() []rider.Snapshot {
	args := m.Called()
	return args.Get(0).([]rider.Snapshot)
}

type MockAnalyticsReader struct{ mock.Mock }

func (m *MockAnalyticsReader) Snapshot() analytics.Snapshot {
	return m.Called().Get(0).(analytics.Snapshot)
}

func TestGetOrderQueryHandler(t *testing.T) {
	t.Run("should return the projected order", func(t *testing.T) {
		id := kernel.NewUUID()
		want := order.Snapshot{ID: id, Status: order.PickedUp, Version: 4}
		reader := new(MockOrderReader)
		reader.On("Get", id).Return(want, nil).Once()

		q, err := queries.NewGetOrderQuery(id)
		require.NoError(t, err)
		got, err := queries.NewGetOrderQueryHandler(reader).Handle(t.Context(), q)

		require.NoError(t, err)
		assert.Equal(t, want, got)
		reader.AssertExpectations(t)
	})

	t.Run("should pass not found through", func(t *testing.T) {
		id := kernel.NewUUID()
		reader := new(MockOrderReader)
		reader.On("Get", id).Return(order.Snapshot{}, errs.NewObjectNotFoundError("order", id)).Once()

		q, err := queries.NewGetOrderQuery(id)
		require.NoError(t, err)
		_, err = queries.NewGetOrderQueryHandler(reader).Handle(t.Context(), q)

		require.ErrorIs(t, err, errs.ErrObjectNotFound)
	})

	t.Run("should refuse a zero id", func(t *testing.T) {
		_, err := queries.NewGetOrderQuery(kernel.UUID{})

		require.Error(t, err)
	})

	t.Run("should refuse a query built without its constructor", func(t *testing.T) {
		_, err := queries.NewGetOrderQueryHandler(new(MockOrderReader)).Handle(t.Context(), queries.GetOrderQuery{})

		require.ErrorIs(t, err, queries.ErrGetOrderQueryIsNotConstructed)
	})
}

func TestListOrdersQueryHandler(t *testing.T) {
	t.Run("should list orders with the parsed filter", func(t *testing.T) {
		want := []order.Snapshot{{ID: kernel.NewUUID(), Status: order.Assigned}}
		reader := new(MockOrderReader)
		reader.On("List", orderstate.Active()).Return(want).Once()

		q, err := queries.NewListOrdersQuery("active")
		require.NoError(t, err)
		got, err := queries.NewListOrdersQueryHandler(reader).Handle(t.Context(), q)

		require.NoError(t, err)
		assert.Equal(t, want, got)
		reader.AssertExpectations(t)
	})

	t.Run("should reject an unknown filter", func(t *testing.T) {
		_, err := queries.NewListOrdersQuery("archived")

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	t.Run("should read the live projection", func(t *testing.T) {
		store := orderstate.NewStore()
		at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
		created, err := order.NewOrderCreatedEvent(kernel.NewUUID(), order.Actor{Role: order.Agent, ID: "a"}, at, "c-1", 700)
		require.NoError(t, err)
		require.NoError(t, store.OnEvent(t.Context(), created))

		pending, err := queries.NewListOrdersQuery("pending")
		require.NoError(t, err)
		completed, err := queries.NewListOrdersQuery("completed")
		require.NoError(t, err)
		h := queries.NewListOrdersQueryHandler(store)

		got, err := h.Handle(t.Context(), pending)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, created.OrderID, got[0].ID)

		got, err = h.Handle(t.Context(), completed)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestRiderQueryHandlers(t *testing.T) {
	orderID := kernel.NewUUID()
	busy := rider.Snapshot{ID: kernel.NewUUID(), Name: "Ann", Available: true, CurrentOrderID: &orderID}
	free := rider.Snapshot{ID: kernel.NewUUID(), Name: "Bob", Available: true}
	off := rider.Snapshot{ID: kernel.NewUUID(), Name: "Cid", Available: false}

	t.Run("should list every rider", func(t *testing.T) {
		reader := new(MockRiderReader)
		reader.On("Riders").Return([]rider.Snapshot{busy, free, off}).Once()

		got, err := queries.NewListRidersQueryHandler(reader).Handle(t.Context(), queries.NewListRidersQuery(false))

		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("should list only free riders on request", func(t *testing.T) {
		reader := new(MockRiderReader)
		reader.On("Riders").Return([]rider.Snapshot{busy, free, off}).Once()

		got, err := queries.NewListRidersQueryHandler(reader).Handle(t.Context(), queries.NewListRidersQuery(true))

		require.NoError(t, err)
		assert.Equal(t, []rider.Snapshot{free}, got)
	})

	t.Run("should return one rider", func(t *testing.T) {
		reader := new(MockRiderReader)
		reader.On("Rider", busy.ID).Return(busy, nil).Once()

		q, err := queries.NewGetRiderQuery(busy.ID)
		require.NoError(t, err)
		got, err := queries.NewGetRiderQueryHandler(reader).Handle(t.Context(), q)

		require.NoError(t, err)
		assert.Equal(t, busy, got)
		reader.AssertExpectations(t)
	})

	t.Run("should refuse queries built without their constructor", func(t *testing.T) {
		reader := new(MockRiderReader)

		_, err := queries.NewGetRiderQueryHandler(reader).Handle(t.Context(), queries.GetRiderQuery{})
		require.ErrorIs(t, err, queries.ErrGetRiderQueryIsNotConstructed)

		_, err = queries.NewListRidersQueryHandler(reader).Handle(t.Context(), queries.ListRidersQuery{})
		require.ErrorIs(t, err, queries.ErrListRidersQueryIsNotConstructed)
	})
}

func TestGetAnalyticsQueryHandler(t *testing.T) {
	t.Run("should return the latest snapshot", func(t *testing.T) {
		want := analytics.Snapshot{Revenue: 4000, TotalOrders: 3, Watermark: 12}
		reader := new(MockAnalyticsReader)
		reader.On("Snapshot").Return(want).Once()

		got, err := queries.NewGetAnalyticsQueryHandler(reader).Handle(t.Context(), queries.NewGetAnalyticsQuery())

		require.NoError(t, err)
		assert.Equal(t, want, got)
		reader.AssertExpectations(t)
	})
}
