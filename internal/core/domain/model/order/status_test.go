package order_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Constants(t *testing.T) {
	t.Run("should have correct enum values", func(t *testing.T) {
		assert.Equal(t, 0, int(order.Unknown))
		assert.Equal(t, 1, int(order.Created))
		assert.Equal(t, 2, int(order.Assigned))
		assert.Equal(t, 3, int(order.PickedUp))
		assert.Equal(t, 4, int(order.InTransit))
		assert.Equal(t, 5, int(order.Delivered))
		assert.Equal(t, 6, int(order.Cancelled))
	})

	t.Run("should list valid statuses in lifecycle order", func(t *testing.T) {
		assert.Equal(t, []order.Status{
			order.Created, order.Assigned, order.PickedUp, order.InTransit, order.Delivered, order.Cancelled,
		}, order.Statuses())
	})
}

func TestStatus_Validate(t *testing.T) {
	for _, status := range order.Statuses() {
		t.Run(fmt.Sprintf("should validate %s status", status), func(t *testing.T) {
			require.NoError(t, status.Validate())
		})
	}

	t.Run("should reject Unknown status", func(t *testing.T) {
		err := order.Unknown.Validate()

		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
		assert.Contains(t, err.Error(), "0 is not a valid status")
	})

	t.Run("should reject out of range status", func(t *testing.T) {
		err := order.Status(42).Validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "42 is not a valid status")
	})
}

func TestStatus_String(t *testing.T) {
	t.Run("should return names", func(t *testing.T) {
		assert.Equal(t, "Created", order.Created.String())
		assert.Equal(t, "PickedUp", order.PickedUp.String())
		assert.Equal(t, "InTransit", order.InTransit.String())
		assert.Equal(t, "Cancelled", order.Cancelled.String())
	})

	t.Run("should return Unknown for invalid values", func(t *testing.T) {
		assert.Equal(t, "Unknown", order.Status(-1).String())
		assert.Equal(t, "Unknown", order.Status(99).String())
	})
}

func TestParseStatus(t *testing.T) {
	t.Run("should round trip every valid status", func(t *testing.T) {
		for _, status := range order.Statuses() {
			parsed, err := order.ParseStatus(status.String())
			require.NoError(t, err)
			assert.Equal(t, status, parsed)
		}
	})

	t.Run("should reject Unknown and garbage", func(t *testing.T) {
		for _, s := range []string{"Unknown", "", "created", "Completed"} {
			_, err := order.ParseStatus(s)
			require.ErrorIs(t, err, errs.ErrValueIsInvalid, s)
		}
	})
}

func TestStatus_Terminal(t *testing.T) {
	t.Run("should mark only Delivered and Cancelled as terminal", func(t *testing.T) {
		for _, status := range order.Statuses() {
			want := status == order.Delivered || status == order.Cancelled
			assert.Equal(t, want, status.IsTerminal(), status.String())
		}
	})

	t.Run("should mark rider-held statuses as dispatched", func(t *testing.T) {
		assert.True(t, order.Assigned.IsDispatched())
		assert.True(t, order.PickedUp.IsDispatched())
		assert.True(t, order.InTransit.IsDispatched())
		assert.False(t, order.Created.IsDispatched())
		assert.False(t, order.Delivered.IsDispatched())
		assert.False(t, order.Cancelled.IsDispatched())
	})
}

func TestStatus_ValidateCanHaveRider(t *testing.T) {
	tests := []struct {
		status  order.Status
		rider   bool
		wantErr string
	}{
		{order.Created, false, ""},
		{order.Created, true, "Created is not a valid status to have a rider"},
		{order.Assigned, true, ""},
		{order.Assigned, false, "Assigned is not a valid status to have no rider"},
		{order.PickedUp, false, "PickedUp is not a valid status to have no rider"},
		{order.InTransit, true, ""},
		{order.Delivered, true, ""},
		{order.Delivered, false, "Delivered is not a valid status to have no rider"},
		{order.Cancelled, true, ""},
		{order.Cancelled, false, ""},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("should check %s with rider=%t", tt.status, tt.rider), func(t *testing.T) {
			err := tt.status.ValidateCanHaveRider(tt.rider)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStatus_TextMarshalling(t *testing.T) {
	t.Run("should encode as JSON string", func(t *testing.T) {
		b, err := json.Marshal(map[string]order.Status{"s": order.InTransit})

		require.NoError(t, err)
		assert.JSONEq(t, `{"s":"InTransit"}`, string(b))
	})

	t.Run("should decode a JSON string", func(t *testing.T) {
		var got struct {
			S order.Status `json:"s"`
		}

		require.NoError(t, json.Unmarshal([]byte(`{"s":"PickedUp"}`), &got))
		assert.Equal(t, order.PickedUp, got.S)
	})

	t.Run("should fail to decode an unknown name", func(t *testing.T) {
		var s order.Status

		err := s.UnmarshalText([]byte("Lost"))

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
		assert.Equal(t, order.Unknown, s)
	})
}

func TestRole(t *testing.T) {
	t.Run("should parse known roles", func(t *testing.T) {
		for name, want := range map[string]order.Role{"agent": order.Agent, "rider": order.Rider, "system": order.System} {
			got, err := order.ParseRole(name)
			require.NoError(t, err)
			assert.Equal(t, want, got)
			assert.Equal(t, name, got.String())
		}
	})

	t.Run("should reject unknown role", func(t *testing.T) {
		_, err := order.ParseRole("unknown")
		require.ErrorIs(t, err, errs.ErrValueIsInvalid)

		require.Error(t, order.RoleUnknown.Validate())
		require.Error(t, order.Role(9).Validate())
	})

	t.Run("should require an actor id", func(t *testing.T) {
		_, err := order.NewActor(order.Agent, "")

		require.ErrorIs(t, err, errs.ErrValueIsRequired)
	})

	t.Run("should create a valid actor", func(t *testing.T) {
		a, err := order.NewActor(order.Rider, "r-1")

		require.NoError(t, err)
		assert.Equal(t, "rider:r-1", a.String())
	})
}
