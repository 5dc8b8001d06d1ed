package ports

import (
	"context"

	"dispatch/internal/core/domain/model/notification"
)

// NotificationTransport hands an intent to the outside world. Delivery beyond the transport
// boundary is not tracked; an error means the intent should be offered again later.
type NotificationTransport interface {
	Send(ctx context.Context, intent notification.Intent) error
}
