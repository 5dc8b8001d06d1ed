// Package lognotify is the default notification transport: it writes each intent to the
// structured log instead of sending it anywhere.
package lognotify

import (
	"context"
	"log/slog"

	"dispatch/internal/core/domain/model/notification"
)

// Transport implements ports.NotificationTransport by logging.
type Transport struct {
	logger *slog.Logger
}

func NewTransport(logger *slog.Logger) *Transport {
	return &Transport{logger: logger.With("component", "LogNotificationTransport")}
}

// Send logs the intent at info level. It never fails.
func (t *Transport) Send(ctx context.Context, intent notification.Intent) error {
	t.logger.InfoContext(ctx, "notification",
		"intent", intent.ID,
		"recipient", string(intent.Recipient),
		"recipient_id", intent.RecipientID,
		"order", intent.OrderID.String(),
		"kind", intent.Kind.String(),
		"payload", intent.Payload,
	)
	return nil
}
