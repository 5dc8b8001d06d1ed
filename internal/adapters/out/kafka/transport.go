// Package kafka publishes notification intents to a kafka topic. Each intent becomes one
// message keyed by order id, so a partition sees an order's notifications in order.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dispatch/internal/core/domain/model/notification"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTopic receives the notification intents when no topic is configured.
const DefaultTopic = "order.notifications"

// Header names set on every message besides the trace context.
const (
	HeaderIntentID  = "intent-id"
	HeaderRecipient = "recipient"
)

var tracer = otel.Tracer("dispatch/notifications/kafka")

// MessageWriter is the part of *kafka.Writer the transport uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Transport implements ports.NotificationTransport on kafka.
type Transport struct {
	writer MessageWriter
	topic  string
}

// NewTransport creates a transport writing to topic on brokers. The writer blocks until the
// brokers acknowledge, so a nil error means the intent left the process.
func NewTransport(brokers []string, topic string) *Transport {
	if topic == "" {
		topic = DefaultTopic
	}
	return NewTransportWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}, topic)
}

// NewTransportWithWriter creates a transport on an existing writer.
func NewTransportWithWriter(writer MessageWriter, topic string) *Transport {
	return &Transport{writer: writer, topic: topic}
}

// Send implements ports.NotificationTransport.
func (t *Transport) Send(ctx context.Context, intent notification.Intent) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("encode intent %s: %w", intent.ID, err)
	}

	key := intent.OrderID.String()
	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafka.Header{
			{Key: HeaderIntentID, Value: []byte(intent.ID)},
			{Key: HeaderRecipient, Value: []byte(intent.Recipient)},
		},
	}

	ctx, span := tracer.Start(ctx, "send "+t.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("send"),
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(t.topic),
			semconv.MessagingKafkaMessageKey(key),
			semconv.MessagingMessageID(intent.ID),
			attribute.String("dispatch.recipient", string(intent.Recipient)),
		),
	)
	defer span.End()

	otel.GetTextMapPropagator().Inject(ctx, NewMessageCarrier(&msg))

	if err := t.writer.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("publish intent %s: %w", intent.ID, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (t *Transport) Close() error {
	return t.writer.Close()
}
