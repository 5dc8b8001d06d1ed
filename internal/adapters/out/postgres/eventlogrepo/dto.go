// Package eventlogrepo stores the order event log in a relational table through gorm.
package eventlogrepo

import (
	"encoding/json"
	"fmt"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EventDTO is one row of the order_events table. Position is the primary key and is
// assigned by the log, (order_id, sequence) is unique.
type EventDTO struct {
	Position   uint64         `gorm:"primaryKey;autoIncrement:false"`
	OrderID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_order_events_order_sequence,priority:1"`
	Sequence   uint64         `gorm:"not null;uniqueIndex:idx_order_events_order_sequence,priority:2"`
	Kind       string         `gorm:"type:varchar(32);not null"`
	ActorRole  string         `gorm:"type:varchar(16);not null"`
	ActorID    string         `gorm:"type:varchar(255);not null"`
	Payload    datatypes.JSON `gorm:"not null"`
	OccurredAt time.Time      `gorm:"not null"`
}

// TableName overrides gorm's default "event_dtos".
func (EventDTO) TableName() string {
	return "order_events"
}

// storedTime is the precision both supported databases keep.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func fromDomain(e order.Event) (EventDTO, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return EventDTO{}, fmt.Errorf("encode payload of %s: %w", e.ID(), err)
	}

	return EventDTO{
		Position:   e.Position,
		OrderID:    e.OrderID.Bytes(),
		Sequence:   e.Sequence,
		Kind:       e.Kind.String(),
		ActorRole:  e.Actor.Role.String(),
		ActorID:    e.Actor.ID,
		Payload:    datatypes.JSON(payload),
		OccurredAt: storedTime(e.OccurredAt),
	}, nil
}

func toDomain(dto EventDTO) (order.Event, error) {
	orderID, err := kernel.UUIDFromBytes(dto.OrderID[:])
	if err != nil {
		return order.Event{}, err
	}
	kind, err := order.ParseEventKind(dto.Kind)
	if err != nil {
		return order.Event{}, err
	}
	role, err := order.ParseRole(dto.ActorRole)
	if err != nil {
		return order.Event{}, err
	}

	var payload order.Payload
	if err := json.Unmarshal(dto.Payload, &payload); err != nil {
		return order.Event{}, fmt.Errorf("decode payload of %s/%d: %w", orderID, dto.Sequence, err)
	}

	return order.Event{
		OrderID:    orderID,
		Sequence:   dto.Sequence,
		Position:   dto.Position,
		Kind:       kind,
		Actor:      order.Actor{Role: role, ID: dto.ActorID},
		Payload:    payload,
		OccurredAt: dto.OccurredAt.UTC(),
	}, nil
}
