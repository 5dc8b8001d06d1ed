// Package riderrepo persists rider records (identity, name, availability) through gorm.
// The order slot is not stored: it is rebuilt from the event log on start.
package riderrepo

import (
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/rider"

	"github.com/google/uuid"
)

// RiderDTO is one row of the riders table.
type RiderDTO struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"type:varchar(255);not null"`
	Available bool      `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName overrides gorm's default "rider_dtos".
func (RiderDTO) TableName() string {
	return "riders"
}

func fromDomain(s rider.Snapshot) RiderDTO {
	return RiderDTO{
		ID:        s.ID.Bytes(),
		Name:      s.Name,
		Available: s.Available,
	}
}

func toDomain(dto RiderDTO) (*rider.Rider, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	return rider.RestoreRider(id, dto.Name, dto.Available)
}
