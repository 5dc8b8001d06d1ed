package riderrepo

import (
	"context"
	"errors"
	"fmt"

	"dispatch/internal/adapters/out/postgres"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/rider"
	"dispatch/internal/pkg/errs"

	"gorm.io/gorm"
)

// GormRiderRepository implements ports.RiderRepository using gorm.
type GormRiderRepository struct {
	db *gorm.DB
}

// NewGormRiderRepository creates a rider repository over db.
func NewGormRiderRepository(db *gorm.DB) *GormRiderRepository {
	return &GormRiderRepository{db: db}
}

// Add stores a newly registered rider.
func (r *GormRiderRepository) Add(ctx context.Context, s rider.Snapshot) error {
	if err := s.ID.Validate(); err != nil {
		return err
	}

	dto := fromDomain(s)
	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		if postgres.IsUniqueViolation(err) {
			return errs.NewValueIsInvalidErrorWithCause("rider "+s.ID.String()+" already exists", err)
		}
		return fmt.Errorf("add rider %s: %w", s.ID, err)
	}
	return nil
}

// Update stores the name and availability of an existing rider.
func (r *GormRiderRepository) Update(ctx context.Context, s rider.Snapshot) error {
	dto := fromDomain(s)
	result := r.db.WithContext(ctx).
		Model(&RiderDTO{}).
		Where("id = ?", dto.ID).
		Select("name", "available", "updated_at").
		Updates(&dto)
	if result.Error != nil {
		return fmt.Errorf("update rider %s: %w", s.ID, result.Error)
	}

	if result.RowsAffected == 0 {
		return errs.NewObjectNotFoundError("rider", s.ID)
	}
	return nil
}

// Get retrieves a rider by id.
func (r *GormRiderRepository) Get(ctx context.Context, id kernel.UUID) (*rider.Rider, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto RiderDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("rider", id.String())
		}
		return nil, err
	}

	return toDomain(dto)
}

// GetAll retrieves every rider ordered by name.
func (r *GormRiderRepository) GetAll(ctx context.Context) ([]*rider.Rider, error) {
	var dtos []RiderDTO
	if err := r.db.WithContext(ctx).Order("name").Order("id").Find(&dtos).Error; err != nil {
		return nil, err
	}

	riders := make([]*rider.Rider, 0, len(dtos))
	for _, dto := range dtos {
		rd, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		riders = append(riders, rd)
	}

	return riders, nil
}
