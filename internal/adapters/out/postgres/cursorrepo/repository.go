// Package cursorrepo persists the event log positions of log consumers through gorm.
package cursorrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CursorDTO is one row of the log_cursors table.
type CursorDTO struct {
	Name      string `gorm:"type:varchar(64);primaryKey"`
	Position  int64  `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName overrides gorm's default "cursor_dtos".
func (CursorDTO) TableName() string {
	return "log_cursors"
}

// GormCursorStore implements ports.CursorStore using gorm.
type GormCursorStore struct {
	db *gorm.DB
}

// NewGormCursorStore creates a cursor store over db.
func NewGormCursorStore(db *gorm.DB) *GormCursorStore {
	return &GormCursorStore{db: db}
}

// Load returns the saved position of name, or 0.
func (s *GormCursorStore) Load(ctx context.Context, name string) (uint64, error) {
	var dto CursorDTO
	err := s.db.WithContext(ctx).First(&dto, "name = ?", name).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("load cursor %s: %w", name, err)
	}
	return uint64(dto.Position), nil
}

// Save upserts the cursor. The stored position never moves backwards.
func (s *GormCursorStore) Save(ctx context.Context, name string, position uint64) error {
	dto := CursorDTO{Name: name, Position: int64(position), UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.Set{
			{Column: clause.Column{Name: "position"}, Value: gorm.Expr("CASE WHEN log_cursors.position < excluded.position THEN excluded.position ELSE log_cursors.position END")},
			{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr("excluded.updated_at")},
		},
	}).Create(&dto).Error
	if err != nil {
		return fmt.Errorf("save cursor %s: %w", name, err)
	}
	return nil
}
