package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"coop-door-backend/internal/model"
)

// gormStore implements the Store interface using GORM. The status lives in a
// single row with a fixed primary key.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) ReadStatus(ctx context.Context) (model.DoorStatus, error) {
	var rec model.StatusRecord
	err := s.db.WithContext(ctx).First(&rec, model.StatusRecordID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.DoorStatus{}, ErrNotFound
	}
	if err != nil {
		return model.DoorStatus{}, fmt.Errorf("failed to read door status: %w", err)
	}

	status := rec.DoorStatus()
	if err := status.Validate(); err != nil {
		return model.DoorStatus{}, corrupt(err)
	}
	return status, nil
}

// ReplaceStatus upserts the single row with bound parameters.
func (s *gormStore) ReplaceStatus(ctx context.Context, status model.DoorStatus) (model.DoorStatus, error) {
	rec := model.NewStatusRecord(status)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"executed", "up", "over_ride", "over_ride_day", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return model.DoorStatus{}, fmt.Errorf("failed to write door status: %w", err)
	}
	return status, nil
}
