package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"coop-door-backend/config"
	"coop-door-backend/internal/model"
)

var (
	// ErrNotFound is returned when the backing record does not exist.
	ErrNotFound = errors.New("door status not found")
	// ErrCorrupt is returned when the backing record is structurally invalid.
	ErrCorrupt = errors.New("door status corrupt")
)

// Store defines the persistence operations for the single door status record.
// Implementations must never expose a partially written record.
type Store interface {
	ReadStatus(ctx context.Context) (model.DoorStatus, error)
	ReplaceStatus(ctx context.Context, status model.DoorStatus) (model.DoorStatus, error)
}

// Open builds the backend selected by cfg.Status.Backend. db is only used by
// the sql backend and may be nil otherwise.
func Open(cfg *config.Config, db *gorm.DB) (Store, error) {
	switch cfg.Status.Backend {
	case config.BackendFile:
		return NewFileStore(cfg.Status.File), nil
	case config.BackendSQL:
		if db == nil {
			return nil, errors.New("sql status backend requires a database")
		}
		return NewGormStore(db), nil
	case config.BackendBin:
		return NewBinStore(cfg.Status.Bin)
	default:
		return nil, fmt.Errorf("unknown status backend %q", cfg.Status.Backend)
	}
}

// Init writes the default record if none exists yet. It reports whether a
// record was created. A corrupt record is left untouched and returned as an error.
func Init(ctx context.Context, s Store) (bool, error) {
	_, err := s.ReadStatus(ctx)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if _, err := s.ReplaceStatus(ctx, model.DefaultDoorStatus()); err != nil {
		return false, fmt.Errorf("failed to create default door status: %w", err)
	}
	return true, nil
}

func corrupt(err error) error {
	return fmt.Errorf("%w: %v", ErrCorrupt, err)
}
