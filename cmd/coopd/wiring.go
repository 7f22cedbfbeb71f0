package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"coop-door-backend/config"
	"coop-door-backend/internal/db"
	"coop-door-backend/internal/store"
	"coop-door-backend/internal/sun"
)

// sources are the two inputs every command needs: the schedule and the status.
type sources struct {
	almanac *sun.Almanac
	backend store.Store
	gateway *store.Gateway
	db      *gorm.DB
}

func (s *sources) Close() {
	if s.db == nil {
		return
	}
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}

// openStatus connects the configured status backend and, when needed, the database.
func openStatus(cfg *config.Config, log *zap.Logger) (store.Store, *gorm.DB, error) {
	var gormDB *gorm.DB
	if cfg.NeedsDatabase() {
		var err error
		gormDB, err = db.Init(&cfg.Database, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	backend, err := store.Open(cfg, gormDB)
	if err != nil {
		return nil, gormDB, err
	}
	return backend, gormDB, nil
}

// openSources loads the schedule and verifies the status record can be read.
// Either one missing is fatal.
func openSources(ctx context.Context, cfg *config.Config, log *zap.Logger) (*sources, error) {
	almanac, err := sun.LoadAlmanac(cfg.Schedule.File)
	if err != nil {
		return nil, err
	}
	log.Info("Schedule loaded", zap.String("file", cfg.Schedule.File), zap.Int("days", almanac.Len()))

	backend, gormDB, err := openStatus(cfg, log)
	src := &sources{almanac: almanac, backend: backend, db: gormDB}
	if err != nil {
		src.Close()
		return nil, err
	}

	src.gateway = store.NewGateway(backend,
		store.WithTimeout(cfg.Status.Timeout),
		store.WithReadCache(time.Duration(cfg.Status.CacheTTLSeconds)*time.Second),
	)

	status, err := src.gateway.ReadStatus(ctx)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("door status is not readable (run \"coopd init\" on first use): %w", err)
	}
	log.Info("Door status loaded",
		zap.String("state", string(status.State())),
		zap.Int("over_ride", status.OverRide),
		zap.Int("over_ride_day", status.OverRideDay),
	)
	return src, nil
}
