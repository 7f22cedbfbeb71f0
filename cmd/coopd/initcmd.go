package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"coop-door-backend/config"
	"coop-door-backend/internal/store"
)

func runInit(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	return initStatus(cmd.Context(), cfg, logger, cmd.OutOrStdout())
}

// initStatus seeds the default record: closed, executed, no override.
func initStatus(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer) error {
	backend, gormDB, err := openStatus(cfg, logger)
	if gormDB != nil {
		if sqlDB, dbErr := gormDB.DB(); dbErr == nil {
			defer sqlDB.Close()
		}
	}
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Status.Timeout)
	defer cancel()

	created, err := store.Init(ctx, backend)
	if err != nil {
		return err
	}
	if created {
		logger.Info("Default door status created", zap.String("backend", cfg.Status.Backend))
		fmt.Fprintln(out, "door status created: closed, no override")
	} else {
		fmt.Fprintln(out, "door status already exists; left unchanged")
	}
	return nil
}
