package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"coop-door-backend/config"
	"coop-door-backend/internal/door"
	"coop-door-backend/internal/reconciler"
)

type checkReport struct {
	Ordinal    int    `json:"ordinal"`
	Daylight   bool   `json:"daylight"`
	State      string `json:"state"`
	Action     string `json:"action"`
	Warning    string `json:"warning,omitempty"`
	Overridden bool   `json:"override_active"`
	WouldSave  bool   `json:"would_write"`
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	return check(cmd.Context(), cfg, logger, cmd.OutOrStdout())
}

// check opens both sources and prints the decision the next tick would make.
// Nothing is written.
func check(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	src, err := openSources(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer src.Close()

	svc := reconciler.NewService(cfg, src.almanac, src.gateway, logger)
	d, err := svc.Preview(ctx)
	if err != nil {
		return err
	}
	return writeReport(out, d)
}

func writeReport(out io.Writer, d door.Decision) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(checkReport{
		Ordinal:    d.Ordinal,
		Daylight:   d.Daylight,
		State:      string(d.State),
		Action:     string(d.Action),
		Warning:    d.Warning,
		Overridden: d.Suppressed,
		WouldSave:  d.Changed(),
	}); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
