// Command coopd runs the chicken-coop door controller: the reconciliation
// loop that follows the sun schedule and the HTTP API the door talks to.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"coop-door-backend/config"
	"coop-door-backend/internal/logging"
)

const defaultConfigPath = "./config/config.yaml"

var (
	// Global flags
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "coopd",
	Short: "Chicken-coop door controller",
	Long: `coopd opens the coop door after sunrise and closes it after sunset,
honouring a manual override for the rest of the day.

Running coopd without a subcommand is the same as "coopd serve".`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reconciliation loop and the HTTP API",
	RunE:  runServe,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and sources, then print what the next tick would do",
	RunE:  runCheck,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the default door status record if none exists",
	RunE:  runInit,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (.yaml or .toml; default $CONFIG_PATH or "+defaultConfigPath+")")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveConfigPath picks the flag, then CONFIG_PATH, then the default.
func resolveConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return defaultConfigPath
}

// loadConfig loads and validates the configuration and builds the logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	path := resolveConfigPath(configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Configuration loaded", zap.String("path", path), zap.String("status_backend", cfg.Status.Backend))
	return cfg, logger, nil
}
