package main

import (
	"fmt"
	"os"

	"github.com/alexbotov/slotsrv/internal/config"
	"github.com/alexbotov/slotsrv/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "slotsrv",
		Short: "Slot outcome engine",
		Long: `slotsrv serves slot spins over HTTP and WebSocket: a fixed 3x3 legacy
machine with a progressive jackpot, and configurable line and megaway
machines loaded from YAML or PostgreSQL.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config (default $SLOTSRV_CONFIG)")

	rootCmd.AddCommand(newServeCmd(), newSimulateCmd(), newSeedCmd(), newTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *zap.Logger {
	return logger.New(&logger.Config{
		Mode:  logger.ParseMode(cfg.Log.Mode),
		Level: cfg.Log.Level,
		App:   "slotsrv",
		Dir:   cfg.Log.Dir,
		File:  cfg.Log.File,
	})
}
