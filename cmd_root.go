package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"rental-backend/config"
)

var (
	// Global flags
	verbose bool

	logger   *zap.Logger
	settings config.Settings
)

var rootCmd = &cobra.Command{
	Use:   "rental",
	Short: "Basha Bhara - property rental marketplace API",
	Long: `Serves the listing, search, booking and account API for the
Chattogram rental marketplace.

Run without a subcommand to start the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg = zap.NewDevelopmentConfig()
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if !config.LoadDotEnv() {
			logger.Info(".env not found or couldn't load it; continuing with environment variables")
		}
		settings, err = config.Load()
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "development logging at debug level")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}
