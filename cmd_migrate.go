package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rental-backend/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := config.ConnectDatabase(settings, logger)
		if err != nil {
			return fmt.Errorf("database connect failed: %w", err)
		}
		if err := config.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("✅ migrations applied")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the Chattogram areas and the demo admin",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := config.ConnectDatabase(settings, logger)
		if err != nil {
			return fmt.Errorf("database connect failed: %w", err)
		}
		if err := config.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		if err := config.SeedDatabase(db, logger); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		logger.Info("✅ seed complete")
		return nil
	},
}
