package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledgerview/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending SQLite migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		if err := storage.RunMigrations(cfg.SQLiteDBPath); err != nil {
			return fmt.Errorf("migrate %s: %w", cfg.SQLiteDBPath, err)
		}
		logger.Info("Migrations applied", "path", cfg.SQLiteDBPath)
		return nil
	},
}
