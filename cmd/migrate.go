/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/coursehub/apiserver/config"
	"github.com/coursehub/apiserver/internal/db"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrations(true)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert all migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrations(false)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

func runMigrations(up bool) error {
	cfg := config.LoadConfig()
	logger := newLogger(cfg)

	direction := "down"
	if up {
		direction = "up"
	}
	log := logger.WithField("direction", direction).WithField("path", cfg.MigrationsPath)

	if err := db.Migrate(cfg, up); err != nil {
		log.WithError(err).Error("migration failed")
		return err
	}
	log.Info("migrations applied")
	return nil
}
