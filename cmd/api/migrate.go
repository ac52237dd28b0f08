package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryanwahyu/docimpact/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		db, err := openDB(ctx, cfg)
		if err != nil {
			return err
		}
		if db == nil {
			logger.Info("memory driver has no schema to migrate")
			return nil
		}
		defer db.Close()

		if err := migrate(ctx, cfg.Database.Driver, db); err != nil {
			return err
		}
		logger.Info("schema migrated", zap.String("driver", cfg.Database.Driver))
		return nil
	},
}
