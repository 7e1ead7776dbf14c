package main

import (
	"github.com/spf13/cobra"

	migrations "staybook/internal/migrations/mongo"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create collections, validators and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.SetMongo()
			defer cfg.GracefulShutdown()

			db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
			if err := migrations.RunMigration(cmd.Context(), db, cfg.Log); err != nil {
				cfg.Log.Error("Migration failed", "error", err)
				return err
			}
			return nil
		},
	}
}
