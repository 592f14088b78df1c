package main

import (
	"fmt"

	"expensebook/internal/storage"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Bring the database schema up to the latest version. The server does
this on startup as well; this command lets it happen ahead of a deploy.`,
		Args: cobra.NoArgs,
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true
	store, cfg, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	db, ok := store.(*storage.DB)
	if !ok {
		fmt.Fprintf(cmd.OutOrStdout(), "Database schema is up to date (%s)\n", cfg.DBDriver)
		return nil
	}

	version, dirty, err := db.SchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database schema version %d is dirty", version)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Database schema is at version %d\n", version)
	return nil
}
