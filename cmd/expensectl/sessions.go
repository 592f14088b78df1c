package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage login sessions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Delete expired sessions",
		Args:  cobra.NoArgs,
		RunE:  runSessionsPrune,
	})
	return cmd
}

func runSessionsPrune(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true
	store, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	removed, err := store.CleanExpiredSessions(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to prune sessions: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired sessions\n", removed)
	return nil
}
