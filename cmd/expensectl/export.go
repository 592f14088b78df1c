package main

import (
	"errors"
	"fmt"
	"os"

	"expensebook/internal/expenses"
	"expensebook/internal/storage"

	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a user's expenses as CSV",
		Args:  cobra.NoArgs,
		RunE:  runExport,
	}

	cmd.Flags().String("user", "", "username whose expenses to export")
	cmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true
	username, _ := cmd.Flags().GetString("user")
	output, _ := cmd.Flags().GetString("output")

	store, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	user, err := store.GetUserByUsername(cmd.Context(), username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("user %s not found", username)
		}
		return err
	}

	svc := expenses.NewService(store)
	if output == "" {
		_, err := svc.ExportCSV(cmd.Context(), user.ID, cmd.OutOrStdout())
		return err
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	rows, err := svc.ExportCSV(cmd.Context(), user.ID, f)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to write output file: %w", closeErr)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d expenses to %s\n", rows, output)
	return nil
}
