package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"expensebook/internal/backend"
	"expensebook/internal/config"
	applog "expensebook/internal/log"
	"expensebook/internal/storage"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "expensectl",
		Short:         "Administer an expensebook database",
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "config file (optional)")
	root.PersistentFlags().String("db", "", "path to the SQLite database file (default: $DB_PATH or expenses.db)")
	root.PersistentFlags().String("driver", "", "database driver (sqlite, postgres)")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(adduserCmd())
	root.AddCommand(exportCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(sessionsCmd())
	return root
}

// openStore loads configuration for cmd and opens the database it names.
func openStore(cmd *cobra.Command) (storage.Store, *config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	store, err := backend.Open(cfg, logger(cmd, cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, cfg, nil
}

func logger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return applog.WithComponent(applog.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr()), "expensectl")
}
