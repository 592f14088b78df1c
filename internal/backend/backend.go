// Package backend opens the storage backend selected by configuration.
package backend

import (
	"fmt"
	"log/slog"

	"expensebook/internal/config"
	"expensebook/internal/storage"
	"expensebook/internal/storage/postgres"
)

// Open connects to the configured database and brings its schema up to date.
func Open(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.DBDriver {
	case config.DriverSQLite, "":
		db, err := storage.NewDB(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		logger.Info("initialized sqlite backend", "db_path", cfg.DBPath)
		return db, nil
	case config.DriverPostgres:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres database: %w", err)
		}
		logger.Info("initialized postgres backend")
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.DBDriver)
	}
}
