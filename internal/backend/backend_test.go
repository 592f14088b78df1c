package backend

import (
	"context"
	"path/filepath"
	"testing"

	"expensebook/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLite(t *testing.T) {
	cfg := &config.Config{DBDriver: config.DriverSQLite, DBPath: filepath.Join(t.TempDir(), "expenses.db")}

	store, err := Open(cfg, nil)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.CreateUser(context.Background(), "alice", "hash")
	require.NoError(t, err)
	count, err := store.UserCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(&config.Config{DBDriver: "mysql"}, nil)
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestOpen_PostgresUnreachable(t *testing.T) {
	_, err := Open(&config.Config{DBDriver: config.DriverPostgres, DatabaseURL: "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1"}, nil)
	assert.Error(t, err)
}
