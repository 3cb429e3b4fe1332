package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-graph/migrations"
)

func TestNewMigrator_Validation(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("fails with nil database", func(t *testing.T) {
		m, err := NewMigrator(nil, "/some/path", logger)
		require.Error(t, err)
		assert.Nil(t, m)
		assert.Contains(t, err.Error(), "database is required")
	})

	t.Run("fails with nil pool", func(t *testing.T) {
		m, err := NewMigrator(&DB{}, "/some/path", logger)
		require.Error(t, err)
		assert.Nil(t, m)
		assert.Contains(t, err.Error(), "database pool not initialized")
	})

	t.Run("embedded fails with nil database", func(t *testing.T) {
		m, err := NewEmbeddedMigrator(nil, migrations.FS, ".", logger)
		require.Error(t, err)
		assert.Nil(t, m)
		assert.Contains(t, err.Error(), "database is required")
	})
}

func TestEmbeddedMigrations_Present(t *testing.T) {
	up, err := migrations.FS.ReadFile("000001_graph.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "CREATE TABLE IF NOT EXISTS triples")

	down, err := migrations.FS.ReadFile("000001_graph.down.sql")
	require.NoError(t, err)
	assert.Contains(t, string(down), "DROP TABLE IF EXISTS conversion_runs")
}

func TestMigrator_UpDown(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()

	logger := zerolog.Nop()

	t.Run("rejects missing directory", func(t *testing.T) {
		m, err := NewMigrator(db, "/nonexistent/path", logger)
		require.Error(t, err)
		assert.Nil(t, m)
		assert.Contains(t, err.Error(), "migrations path validation failed")
	})

	t.Run("file source applies the schema", func(t *testing.T) {
		m, err := NewMigrator(db, getMigrationsPath(t), logger)
		require.NoError(t, err)
		defer m.Close()

		require.NoError(t, m.Up())
		version, dirty, err := m.Version()
		require.NoError(t, err)
		assert.False(t, dirty)
		assert.GreaterOrEqual(t, version, uint(1))

		// Up again is a no-op.
		require.NoError(t, m.Up())
	})

	t.Run("embedded source rolls back", func(t *testing.T) {
		m, err := NewEmbeddedMigrator(db, migrations.FS, ".", logger)
		require.NoError(t, err)
		defer m.Close()

		require.NoError(t, m.Down())
		version, _, err := m.Version()
		require.NoError(t, err)
		assert.Equal(t, uint(0), version)
	})
}

func getMigrationsPath(t *testing.T) string {
	t.Helper()

	cwd, err := os.Getwd()
	require.NoError(t, err)

	path := filepath.Join(cwd, "..", "..", "migrations")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skipf("Skipping test: migrations directory not found at %s", path)
	}
	return path
}
