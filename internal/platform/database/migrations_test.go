package database

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"file-gallery/internal/observability"
	"file-gallery/internal/testutils"
)

func TestLoadMigrationsFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"m/002_add_index.sql":     {Data: []byte("CREATE INDEX x ON t (c);")},
		"m/001_create_table.sql":  {Data: []byte("CREATE TABLE t (c INT);")},
		"m/README.md":             {Data: []byte("ignored")},
		"other/003_elsewhere.sql": {Data: []byte("SELECT 1;")},
	}

	migrations, err := LoadMigrationsFromFS(fsys, "m")
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, "001", migrations[0].Version)
	assert.Equal(t, "create table", migrations[0].Description)
	assert.Equal(t, "CREATE TABLE t (c INT);", migrations[0].SQL)
	assert.Equal(t, "002", migrations[1].Version)
}

func TestLoadMigrationsFromFSRejectsBadNames(t *testing.T) {
	fsys := fstest.MapFS{"m/initial.sql": {Data: []byte("SELECT 1;")}}

	_, err := LoadMigrationsFromFS(fsys, "m")
	assert.ErrorContains(t, err, "invalid migration filename")
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := LoadMigrationsFromFS(migrationFiles, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, "001", migrations[0].Version)
	assert.Contains(t, migrations[0].SQL, "CREATE TABLE IF NOT EXISTS uploads")
}

func TestRunMigrationsIntegration(t *testing.T) {
	dbURL := testutils.StartPostgres(t)
	ctx := context.Background()

	db, err := NewConnection(ctx, dbURL)
	require.NoError(t, err)
	defer db.Close()

	logger := observability.NewNopLogger()
	require.NoError(t, RunMigrations(ctx, db, logger))
	require.NoError(t, RunMigrations(ctx, db, logger), "second run must be a no-op")

	var applied int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&applied))
	assert.Equal(t, 1, applied)

	var exists bool
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = 'uploads')`).Scan(&exists))
	assert.True(t, exists)
}
