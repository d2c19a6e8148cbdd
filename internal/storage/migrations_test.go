package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_ReachesExpectedVersion(t *testing.T) {
	store := createTestStorage(t)

	var version int
	require.NoError(t, store.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, ExpectedSchemaVersion, version)
	assert.Equal(t, migrations[len(migrations)-1].Version, ExpectedSchemaVersion)
}

func TestMigrate_Idempotent(t *testing.T) {
	store := createTestStorage(t)

	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, store.Migrate(context.Background()))
}

func TestMigrate_VersionsAreSequential(t *testing.T) {
	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version, m.Description)
		assert.NotEmpty(t, m.Description)
	}
}

func TestMigrate_Tables(t *testing.T) {
	store := createTestStorage(t)

	for _, table := range []string{"transactions", "user_settings", "analysis_snapshots"} {
		var name string
		err := store.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
	}

	// Columns added after the initial schema.
	_, err := store.db.Exec("SELECT source FROM transactions LIMIT 1")
	require.NoError(t, err)
	_, err = store.db.Exec("SELECT bonus_amount FROM user_settings LIMIT 1")
	require.NoError(t, err)
}

func TestMigrate_NilContext(t *testing.T) {
	store := createTestStorage(t)

	//nolint:staticcheck // nil context is the case under test
	err := store.Migrate(nil)
	require.ErrorIs(t, err, ErrNilContext)
}
