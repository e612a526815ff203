package storage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	return storage
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	assert.NotNil(t, storage)
	assert.NotNil(t, storage.db)
}

func TestClose(t *testing.T) {
	storage := setupTestDB(t)
	err := storage.Close()
	assert.NoError(t, err)
}

func TestSQLite_SubtitleStoredAsNull(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	entry := testEntry("trip", "t1", "c1", "Paris Getaway")
	require.NoError(t, storage.PutEntry(ctx, entry))

	var subtitle sql.NullString
	err := storage.db.QueryRowContext(ctx, "SELECT subtitle FROM search_entries WHERE id = ?", entry.ID).Scan(&subtitle)
	require.NoError(t, err)
	assert.False(t, subtitle.Valid, "empty subtitle should be stored as NULL")

	retrieved, err := storage.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "", retrieved.Subtitle)
}

func TestSQLite_CommitTwice(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.ErrorIs(t, tx.Commit(), ErrTxDone)
	assert.ErrorIs(t, tx.Rollback(), ErrTxDone)
}

func TestMigrations_Applied(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()

	current, err := currentVersion(ctx, store.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, current.String())

	var count int
	err = store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(AllMigrations), count)

	var ddl string
	err = store.db.QueryRowContext(ctx, "SELECT sql FROM sqlite_master WHERE type='index' AND name='idx_search_entries_type'").Scan(&ddl)
	require.NoError(t, err)
	assert.Contains(t, ddl, "entity_type")
}

func TestMigrations_Idempotent(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()

	// Running again must not try to re-record applied versions
	require.NoError(t, ApplyMigrations(ctx, store.db))

	var count int
	err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(AllMigrations), count)
}

func TestRollbackMigration(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()

	require.NoError(t, RollbackMigration(ctx, store.db))
	current, err := currentVersion(ctx, store.db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", current.String())

	require.NoError(t, RollbackMigration(ctx, store.db))
	current, err = currentVersion(ctx, store.db)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0", current.String())

	assert.Error(t, RollbackMigration(ctx, store.db))

	// Re-applying from scratch restores the schema
	require.NoError(t, ApplyMigrations(ctx, store.db))
	current, err = currentVersion(ctx, store.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, current.String())
}
