package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/tripsearch-mcp/pkg/types"
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction. The pool holds a single connection, so
// the caller must not use s itself until the transaction ends.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return mapTxErr(t.tx.Commit())
}

func (t *sqliteTx) Rollback() error {
	return mapTxErr(t.tx.Rollback())
}

func mapTxErr(err error) error {
	if errors.Is(err, sql.ErrTxDone) {
		return ErrTxDone
	}
	return err
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

const entryColumns = `id, entity_type, entity_id, collection_id, searchable_text, title, subtitle, indexed_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*types.SearchIndexEntry, error) {
	var entry types.SearchIndexEntry
	var entityType string
	var subtitle sql.NullString
	var indexedAt int64
	err := row.Scan(
		&entry.ID, &entityType, &entry.EntityID, &entry.CollectionID,
		&entry.SearchableText, &entry.Title, &subtitle, &indexedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.EntityType = types.EntityType(entityType)
	if subtitle.Valid {
		entry.Subtitle = subtitle.String
	}
	entry.IndexedAt = time.UnixMilli(indexedAt).UTC()
	return &entry, nil
}

// Entry operations

// getEntryWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getEntryWithQuerier(ctx context.Context, q querier, id string) (*types.SearchIndexEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM search_entries WHERE id = ?`
	entry, err := scanEntry(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *SQLiteStorage) GetEntry(ctx context.Context, id string) (*types.SearchIndexEntry, error) {
	return s.getEntryWithQuerier(ctx, s.querier(), id)
}

// putEntryWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) putEntryWithQuerier(ctx context.Context, q querier, entry *types.SearchIndexEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid entry %s: %w", entry.ID, err)
	}
	if entry.IndexedAt.IsZero() {
		entry.IndexedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO search_entries (` + entryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			entity_type = excluded.entity_type,
			entity_id = excluded.entity_id,
			collection_id = excluded.collection_id,
			searchable_text = excluded.searchable_text,
			title = excluded.title,
			subtitle = excluded.subtitle,
			indexed_at = excluded.indexed_at
	`
	subtitle := sql.NullString{String: entry.Subtitle, Valid: entry.Subtitle != ""}
	_, err := q.ExecContext(ctx, query,
		entry.ID, string(entry.EntityType), entry.EntityID, entry.CollectionID,
		entry.SearchableText, entry.Title, subtitle, entry.IndexedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to put entry: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) PutEntry(ctx context.Context, entry *types.SearchIndexEntry) error {
	return s.putEntryWithQuerier(ctx, s.querier(), entry)
}

// deleteEntryWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteEntryWithQuerier(ctx context.Context, q querier, id string) error {
	_, err := q.ExecContext(ctx, "DELETE FROM search_entries WHERE id = ?", id)
	return err
}

func (s *SQLiteStorage) DeleteEntry(ctx context.Context, id string) error {
	return s.deleteEntryWithQuerier(ctx, s.querier(), id)
}

// listEntriesWithQuerier runs an entry query and collects the rows
func (s *SQLiteStorage) listEntriesWithQuerier(ctx context.Context, q querier, query string, args ...interface{}) ([]*types.SearchIndexEntry, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*types.SearchIndexEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *SQLiteStorage) ListEntries(ctx context.Context) ([]*types.SearchIndexEntry, error) {
	return s.listEntriesWithQuerier(ctx, s.querier(),
		`SELECT `+entryColumns+` FROM search_entries ORDER BY id`)
}

func (s *SQLiteStorage) ListEntriesByCollection(ctx context.Context, collectionID string) ([]*types.SearchIndexEntry, error) {
	return s.listEntriesWithQuerier(ctx, s.querier(),
		`SELECT `+entryColumns+` FROM search_entries WHERE collection_id = ? ORDER BY id`, collectionID)
}

// deleteCollectionWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteCollectionWithQuerier(ctx context.Context, q querier, collectionID string) (int, error) {
	result, err := q.ExecContext(ctx, "DELETE FROM search_entries WHERE collection_id = ?", collectionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete collection entries: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *SQLiteStorage) DeleteCollection(ctx context.Context, collectionID string) (int, error) {
	return s.deleteCollectionWithQuerier(ctx, s.querier(), collectionID)
}

func (s *SQLiteStorage) countEntriesWithQuerier(ctx context.Context, q querier) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM search_entries").Scan(&count)
	return count, err
}

func (s *SQLiteStorage) CountEntries(ctx context.Context) (int, error) {
	return s.countEntriesWithQuerier(ctx, s.querier())
}

// clearWithQuerier removes every entry and every metadata key
func (s *SQLiteStorage) clearWithQuerier(ctx context.Context, q querier) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM search_entries"); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}
	if _, err := q.ExecContext(ctx, "DELETE FROM index_meta"); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.clearWithQuerier(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Metadata operations

func (s *SQLiteStorage) getMetaWithQuerier(ctx context.Context, q querier, key string) (string, error) {
	var value string
	err := q.QueryRowContext(ctx, "SELECT value FROM index_meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *SQLiteStorage) GetMeta(ctx context.Context, key string) (string, error) {
	return s.getMetaWithQuerier(ctx, s.querier(), key)
}

func (s *SQLiteStorage) setMetaWithQuerier(ctx context.Context, q querier, key, value string) error {
	query := `
		INSERT INTO index_meta (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`
	if _, err := q.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set metadata %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStorage) SetMeta(ctx context.Context, key, value string) error {
	return s.setMetaWithQuerier(ctx, s.querier(), key, value)
}

func (s *SQLiteStorage) deleteMetaWithQuerier(ctx context.Context, q querier, key string) error {
	_, err := q.ExecContext(ctx, "DELETE FROM index_meta WHERE key = ?", key)
	return err
}

func (s *SQLiteStorage) DeleteMeta(ctx context.Context, key string) error {
	return s.deleteMetaWithQuerier(ctx, s.querier(), key)
}

// Transaction implementations - every call goes through the transaction's querier

func (t *sqliteTx) GetEntry(ctx context.Context, id string) (*types.SearchIndexEntry, error) {
	return t.storage.getEntryWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) PutEntry(ctx context.Context, entry *types.SearchIndexEntry) error {
	return t.storage.putEntryWithQuerier(ctx, t.querier(), entry)
}

func (t *sqliteTx) DeleteEntry(ctx context.Context, id string) error {
	return t.storage.deleteEntryWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) ListEntries(ctx context.Context) ([]*types.SearchIndexEntry, error) {
	return t.storage.listEntriesWithQuerier(ctx, t.querier(),
		`SELECT `+entryColumns+` FROM search_entries ORDER BY id`)
}

func (t *sqliteTx) ListEntriesByCollection(ctx context.Context, collectionID string) ([]*types.SearchIndexEntry, error) {
	return t.storage.listEntriesWithQuerier(ctx, t.querier(),
		`SELECT `+entryColumns+` FROM search_entries WHERE collection_id = ? ORDER BY id`, collectionID)
}

func (t *sqliteTx) DeleteCollection(ctx context.Context, collectionID string) (int, error) {
	return t.storage.deleteCollectionWithQuerier(ctx, t.querier(), collectionID)
}

func (t *sqliteTx) CountEntries(ctx context.Context) (int, error) {
	return t.storage.countEntriesWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) Clear(ctx context.Context) error {
	return t.storage.clearWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) GetMeta(ctx context.Context, key string) (string, error) {
	return t.storage.getMetaWithQuerier(ctx, t.querier(), key)
}

func (t *sqliteTx) SetMeta(ctx context.Context, key, value string) error {
	return t.storage.setMetaWithQuerier(ctx, t.querier(), key, value)
}

func (t *sqliteTx) DeleteMeta(ctx context.Context, key string) error {
	return t.storage.deleteMetaWithQuerier(ctx, t.querier(), key)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, ErrNestedTx
}
