// Package storage persists the search index: one entry per indexed record
// plus a small key/value metadata table.
//
// Three backends implement the Storage interface:
//   - SQLiteStorage: the default, a single-file SQLite database
//   - BoltStorage: a bbolt file with a per-collection secondary index
//   - MemoryStorage: process-local, used by tests and throwaway servers
//
// Open selects a backend by name:
//
//	store, err := storage.Open(storage.BackendSQLite, "~/.tripsearch/index.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
// # Database Schema
//
// Tables (SQLite):
//   - schema_version: applied migrations
//   - search_entries: one row per indexed record, keyed "entityType:entityId"
//   - index_meta: lastRebuild and lastIndexed:<collectionId> timestamps
//
// # Transactions
//
// A collection is rebuilt as one batch. Readers see either the old entries
// or the new ones, never a mix:
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	if _, err := tx.DeleteCollection(ctx, collectionID); err != nil {
//	    return err
//	}
//	for _, entry := range entries {
//	    if err := tx.PutEntry(ctx, entry); err != nil {
//	        return err
//	    }
//	}
//	return tx.Commit()
//
// SQLite runs with a single pooled connection and bbolt with a single
// writer. A goroutine holding a Tx must use the Tx, not the Storage it came
// from, until it commits or rolls back.
//
// # Build Tags
//
// CGO Build (cgo_sqlite tag):
//
//	CGO_ENABLED=1 go build -tags "cgo_sqlite"
//
// Pure Go Build (default, or purego tag):
//
//	CGO_ENABLED=0 go build -tags "purego"
package storage
