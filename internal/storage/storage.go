package storage

import (
	"context"
	"errors"

	"github.com/dshills/tripsearch-mcp/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entry or metadata key doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrTxDone is returned when a transaction is used after Commit or Rollback
	ErrTxDone = errors.New("transaction already committed or rolled back")
	// ErrNestedTx is returned by BeginTx on a transaction
	ErrNestedTx = errors.New("nested transactions not supported")
	// ErrUnknownBackend is returned by Open for an unsupported backend name
	ErrUnknownBackend = errors.New("unknown storage backend")
)

// Metadata keys
const (
	// MetaLastRebuild holds the timestamp of the last full rebuild
	MetaLastRebuild = "lastRebuild"
	// MetaLastIndexedPrefix prefixes the per-collection build timestamp key
	MetaLastIndexedPrefix = "lastIndexed:"
)

// LastIndexedKey returns the metadata key holding a collection's build time
func LastIndexedKey(collectionID string) string {
	return MetaLastIndexedPrefix + collectionID
}

// Storage defines the interface for persisting search index entries and
// index metadata
type Storage interface {
	// Entry operations
	GetEntry(ctx context.Context, id string) (*types.SearchIndexEntry, error)
	PutEntry(ctx context.Context, entry *types.SearchIndexEntry) error
	DeleteEntry(ctx context.Context, id string) error
	ListEntries(ctx context.Context) ([]*types.SearchIndexEntry, error)
	ListEntriesByCollection(ctx context.Context, collectionID string) ([]*types.SearchIndexEntry, error)
	DeleteCollection(ctx context.Context, collectionID string) (deletedCount int, err error)
	CountEntries(ctx context.Context) (int, error)
	Clear(ctx context.Context) error

	// Metadata operations
	GetMeta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error
	DeleteMeta(ctx context.Context, key string) error

	// Store operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents an atomic batch of storage operations. Readers never observe
// a partially applied Tx.
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}
