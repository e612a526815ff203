package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dshills/tripsearch-mcp/internal/entitycache"
	"github.com/dshills/tripsearch-mcp/internal/storage"
	"github.com/dshills/tripsearch-mcp/pkg/types"
)

// RebuildInterval is how old the last full rebuild may get before the index
// is considered stale
const RebuildInterval = 24 * time.Hour

var (
	// ErrRebuildInProgress is returned when RebuildAll is already running
	ErrRebuildInProgress = errors.New("rebuild already in progress")
	// ErrEmptyCollectionID is returned for an empty collection id
	ErrEmptyCollectionID = errors.New("collection id is required")
)

// Invalidator is notified after every committed change to the index
type Invalidator interface {
	InvalidateCache()
}

// Indexer builds search entries from the entity cache: read -> extract -> store
type Indexer struct {
	storage     storage.Storage
	source      entitycache.Cache
	logger      *slog.Logger
	invalidator Invalidator
	lock        IndexLock
	now         func() time.Time
}

// Config contains configuration for the indexer
type Config struct {
	Logger      *slog.Logger // Defaults to a discarding logger
	Invalidator Invalidator  // Usually the searcher's query cache
}

// New creates a new Indexer instance
func New(store storage.Storage, source entitycache.Cache, config *Config) *Indexer {
	if config == nil {
		config = &Config{}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Indexer{
		storage:     store,
		source:      source,
		logger:      logger,
		invalidator: config.Invalidator,
		now:         time.Now,
	}
}

// BuildIndex replaces every entry of one collection with entries freshly
// extracted from the cache and returns the number written. The replacement
// is one transaction.
func (idx *Indexer) BuildIndex(ctx context.Context, collectionID string) (int, error) {
	n, err := idx.buildIndex(ctx, collectionID)
	if err != nil {
		return 0, err
	}
	idx.invalidate()
	return n, nil
}

func (idx *Indexer) buildIndex(ctx context.Context, collectionID string) (int, error) {
	if collectionID == "" {
		return 0, ErrEmptyCollectionID
	}

	entries, err := idx.collect(ctx, collectionID)
	if err != nil {
		return 0, err
	}

	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.DeleteCollection(ctx, collectionID); err != nil {
		return 0, fmt.Errorf("failed to clear collection %s: %w", collectionID, err)
	}

	for _, entry := range entries {
		if err := tx.PutEntry(ctx, entry); err != nil {
			return 0, fmt.Errorf("failed to store entry %s: %w", entry.ID, err)
		}
	}

	stamp := idx.now().UTC().Format(time.RFC3339Nano)
	if err := tx.SetMeta(ctx, storage.LastIndexedKey(collectionID), stamp); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	idx.logger.Debug("collection indexed",
		slog.String("collection", collectionID),
		slog.Int("entries", len(entries)))

	return len(entries), nil
}

// collect extracts every record of a collection. Records that fail
// extraction are logged and skipped; cache errors abort the collection.
func (idx *Indexer) collect(ctx context.Context, collectionID string) ([]*types.SearchIndexEntry, error) {
	indexedAt := idx.now().UTC()
	entries := make([]*types.SearchIndexEntry, 0)
	position := make(map[string]int)

	for _, entityType := range types.AllEntityTypes {
		records, err := idx.source.Records(ctx, collectionID, entityType)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s records for %s: %w", entityType, collectionID, err)
		}

		for _, record := range records {
			extracted, err := Extract(entityType, record)
			if err != nil {
				idx.logger.Warn("skipping record",
					slog.String("collection", collectionID),
					slog.String("entity_type", string(entityType)),
					slog.Any("error", err))
				continue
			}

			entry := &types.SearchIndexEntry{
				ID:             types.EntryID(entityType, record.ID()),
				EntityType:     entityType,
				EntityID:       record.ID(),
				CollectionID:   collectionID,
				SearchableText: extracted.SearchableText,
				Title:          extracted.Title,
				Subtitle:       extracted.Subtitle,
				IndexedAt:      indexedAt,
			}

			// Duplicate ids collapse to the last record
			if i, dup := position[entry.ID]; dup {
				entries[i] = entry
				continue
			}
			position[entry.ID] = len(entries)
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// RebuildAll clears the index and rebuilds every collection the cache
// knows. A collection that fails is logged and skipped; the returned count
// covers the collections that succeeded.
func (idx *Indexer) RebuildAll(ctx context.Context) (int, error) {
	if !idx.lock.TryAcquire() {
		return 0, ErrRebuildInProgress
	}
	defer idx.lock.Release()

	start := idx.now()

	collectionIDs, err := idx.source.CollectionIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list collections: %w", err)
	}

	if err := idx.storage.Clear(ctx); err != nil {
		return 0, fmt.Errorf("failed to clear index: %w", err)
	}
	// Entries are gone from here on, whatever happens next
	defer idx.invalidate()

	total := 0
	failed := 0
	for _, collectionID := range collectionIDs {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		n, err := idx.buildIndex(ctx, collectionID)
		if err != nil {
			failed++
			idx.logger.Error("skipping collection",
				slog.String("collection", collectionID),
				slog.Any("error", err))
			continue
		}
		total += n
	}

	stamp := idx.now().UTC().Format(time.RFC3339Nano)
	if err := idx.storage.SetMeta(ctx, storage.MetaLastRebuild, stamp); err != nil {
		return total, fmt.Errorf("failed to record rebuild time: %w", err)
	}

	idx.logger.Info("index rebuilt",
		slog.Int("collections", len(collectionIDs)),
		slog.Int("failed", failed),
		slog.Int("entries", total),
		slog.Duration("duration", idx.now().Sub(start)))

	return total, nil
}

// RemoveCollection deletes a collection's entries and its build timestamp
// and returns the number of entries removed
func (idx *Indexer) RemoveCollection(ctx context.Context, collectionID string) (int, error) {
	if collectionID == "" {
		return 0, ErrEmptyCollectionID
	}

	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	n, err := tx.DeleteCollection(ctx, collectionID)
	if err != nil {
		return 0, err
	}
	if err := tx.DeleteMeta(ctx, storage.LastIndexedKey(collectionID)); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	idx.invalidate()
	idx.logger.Debug("collection removed",
		slog.String("collection", collectionID),
		slog.Int("entries", n))

	return n, nil
}

// NeedsRebuild reports whether the index is stale: empty, never rebuilt,
// or last rebuilt more than RebuildInterval ago
func (idx *Indexer) NeedsRebuild(ctx context.Context) (bool, error) {
	count, err := idx.storage.CountEntries(ctx)
	if err != nil {
		return false, err
	}
	if count == 0 {
		return true, nil
	}

	value, err := idx.storage.GetMeta(ctx, storage.MetaLastRebuild)
	if errors.Is(err, storage.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}

	lastRebuild, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		idx.logger.Warn("unreadable rebuild timestamp", slog.String("value", value))
		return true, nil
	}

	return idx.now().Sub(lastRebuild) > RebuildInterval, nil
}

// Rebuilding reports whether RebuildAll is currently running
func (idx *Indexer) Rebuilding() bool {
	return idx.lock.Held()
}

func (idx *Indexer) invalidate() {
	if idx.invalidator != nil {
		idx.invalidator.InvalidateCache()
	}
}
