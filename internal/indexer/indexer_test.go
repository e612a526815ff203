package indexer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/tripsearch-mcp/internal/entitycache"
	"github.com/dshills/tripsearch-mcp/internal/storage"
	"github.com/dshills/tripsearch-mcp/pkg/types"
)

// setupTestStorage creates an in-memory SQLite database for testing
func setupTestStorage(t testing.TB) storage.Storage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err, "Failed to create test storage")
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func parisSnapshot() *entitycache.Snapshot {
	return &entitycache.Snapshot{
		Trip: entitycache.Record{"id": "paris", "title": "Paris Adventure", "description": "Eiffel Tower visit", "status": "Planned"},
		Locations: []entitycache.Record{
			{"id": "l1", "name": "Cafe de Flore", "address": "172 Bd Saint-Germain"},
			{"id": "l2", "name": "Louvre"},
		},
		JournalEntries: []entitycache.Record{
			{"id": "j1", "content": "Croissants again"},
		},
	}
}

func romeSnapshot() *entitycache.Snapshot {
	return &entitycache.Snapshot{
		Trip:     entitycache.Record{"id": "rome", "title": "Roman Holiday"},
		Lodgings: []entitycache.Record{{"id": "h1", "name": "Hotel Artemide"}},
	}
}

// countingInvalidator records InvalidateCache calls
type countingInvalidator struct {
	calls atomic.Int32
}

func (c *countingInvalidator) InvalidateCache() {
	c.calls.Add(1)
}

// faultyCache fails Records for selected collections
type faultyCache struct {
	entitycache.Cache
	failing map[string]bool
}

func (c *faultyCache) Records(ctx context.Context, collectionID string, entityType types.EntityType) ([]entitycache.Record, error) {
	if c.failing[collectionID] {
		return nil, errors.New("cache unavailable")
	}
	return c.Cache.Records(ctx, collectionID, entityType)
}

// faultyStorage fails writes for one collection inside transactions
type faultyStorage struct {
	storage.Storage
	failCollection string
}

func (s *faultyStorage) BeginTx(ctx context.Context) (storage.Tx, error) {
	tx, err := s.Storage.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return &faultyTx{Tx: tx, failCollection: s.failCollection}, nil
}

type faultyTx struct {
	storage.Tx
	failCollection string
}

func (t *faultyTx) PutEntry(ctx context.Context, entry *types.SearchIndexEntry) error {
	if entry.CollectionID == t.failCollection {
		return errors.New("disk full")
	}
	return t.Tx.PutEntry(ctx, entry)
}

func entryIDs(t *testing.T, store storage.Storage, collectionID string) []string {
	t.Helper()
	entries, err := store.ListEntriesByCollection(context.Background(), collectionID)
	require.NoError(t, err)
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	sort.Strings(ids)
	return ids
}

func TestNew(t *testing.T) {
	idx := New(storage.NewMemoryStorage(), entitycache.NewMemoryCache(), nil)
	assert.NotNil(t, idx)
	assert.NotNil(t, idx.logger)
	assert.Nil(t, idx.invalidator)
	assert.False(t, idx.Rebuilding())
}

func TestBuildIndex_Success(t *testing.T) {
	store := setupTestStorage(t)
	cache := entitycache.NewMemoryCache()
	cache.Put("paris", parisSnapshot())
	inv := &countingInvalidator{}
	idx := New(store, cache, &Config{Invalidator: inv})

	ctx := context.Background()
	n, err := idx.BuildIndex(ctx, "paris")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, int32(1), inv.calls.Load())

	assert.Equal(t, []string{"journalEntry:j1", "location:l1", "location:l2", "trip:paris"}, entryIDs(t, store, "paris"))

	trip, err := store.GetEntry(ctx, "trip:paris")
	require.NoError(t, err)
	assert.Equal(t, "Paris Adventure", trip.Title)
	assert.Equal(t, "Planned", trip.Subtitle)
	assert.Equal(t, "paris adventure eiffel tower visit planned", trip.SearchableText)

	journal, err := store.GetEntry(ctx, "journalEntry:j1")
	require.NoError(t, err)
	assert.Equal(t, "Journal Entry", journal.Title)

	_, err = store.GetMeta(ctx, storage.LastIndexedKey("paris"))
	assert.NoError(t, err)
}

func TestBuildIndex_Idempotent(t *testing.T) {
	store := storage.NewMemoryStorage()
	cache := entitycache.NewMemoryCache()
	cache.Put("paris", parisSnapshot())
	idx := New(store, cache, nil)

	ctx := context.Background()
	n1, err := idx.BuildIndex(ctx, "paris")
	require.NoError(t, err)
	ids1 := entryIDs(t, store, "paris")

	n2, err := idx.BuildIndex(ctx, "paris")
	require.NoError(t, err)
	ids2 := entryIDs(t, store, "paris")

	assert.Equal(t, n1, n2)
	assert.Equal(t, ids1, ids2)

	count, err := store.CountEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, n1, count)
}

func TestBuildIndex_DropsRecordsRemovedUpstream(t *testing.T) {
	store := storage.NewMemoryStorage()
	cache := entitycache.NewMemoryCache()
	snapshot := parisSnapshot()
	cache.Put("paris", snapshot)
	idx := New(store, cache, nil)

	ctx := context.Background()
	_, err := idx.BuildIndex(ctx, "paris")
	require.NoError(t, err)

	snapshot.Locations = snapshot.Locations[:1]
	n, err := idx.BuildIndex(ctx, "paris")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NotContains(t, entryIDs(t, store, "paris"), "location:l2")
}

func TestBuildIndex_SkipsMalformedRecords(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	store := storage.NewMemoryStorage()
	cache := entitycache.NewMemoryCache()
	cache.Put("paris", &entitycache.Snapshot{
		Trip: entitycache.Record{"id": "paris", "title": "Paris"},
		Activities: []entitycache.Record{
			{"name": "No id"},
			{"id": "a1", "name": "Louvre Tour"},
		},
	})
	idx := New(store, cache, &Config{Logger: logger})

	n, err := idx.BuildIndex(context.Background(), "paris")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, logs.String(), "skipping record")
	assert.Contains(t, logs.String(), "entity_type=activity")
}

func TestBuildIndex_DuplicateIDsCollapse(t *testing.T) {
	store := storage.NewMemoryStorage()
	cache := entitycache.NewMemoryCache()
	cache.Put("paris", &entitycache.Snapshot{
		Locations: []entitycache.Record{
			{"id": "l1", "name": "First"},
			{"id": "l1", "name": "Second"},
		},
	})
	idx := New(store, cache, nil)

	ctx := context.Background()
	n, err := idx.BuildIndex(ctx, "paris")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entry, err := store.GetEntry(ctx, "location:l1")
	require.NoError(t, err)
	assert.Equal(t, "Second", entry.Title)
}

func TestBuildIndex_Errors(t *testing.T) {
	idx := New(storage.NewMemoryStorage(), entitycache.NewMemoryCache(), nil)

	_, err := idx.BuildIndex(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyCollectionID)

	_, err = idx.BuildIndex(context.Background(), "unknown")
	assert.ErrorIs(t, err, entitycache.ErrCollectionNotFound)
}

func TestBuildIndex_StorageFailureLeavesOldEntries(t *testing.T) {
	base := storage.NewMemoryStorage()
	cache := entitycache.NewMemoryCache()
	cache.Put("paris", parisSnapshot())

	ctx := context.Background()
	_, err := New(base, cache, nil).BuildIndex(ctx, "paris")
	require.NoError(t, err)
	before := entryIDs(t, base, "paris")

	inv := &countingInvalidator{}
	idx := New(&faultyStorage{Storage: base, failCollection: "paris"}, cache, &Config{Invalidator: inv})
	_, err = idx.BuildIndex(ctx, "paris")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, int32(0), inv.calls.Load())

	// The failed batch was rolled back as a whole
	assert.Equal(t, before, entryIDs(t, base, "paris"))
}

func TestRebuildAll_Success(t *testing.T) {
	store := setupTestStorage(t)
	cache := entitycache.NewMemoryCache()
	cache.Put("paris", parisSnapshot())
	cache.Put("rome", romeSnapshot())
	inv := &countingInvalidator{}
	idx := New(store, cache, &Config{Invalidator: inv})

	ctx := context.Background()
	total, err := idx.RebuildAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	assert.Equal(t, int32(1), inv.calls.Load())

	count, err := store.CountEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, count)

	_, err = store.GetMeta(ctx, storage.MetaLastRebuild)
	assert.NoError(t, err)
}

func TestRebuildAll_DropsVanishedCollections(t *testing.T) {
	store := storage.NewMemoryStorage()
	cache := entitycache.NewMemoryCache()
	cache.Put("paris", parisSnapshot())
	cache.Put("rome", romeSnapshot())
	idx := New(store, cache, nil)

	ctx := context.Background()
	_, err := idx.RebuildAll(ctx)
	require.NoError(t, err)

	cache.Delete("rome")
	total, err := idx.RebuildAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Empty(t, entryIDs(t, store, "rome"))

	_, err = store.GetMeta(ctx, storage.LastIndexedKey("rome"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRebuildAll_SkipsFailingCollection(t *testing.T) {
	tests := []struct {
		name  string
		store func(storage.Storage) storage.Storage
		cache func(entitycache.Cache) entitycache.Cache
	}{
		{
			name:  "cache failure",
			store: func(s storage.Storage) storage.Storage { return s },
			cache: func(c entitycache.Cache) entitycache.Cache {
				return &faultyCache{Cache: c, failing: map[string]bool{"paris": true}}
			},
		},
		{
			name: "storage failure",
			store: func(s storage.Storage) storage.Storage {
				return &faultyStorage{Storage: s, failCollection: "paris"}
			},
			cache: func(c entitycache.Cache) entitycache.Cache { return c },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			base := storage.NewMemoryStorage()
			mem := entitycache.NewMemoryCache()
			mem.Put("paris", parisSnapshot())
			mem.Put("rome", romeSnapshot())

			idx := New(tt.store(base), tt.cache(mem), &Config{
				Logger: slog.New(slog.NewTextHandler(&logs, nil)),
			})

			total, err := idx.RebuildAll(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 2, total, "only rome's entries are counted")
			assert.Empty(t, entryIDs(t, base, "paris"))
			assert.Len(t, entryIDs(t, base, "rome"), 2)
			assert.Contains(t, logs.String(), "skipping collection")
			assert.Contains(t, logs.String(), "collection=paris")
		})
	}
}

func TestRebuildAll_ContextCancellation(t *testing.T) {
	store := storage.NewMemoryStorage()
	cache := entitycache.NewMemoryCache()
	cache.Put("paris", parisSnapshot())
	idx := New(store, cache, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.RebuildAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = store.GetMeta(context.Background(), storage.MetaLastRebuild)
	assert.ErrorIs(t, err, storage.ErrNotFound, "a cancelled rebuild is not recorded")
}

// blockingCache parks CollectionIDs until released
type blockingCache struct {
	entitycache.Cache
	entered chan struct{}
	release chan struct{}
}

func (c *blockingCache) CollectionIDs(ctx context.Context) ([]string, error) {
	close(c.entered)
	<-c.release
	return c.Cache.CollectionIDs(ctx)
}

func TestRebuildAll_RejectsOverlap(t *testing.T) {
	cache := &blockingCache{
		Cache:   entitycache.NewMemoryCache(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	idx := New(storage.NewMemoryStorage(), cache, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := idx.RebuildAll(context.Background())
		assert.NoError(t, err)
	}()

	<-cache.entered
	assert.True(t, idx.Rebuilding())

	_, err := idx.RebuildAll(context.Background())
	assert.ErrorIs(t, err, ErrRebuildInProgress)

	close(cache.release)
	wg.Wait()
	assert.False(t, idx.Rebuilding())
}

func TestRemoveCollection(t *testing.T) {
	store := setupTestStorage(t)
	cache := entitycache.NewMemoryCache()
	cache.Put("paris", parisSnapshot())
	cache.Put("rome", romeSnapshot())
	inv := &countingInvalidator{}
	idx := New(store, cache, &Config{Invalidator: inv})

	ctx := context.Background()
	_, err := idx.BuildIndex(ctx, "paris")
	require.NoError(t, err)
	_, err = idx.BuildIndex(ctx, "rome")
	require.NoError(t, err)

	n, err := idx.RemoveCollection(ctx, "paris")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, int32(3), inv.calls.Load())

	assert.Empty(t, entryIDs(t, store, "paris"))
	assert.Len(t, entryIDs(t, store, "rome"), 2)

	_, err = store.GetMeta(ctx, storage.LastIndexedKey("paris"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.GetMeta(ctx, storage.LastIndexedKey("rome"))
	assert.NoError(t, err)

	_, err = idx.RemoveCollection(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyCollectionID)
}

func TestNeedsRebuild(t *testing.T) {
	store := storage.NewMemoryStorage()
	cache := entitycache.NewMemoryCache()
	cache.Put("paris", parisSnapshot())
	idx := New(store, cache, nil)

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	idx.now = func() time.Time { return clock }

	ctx := context.Background()

	// Empty index
	stale, err := idx.NeedsRebuild(ctx)
	require.NoError(t, err)
	assert.True(t, stale)

	// Entries but never rebuilt
	_, err = idx.BuildIndex(ctx, "paris")
	require.NoError(t, err)
	stale, err = idx.NeedsRebuild(ctx)
	require.NoError(t, err)
	assert.True(t, stale)

	// Fresh
	_, err = idx.RebuildAll(ctx)
	require.NoError(t, err)
	stale, err = idx.NeedsRebuild(ctx)
	require.NoError(t, err)
	assert.False(t, stale)

	clock = clock.Add(RebuildInterval)
	stale, err = idx.NeedsRebuild(ctx)
	require.NoError(t, err)
	assert.False(t, stale, "exactly the interval is still fresh")

	clock = clock.Add(time.Second)
	stale, err = idx.NeedsRebuild(ctx)
	require.NoError(t, err)
	assert.True(t, stale)

	// Garbage timestamp counts as stale
	require.NoError(t, store.SetMeta(ctx, storage.MetaLastRebuild, "yesterday"))
	stale, err = idx.NeedsRebuild(ctx)
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestIndexLock_ConcurrentAcquisition(t *testing.T) {
	tests := []struct {
		name     string
		testFunc func(t *testing.T)
	}{
		{
			name: "TryAcquire succeeds when lock is available",
			testFunc: func(t *testing.T) {
				var lock IndexLock
				assert.True(t, lock.TryAcquire(), "TryAcquire should succeed when lock is available")
				assert.True(t, lock.Held())
				lock.Release()
				assert.False(t, lock.Held())
			},
		},
		{
			name: "TryAcquire fails when lock is held",
			testFunc: func(t *testing.T) {
				var lock IndexLock
				require.True(t, lock.TryAcquire(), "First TryAcquire should succeed")
				assert.False(t, lock.TryAcquire(), "Second TryAcquire should fail while lock is held")
				lock.Release()
			},
		},
		{
			name: "Concurrent goroutines attempting acquisition",
			testFunc: func(t *testing.T) {
				var lock IndexLock
				const numGoroutines = 100

				var acquired atomic.Int32
				var wg sync.WaitGroup
				wg.Add(numGoroutines)
				for i := 0; i < numGoroutines; i++ {
					go func() {
						defer wg.Done()
						if lock.TryAcquire() {
							acquired.Add(1)
						}
					}()
				}
				wg.Wait()

				assert.Equal(t, int32(1), acquired.Load(), "Exactly one goroutine should acquire the lock")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.testFunc)
	}
}
