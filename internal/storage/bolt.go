package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/dshills/tripsearch-mcp/pkg/types"
)

var (
	bucketEntries     = []byte("entries")
	bucketCollections = []byte("collections")
	bucketMeta        = []byte("meta")
)

// BoltStorage implements the Storage interface on a bbolt file. Entries are
// stored as JSON under their id; each collection gets a nested bucket under
// "collections" listing its entry ids.
type BoltStorage struct {
	db *bbolt.DB
}

// boltRecord is the on-disk form of an entry
type boltRecord struct {
	ID             string `json:"id"`
	EntityType     string `json:"entityType"`
	EntityID       string `json:"entityId"`
	CollectionID   string `json:"collectionId"`
	SearchableText string `json:"searchableText"`
	Title          string `json:"title"`
	Subtitle       string `json:"subtitle,omitempty"`
	IndexedAt      int64  `json:"indexedAt"`
}

func toBoltRecord(e *types.SearchIndexEntry) boltRecord {
	return boltRecord{
		ID:             e.ID,
		EntityType:     string(e.EntityType),
		EntityID:       e.EntityID,
		CollectionID:   e.CollectionID,
		SearchableText: e.SearchableText,
		Title:          e.Title,
		Subtitle:       e.Subtitle,
		IndexedAt:      e.IndexedAt.UnixMilli(),
	}
}

func (r boltRecord) entry() *types.SearchIndexEntry {
	return &types.SearchIndexEntry{
		ID:             r.ID,
		EntityType:     types.EntityType(r.EntityType),
		EntityID:       r.EntityID,
		CollectionID:   r.CollectionID,
		SearchableText: r.SearchableText,
		Title:          r.Title,
		Subtitle:       r.Subtitle,
		IndexedAt:      time.UnixMilli(r.IndexedAt).UTC(),
	}
}

// NewBoltStorage opens (or creates) a bbolt database at path
func NewBoltStorage(path string) (*BoltStorage, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	s := &BoltStorage{db: db}
	if err := s.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *BoltStorage) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return createBuckets(tx)
	})
}

func createBuckets(tx *bbolt.Tx) error {
	for _, name := range [][]byte{bucketEntries, bucketCollections, bucketMeta} {
		if _, err := tx.CreateBucketIfNotExists(name); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database file
func (s *BoltStorage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginTx starts a writable bolt transaction. bbolt allows one writer at a
// time, so a second BeginTx blocks until the first ends.
func (s *BoltStorage) BeginTx(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tx, err := s.db.Begin(true)
	if err != nil {
		return nil, err
	}
	return &boltTx{tx: tx}, nil
}

func (s *BoltStorage) GetEntry(ctx context.Context, id string) (*types.SearchIndexEntry, error) {
	var entry *types.SearchIndexEntry
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		entry, err = boltGetEntry(tx, id)
		return err
	})
	return entry, err
}

func (s *BoltStorage) PutEntry(ctx context.Context, entry *types.SearchIndexEntry) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return boltPutEntry(tx, entry)
	})
}

func (s *BoltStorage) DeleteEntry(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return boltDeleteEntry(tx, id)
	})
}

func (s *BoltStorage) ListEntries(ctx context.Context) ([]*types.SearchIndexEntry, error) {
	var entries []*types.SearchIndexEntry
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		entries, err = boltListEntries(tx)
		return err
	})
	return entries, err
}

func (s *BoltStorage) ListEntriesByCollection(ctx context.Context, collectionID string) ([]*types.SearchIndexEntry, error) {
	var entries []*types.SearchIndexEntry
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		entries, err = boltListByCollection(tx, collectionID)
		return err
	})
	return entries, err
}

func (s *BoltStorage) DeleteCollection(ctx context.Context, collectionID string) (int, error) {
	var n int
	err := s.db.Update(func(tx *bbolt.Tx) error {
		var err error
		n, err = boltDeleteCollection(tx, collectionID)
		return err
	})
	return n, err
}

func (s *BoltStorage) CountEntries(ctx context.Context) (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = boltCount(tx)
		return nil
	})
	return n, err
}

func (s *BoltStorage) Clear(ctx context.Context) error {
	return s.db.Update(boltClear)
}

func (s *BoltStorage) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		value, err = boltGetMeta(tx, key)
		return err
	})
	return value, err
}

func (s *BoltStorage) SetMeta(ctx context.Context, key, value string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put([]byte(key), []byte(value))
	})
}

func (s *BoltStorage) DeleteMeta(ctx context.Context, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Delete([]byte(key))
	})
}

// Bucket operations shared by BoltStorage and boltTx

func boltGetEntry(tx *bbolt.Tx, id string) (*types.SearchIndexEntry, error) {
	raw := tx.Bucket(bucketEntries).Get([]byte(id))
	if raw == nil {
		return nil, ErrNotFound
	}
	var rec boltRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode entry %s: %w", id, err)
	}
	return rec.entry(), nil
}

func boltPutEntry(tx *bbolt.Tx, entry *types.SearchIndexEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid entry %s: %w", entry.ID, err)
	}
	if entry.IndexedAt.IsZero() {
		entry.IndexedAt = time.Now().UTC()
	}

	// Drop the id from its previous collection when it moves
	if prev, err := boltGetEntry(tx, entry.ID); err == nil && prev.CollectionID != entry.CollectionID {
		if b := tx.Bucket(bucketCollections).Bucket([]byte(prev.CollectionID)); b != nil {
			if err := b.Delete([]byte(entry.ID)); err != nil {
				return err
			}
		}
	}

	raw, err := json.Marshal(toBoltRecord(entry))
	if err != nil {
		return fmt.Errorf("failed to encode entry %s: %w", entry.ID, err)
	}
	if err := tx.Bucket(bucketEntries).Put([]byte(entry.ID), raw); err != nil {
		return err
	}

	coll, err := tx.Bucket(bucketCollections).CreateBucketIfNotExists([]byte(entry.CollectionID))
	if err != nil {
		return err
	}
	return coll.Put([]byte(entry.ID), []byte(entry.EntityType))
}

func boltDeleteEntry(tx *bbolt.Tx, id string) error {
	prev, err := boltGetEntry(tx, id)
	if err == ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	if b := tx.Bucket(bucketCollections).Bucket([]byte(prev.CollectionID)); b != nil {
		if err := b.Delete([]byte(id)); err != nil {
			return err
		}
	}
	return tx.Bucket(bucketEntries).Delete([]byte(id))
}

func boltListEntries(tx *bbolt.Tx) ([]*types.SearchIndexEntry, error) {
	entries := make([]*types.SearchIndexEntry, 0)
	// bbolt iterates keys in byte order, which matches ORDER BY id
	err := tx.Bucket(bucketEntries).ForEach(func(k, v []byte) error {
		var rec boltRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("failed to decode entry %s: %w", k, err)
		}
		entries = append(entries, rec.entry())
		return nil
	})
	return entries, err
}

func boltListByCollection(tx *bbolt.Tx, collectionID string) ([]*types.SearchIndexEntry, error) {
	entries := make([]*types.SearchIndexEntry, 0)
	coll := tx.Bucket(bucketCollections).Bucket([]byte(collectionID))
	if coll == nil {
		return entries, nil
	}
	err := coll.ForEach(func(k, _ []byte) error {
		entry, err := boltGetEntry(tx, string(k))
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})
	return entries, err
}

func boltDeleteCollection(tx *bbolt.Tx, collectionID string) (int, error) {
	collections := tx.Bucket(bucketCollections)
	coll := collections.Bucket([]byte(collectionID))
	if coll == nil {
		return 0, nil
	}

	var ids [][]byte
	if err := coll.ForEach(func(k, _ []byte) error {
		ids = append(ids, append([]byte(nil), k...))
		return nil
	}); err != nil {
		return 0, err
	}

	entries := tx.Bucket(bucketEntries)
	for _, id := range ids {
		if err := entries.Delete(id); err != nil {
			return 0, err
		}
	}
	if err := collections.DeleteBucket([]byte(collectionID)); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func boltCount(tx *bbolt.Tx) int {
	n := 0
	c := tx.Bucket(bucketEntries).Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		n++
	}
	return n
}

func boltClear(tx *bbolt.Tx) error {
	for _, name := range [][]byte{bucketEntries, bucketCollections, bucketMeta} {
		if err := tx.DeleteBucket(name); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
	}
	return createBuckets(tx)
}

func boltGetMeta(tx *bbolt.Tx, key string) (string, error) {
	raw := tx.Bucket(bucketMeta).Get([]byte(key))
	if raw == nil {
		return "", ErrNotFound
	}
	return string(raw), nil
}

// boltTx wraps a writable bbolt transaction
type boltTx struct {
	tx   *bbolt.Tx
	done bool
}

func (t *boltTx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	return t.tx.Commit()
}

func (t *boltTx) Rollback() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	return t.tx.Rollback()
}

// active returns the live transaction or ErrTxDone
func (t *boltTx) active() (*bbolt.Tx, error) {
	if t.done {
		return nil, ErrTxDone
	}
	return t.tx, nil
}

func (t *boltTx) GetEntry(ctx context.Context, id string) (*types.SearchIndexEntry, error) {
	tx, err := t.active()
	if err != nil {
		return nil, err
	}
	return boltGetEntry(tx, id)
}

func (t *boltTx) PutEntry(ctx context.Context, entry *types.SearchIndexEntry) error {
	tx, err := t.active()
	if err != nil {
		return err
	}
	return boltPutEntry(tx, entry)
}

func (t *boltTx) DeleteEntry(ctx context.Context, id string) error {
	tx, err := t.active()
	if err != nil {
		return err
	}
	return boltDeleteEntry(tx, id)
}

func (t *boltTx) ListEntries(ctx context.Context) ([]*types.SearchIndexEntry, error) {
	tx, err := t.active()
	if err != nil {
		return nil, err
	}
	return boltListEntries(tx)
}

func (t *boltTx) ListEntriesByCollection(ctx context.Context, collectionID string) ([]*types.SearchIndexEntry, error) {
	tx, err := t.active()
	if err != nil {
		return nil, err
	}
	return boltListByCollection(tx, collectionID)
}

func (t *boltTx) DeleteCollection(ctx context.Context, collectionID string) (int, error) {
	tx, err := t.active()
	if err != nil {
		return 0, err
	}
	return boltDeleteCollection(tx, collectionID)
}

func (t *boltTx) CountEntries(ctx context.Context) (int, error) {
	tx, err := t.active()
	if err != nil {
		return 0, err
	}
	return boltCount(tx), nil
}

func (t *boltTx) Clear(ctx context.Context) error {
	tx, err := t.active()
	if err != nil {
		return err
	}
	return boltClear(tx)
}

func (t *boltTx) GetMeta(ctx context.Context, key string) (string, error) {
	tx, err := t.active()
	if err != nil {
		return "", err
	}
	return boltGetMeta(tx, key)
}

func (t *boltTx) SetMeta(ctx context.Context, key, value string) error {
	tx, err := t.active()
	if err != nil {
		return err
	}
	return tx.Bucket(bucketMeta).Put([]byte(key), []byte(value))
}

func (t *boltTx) DeleteMeta(ctx context.Context, key string) error {
	tx, err := t.active()
	if err != nil {
		return err
	}
	return tx.Bucket(bucketMeta).Delete([]byte(key))
}

func (t *boltTx) Close() error {
	return nil
}

func (t *boltTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, ErrNestedTx
}
