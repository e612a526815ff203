package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dshills/tripsearch-mcp/pkg/types"
)

// memoryState is the full contents of a MemoryStorage
type memoryState struct {
	entries map[string]types.SearchIndexEntry
	meta    map[string]string
}

func newMemoryState() *memoryState {
	return &memoryState{
		entries: make(map[string]types.SearchIndexEntry),
		meta:    make(map[string]string),
	}
}

func (m *memoryState) clone() *memoryState {
	c := &memoryState{
		entries: make(map[string]types.SearchIndexEntry, len(m.entries)),
		meta:    make(map[string]string, len(m.meta)),
	}
	for k, v := range m.entries {
		c.entries[k] = v
	}
	for k, v := range m.meta {
		c.meta[k] = v
	}
	return c
}

func (m *memoryState) get(id string) (*types.SearchIndexEntry, error) {
	e, ok := m.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (m *memoryState) put(entry *types.SearchIndexEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid entry %s: %w", entry.ID, err)
	}
	if entry.IndexedAt.IsZero() {
		entry.IndexedAt = time.Now().UTC()
	}
	m.entries[entry.ID] = *entry
	return nil
}

func (m *memoryState) list(match func(*types.SearchIndexEntry) bool) []*types.SearchIndexEntry {
	entries := make([]*types.SearchIndexEntry, 0, len(m.entries))
	for _, e := range m.entries {
		e := e
		if match == nil || match(&e) {
			entries = append(entries, &e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

func (m *memoryState) deleteCollection(collectionID string) int {
	n := 0
	for id, e := range m.entries {
		if e.CollectionID == collectionID {
			delete(m.entries, id)
			n++
		}
	}
	return n
}

func (m *memoryState) getMeta(key string) (string, error) {
	v, ok := m.meta[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// MemoryStorage is a process-local Storage used by tests and the memory
// backend. A transaction works on a private copy that replaces the live
// state on Commit, so readers see either all of a batch or none of it.
type MemoryStorage struct {
	writeMu sync.Mutex   // held by a writer, including for the life of a Tx
	mu      sync.RWMutex // guards state
	state   *memoryState
}

// NewMemoryStorage creates an empty in-memory store
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{state: newMemoryState()}
}

func (s *MemoryStorage) read(fn func(*memoryState)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.state)
}

func (s *MemoryStorage) write(fn func(*memoryState) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

func (s *MemoryStorage) GetEntry(ctx context.Context, id string) (entry *types.SearchIndexEntry, err error) {
	s.read(func(m *memoryState) { entry, err = m.get(id) })
	return entry, err
}

func (s *MemoryStorage) PutEntry(ctx context.Context, entry *types.SearchIndexEntry) error {
	return s.write(func(m *memoryState) error { return m.put(entry) })
}

func (s *MemoryStorage) DeleteEntry(ctx context.Context, id string) error {
	return s.write(func(m *memoryState) error {
		delete(m.entries, id)
		return nil
	})
}

func (s *MemoryStorage) ListEntries(ctx context.Context) (entries []*types.SearchIndexEntry, err error) {
	s.read(func(m *memoryState) { entries = m.list(nil) })
	return entries, nil
}

func (s *MemoryStorage) ListEntriesByCollection(ctx context.Context, collectionID string) (entries []*types.SearchIndexEntry, err error) {
	s.read(func(m *memoryState) {
		entries = m.list(func(e *types.SearchIndexEntry) bool { return e.CollectionID == collectionID })
	})
	return entries, nil
}

func (s *MemoryStorage) DeleteCollection(ctx context.Context, collectionID string) (n int, err error) {
	err = s.write(func(m *memoryState) error {
		n = m.deleteCollection(collectionID)
		return nil
	})
	return n, err
}

func (s *MemoryStorage) CountEntries(ctx context.Context) (n int, err error) {
	s.read(func(m *memoryState) { n = len(m.entries) })
	return n, nil
}

func (s *MemoryStorage) Clear(ctx context.Context) error {
	return s.write(func(m *memoryState) error {
		*m = *newMemoryState()
		return nil
	})
}

func (s *MemoryStorage) GetMeta(ctx context.Context, key string) (value string, err error) {
	s.read(func(m *memoryState) { value, err = m.getMeta(key) })
	return value, err
}

func (s *MemoryStorage) SetMeta(ctx context.Context, key, value string) error {
	return s.write(func(m *memoryState) error {
		m.meta[key] = value
		return nil
	})
}

func (s *MemoryStorage) DeleteMeta(ctx context.Context, key string) error {
	return s.write(func(m *memoryState) error {
		delete(m.meta, key)
		return nil
	})
}

func (s *MemoryStorage) Close() error {
	return nil
}

// BeginTx blocks other writers until the transaction ends
func (s *MemoryStorage) BeginTx(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.writeMu.Lock()
	s.mu.RLock()
	work := s.state.clone()
	s.mu.RUnlock()
	return &memoryTx{storage: s, state: work}, nil
}

// memoryTx buffers writes in a private copy of the state
type memoryTx struct {
	storage *MemoryStorage
	state   *memoryState
	done    bool
}

func (t *memoryTx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	t.storage.mu.Lock()
	t.storage.state = t.state
	t.storage.mu.Unlock()
	t.storage.writeMu.Unlock()
	return nil
}

func (t *memoryTx) Rollback() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	t.storage.writeMu.Unlock()
	return nil
}

func (t *memoryTx) GetEntry(ctx context.Context, id string) (*types.SearchIndexEntry, error) {
	if t.done {
		return nil, ErrTxDone
	}
	return t.state.get(id)
}

func (t *memoryTx) PutEntry(ctx context.Context, entry *types.SearchIndexEntry) error {
	if t.done {
		return ErrTxDone
	}
	return t.state.put(entry)
}

func (t *memoryTx) DeleteEntry(ctx context.Context, id string) error {
	if t.done {
		return ErrTxDone
	}
	delete(t.state.entries, id)
	return nil
}

func (t *memoryTx) ListEntries(ctx context.Context) ([]*types.SearchIndexEntry, error) {
	if t.done {
		return nil, ErrTxDone
	}
	return t.state.list(nil), nil
}

func (t *memoryTx) ListEntriesByCollection(ctx context.Context, collectionID string) ([]*types.SearchIndexEntry, error) {
	if t.done {
		return nil, ErrTxDone
	}
	return t.state.list(func(e *types.SearchIndexEntry) bool { return e.CollectionID == collectionID }), nil
}

func (t *memoryTx) DeleteCollection(ctx context.Context, collectionID string) (int, error) {
	if t.done {
		return 0, ErrTxDone
	}
	return t.state.deleteCollection(collectionID), nil
}

func (t *memoryTx) CountEntries(ctx context.Context) (int, error) {
	if t.done {
		return 0, ErrTxDone
	}
	return len(t.state.entries), nil
}

func (t *memoryTx) Clear(ctx context.Context) error {
	if t.done {
		return ErrTxDone
	}
	*t.state = *newMemoryState()
	return nil
}

func (t *memoryTx) GetMeta(ctx context.Context, key string) (string, error) {
	if t.done {
		return "", ErrTxDone
	}
	return t.state.getMeta(key)
}

func (t *memoryTx) SetMeta(ctx context.Context, key, value string) error {
	if t.done {
		return ErrTxDone
	}
	t.state.meta[key] = value
	return nil
}

func (t *memoryTx) DeleteMeta(ctx context.Context, key string) error {
	if t.done {
		return ErrTxDone
	}
	delete(t.state.meta, key)
	return nil
}

func (t *memoryTx) Close() error {
	return nil
}

func (t *memoryTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, ErrNestedTx
}
