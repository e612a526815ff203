package entitycache

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/dshills/tripsearch-mcp/pkg/types"
)

// ErrCollectionNotFound is returned for a collection the cache does not hold
var ErrCollectionNotFound = errors.New("collection not found")

// Cache is the upstream source of records. It is read-only from the
// indexer's point of view.
type Cache interface {
	// CollectionIDs lists every known collection
	CollectionIDs(ctx context.Context) ([]string, error)

	// Records returns the collection's records of one entity type
	Records(ctx context.Context, collectionID string, entityType types.EntityType) ([]Record, error)
}

// Snapshot is the full cached content of one collection
type Snapshot struct {
	Trip            Record   `json:"trip" yaml:"trip"`
	Locations       []Record `json:"locations" yaml:"locations"`
	Activities      []Record `json:"activities" yaml:"activities"`
	JournalEntries  []Record `json:"journalEntries" yaml:"journalEntries"`
	Transportations []Record `json:"transportations" yaml:"transportations"`
	Lodgings        []Record `json:"lodgings" yaml:"lodgings"`
}

// Records returns the snapshot's records of one entity type
func (s *Snapshot) Records(entityType types.EntityType) ([]Record, error) {
	switch entityType {
	case types.EntityTrip:
		if s.Trip == nil {
			return nil, nil
		}
		return []Record{s.Trip}, nil
	case types.EntityLocation:
		return s.Locations, nil
	case types.EntityActivity:
		return s.Activities, nil
	case types.EntityJournalEntry:
		return s.JournalEntries, nil
	case types.EntityTransportation:
		return s.Transportations, nil
	case types.EntityLodging:
		return s.Lodgings, nil
	default:
		return nil, types.ErrInvalidEntityType
	}
}

// MemoryCache holds snapshots in memory. It is safe for concurrent use.
type MemoryCache struct {
	mu          sync.RWMutex
	collections map[string]*Snapshot
}

// NewMemoryCache creates an empty cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{collections: make(map[string]*Snapshot)}
}

// Put stores or replaces a collection's snapshot
func (c *MemoryCache) Put(collectionID string, snapshot *Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collections[collectionID] = snapshot
}

// Delete forgets a collection
func (c *MemoryCache) Delete(collectionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.collections, collectionID)
}

func (c *MemoryCache) CollectionIDs(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.collections))
	for id := range c.collections {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (c *MemoryCache) Records(ctx context.Context, collectionID string, entityType types.EntityType) ([]Record, error) {
	c.mu.RLock()
	snapshot, ok := c.collections[collectionID]
	c.mu.RUnlock()
	if !ok {
		return nil, ErrCollectionNotFound
	}
	return snapshot.Records(entityType)
}
