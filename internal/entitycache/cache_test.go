package entitycache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/tripsearch-mcp/pkg/types"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	cache.Put("c2", &Snapshot{Trip: Record{"id": "c2"}})
	cache.Put("c1", &Snapshot{
		Trip:      Record{"id": "c1", "title": "Paris Adventure"},
		Locations: []Record{{"id": "l1"}, {"id": "l2"}},
	})

	ids, err := cache.CollectionIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, ids)

	trips, err := cache.Records(ctx, "c1", types.EntityTrip)
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, "c1", trips[0].ID())

	locations, err := cache.Records(ctx, "c1", types.EntityLocation)
	require.NoError(t, err)
	assert.Len(t, locations, 2)

	lodgings, err := cache.Records(ctx, "c1", types.EntityLodging)
	require.NoError(t, err)
	assert.Empty(t, lodgings)

	_, err = cache.Records(ctx, "missing", types.EntityTrip)
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	_, err = cache.Records(ctx, "c1", types.EntityType("photo"))
	assert.ErrorIs(t, err, types.ErrInvalidEntityType)

	cache.Delete("c2")
	ids, err = cache.CollectionIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids)
}

func TestSnapshot_NoTrip(t *testing.T) {
	s := &Snapshot{}
	records, err := s.Records(types.EntityTrip)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestFileCache(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "paris.json", `{
		"trip": {"id": "paris", "title": "Paris Adventure", "status": "Planned"},
		"locations": [{"id": "l1", "name": "Cafe de Flore", "category": {"name": "Cafe"}}]
	}`)
	writeFile(t, dir, "rome.yaml", `
trip:
  id: rome
  title: Roman Holiday
journalEntries:
  - id: j1
    content: Visited Paris last year
    mood: happy
`)
	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, ".hidden.json", "{}")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o755))

	ctx := context.Background()
	cache := NewFileCache(dir)
	assert.Equal(t, dir, cache.Dir())

	ids, err := cache.CollectionIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"paris", "rome"}, ids)

	locations, err := cache.Records(ctx, "paris", types.EntityLocation)
	require.NoError(t, err)
	require.Len(t, locations, 1)
	name, ok := locations[0].String("category.name")
	assert.True(t, ok)
	assert.Equal(t, "Cafe", name)

	journal, err := cache.Records(ctx, "rome", types.EntityJournalEntry)
	require.NoError(t, err)
	require.Len(t, journal, 1)
	assert.Equal(t, "j1", journal[0].ID())
	assert.Equal(t, "happy", journal[0].StringOr("mood", ""))

	_, err = cache.Records(ctx, "berlin", types.EntityTrip)
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	_, err = cache.Load("../paris")
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestFileCache_InvalidSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.json", `{"trip": `)

	_, err := NewFileCache(dir).Records(context.Background(), "broken", types.EntityTrip)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse snapshot")
}

func TestFileCache_MissingDir(t *testing.T) {
	ids, err := NewFileCache(filepath.Join(t.TempDir(), "nope")).CollectionIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
