package entitycache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/tripsearch-mcp/pkg/types"
)

// snapshotExtensions are tried in order when loading a collection
var snapshotExtensions = []string{".json", ".yaml", ".yml"}

// FileCache reads collection snapshots from a directory, one file per
// collection named after the collection id. Files are read on every call
// so edits are picked up by the next build.
type FileCache struct {
	dir string
}

// NewFileCache creates a cache over dir
func NewFileCache(dir string) *FileCache {
	return &FileCache{dir: dir}
}

// Dir returns the snapshot directory
func (c *FileCache) Dir() string {
	return c.dir
}

func (c *FileCache) CollectionIDs(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read snapshot directory %s: %w", c.dir, err)
	}

	seen := make(map[string]bool)
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if !isSnapshotExt(ext) {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ext)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (c *FileCache) Records(ctx context.Context, collectionID string, entityType types.EntityType) ([]Record, error) {
	snapshot, err := c.Load(collectionID)
	if err != nil {
		return nil, err
	}
	return snapshot.Records(entityType)
}

// Load reads and decodes one collection's snapshot
func (c *FileCache) Load(collectionID string) (*Snapshot, error) {
	if collectionID == "" || strings.ContainsAny(collectionID, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrCollectionNotFound, collectionID)
	}

	for _, ext := range snapshotExtensions {
		path := filepath.Join(c.dir, collectionID+ext)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
		}

		var snapshot Snapshot
		if ext == ".json" {
			err = json.Unmarshal(data, &snapshot)
		} else {
			err = yaml.Unmarshal(data, &snapshot)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
		}
		return &snapshot, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collectionID)
}

func isSnapshotExt(ext string) bool {
	for _, e := range snapshotExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
