package searcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/tripsearch-mcp/internal/normalizer"
	"github.com/dshills/tripsearch-mcp/internal/scorer"
	"github.com/dshills/tripsearch-mcp/internal/snippet"
	"github.com/dshills/tripsearch-mcp/internal/storage"
	"github.com/dshills/tripsearch-mcp/pkg/types"
)

const (
	DefaultLimit     = 50
	DefaultMinScore  = 1.0
	DefaultCacheSize = 1000
	DefaultCacheTTL  = 1 * time.Hour

	// MinQueryLength is the shortest normalized query that is searched
	MinQueryLength = 2
)

// ErrNegativeMinScore is returned for a minimum score below zero
var ErrNegativeMinScore = errors.New("minimum score cannot be negative")

// SearchOptions controls a search. Zero values take the defaults.
type SearchOptions struct {
	Limit       int                // Default 50
	EntityTypes []types.EntityType // Empty means all types
	MinScore    *float64           // Nil means 1; 0 keeps zero-score entries
	UseCache    bool               // Whether to use query cache
	CacheTTL    time.Duration      // Default 1h
}

// Config contains configuration for the searcher
type Config struct {
	Logger    *slog.Logger
	CacheSize int // Query cache capacity (default: 1000)
}

// cacheEntry represents cached results with expiration time
type cacheEntry struct {
	results   []types.SearchResult
	expiresAt time.Time
}

// Searcher answers queries by scanning stored entries and scoring each one
type Searcher struct {
	storage storage.Storage
	logger  *slog.Logger
	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex
	gen     uint64 // Bumped by InvalidateCache, guarded by cacheMu
	now     func() time.Time
}

// NewSearcher creates a new Searcher instance
func NewSearcher(store storage.Storage, config *Config) *Searcher {
	if config == nil {
		config = &Config{}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	size := config.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}

	// Cache will automatically evict least recently used entries
	cache, err := lru.New[[32]byte, *cacheEntry](size)
	if err != nil {
		// This should never happen with valid size parameter
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Searcher{
		storage: store,
		logger:  logger,
		cache:   cache,
		now:     time.Now,
	}
}

// Search scores every stored entry against query and returns the best
// matches, highest score first
func (s *Searcher) Search(ctx context.Context, query string, opts *SearchOptions) ([]types.SearchResult, error) {
	return s.search(ctx, "", query, opts)
}

// SearchWithin is Search restricted to one collection
func (s *Searcher) SearchWithin(ctx context.Context, collectionID, query string, opts *SearchOptions) ([]types.SearchResult, error) {
	if collectionID == "" {
		return nil, errors.New("collection id is required")
	}
	return s.search(ctx, collectionID, query, opts)
}

// SearchGrouped runs Search and partitions the results by entity type.
// Groups are ordered by size, largest first.
func (s *Searcher) SearchGrouped(ctx context.Context, query string, opts *SearchOptions) (*types.GroupedResults, error) {
	results, err := s.Search(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	return GroupResults(query, results, s.now()), nil
}

// GroupResults partitions results by entity type, keeping their relative
// order within each group
func GroupResults(query string, results []types.SearchResult, timestamp time.Time) *types.GroupedResults {
	byType := make(map[types.EntityType][]types.SearchResult)
	for _, r := range results {
		byType[r.EntityType] = append(byType[r.EntityType], r)
	}

	groups := make([]types.ResultGroup, 0, len(byType))
	for _, entityType := range types.AllEntityTypes {
		if rs, ok := byType[entityType]; ok {
			groups = append(groups, types.ResultGroup{
				EntityType: entityType,
				Label:      entityType.Label(),
				Results:    rs,
			})
		}
	}

	// Ties keep the canonical type order
	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].Results) > len(groups[j].Results)
	})

	return &types.GroupedResults{
		Groups:    groups,
		Total:     len(results),
		Query:     query,
		Timestamp: timestamp,
	}
}

func (s *Searcher) search(ctx context.Context, collectionID, query string, opts *SearchOptions) ([]types.SearchResult, error) {
	req, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	normalizedQuery := normalizer.Normalize(query)
	if utf8.RuneCountInString(normalizedQuery) < MinQueryLength {
		return []types.SearchResult{}, nil
	}

	var key [32]byte
	var gen uint64
	if req.UseCache {
		key = computeQueryHash(collectionID, normalizedQuery, query, req)
		if cached, ok := s.checkCache(key); ok {
			return cached, nil
		}
		gen = s.cacheGeneration()
	}

	var entries []*types.SearchIndexEntry
	if collectionID == "" {
		entries, err = s.storage.ListEntries(ctx)
	} else {
		entries, err = s.storage.ListEntriesByCollection(ctx, collectionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	allowed := make(map[types.EntityType]bool, len(req.EntityTypes))
	for _, t := range req.EntityTypes {
		allowed[t] = true
	}

	results := make([]types.SearchResult, 0)
	for _, entry := range entries {
		if !allowed[entry.EntityType] {
			continue
		}

		score := scorer.CalculateRelevance(query, entry.SearchableText)
		if score < minScore(req) {
			continue
		}

		results = append(results, buildResult(entry, query, normalizedQuery, score))
	}

	// Stable so equal scores keep store order
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > req.Limit {
		results = results[:req.Limit]
	}

	s.logger.Debug("search complete",
		slog.String("query", query),
		slog.String("collection", collectionID),
		slog.Int("scanned", len(entries)),
		slog.Int("results", len(results)))

	if req.UseCache && len(results) > 0 {
		s.storeInCache(key, results, req.CacheTTL, gen)
	}

	return results, nil
}

// buildResult derives the display fields of a hit
func buildResult(entry *types.SearchIndexEntry, query, normalizedQuery string, score float64) types.SearchResult {
	matched := types.MatchedContent
	switch {
	case strings.Contains(normalizer.Normalize(entry.Title), normalizedQuery):
		matched = types.MatchedTitle
	case entry.Subtitle != "" && strings.Contains(normalizer.Normalize(entry.Subtitle), normalizedQuery):
		matched = types.MatchedSubtitle
	}

	source := entry.Subtitle
	if source == "" {
		source = entry.Title
	}
	snip := snippet.ExtractSnippet(source, query, snippet.DefaultMaxLength)

	return types.SearchResult{
		EntityType:   entry.EntityType,
		EntityID:     entry.EntityID,
		CollectionID: entry.CollectionID,
		Title:        entry.Title,
		Subtitle:     entry.Subtitle,
		MatchedField: matched,
		Snippet:      snip.Text,
		MatchStart:   snip.MatchStart,
		MatchEnd:     snip.MatchEnd,
		Score:        score,
		URL:          BuildURL(entry.EntityType, entry.EntityID, entry.CollectionID),
	}
}

// resolveOptions applies defaults and validates entity types
func resolveOptions(opts *SearchOptions) (SearchOptions, error) {
	var req SearchOptions
	if opts != nil {
		req = *opts
	}

	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.MinScore == nil {
		req.MinScore = MinScore(DefaultMinScore)
	} else if *req.MinScore < 0 {
		return req, fmt.Errorf("%w: %v", ErrNegativeMinScore, *req.MinScore)
	}
	if req.CacheTTL <= 0 {
		req.CacheTTL = DefaultCacheTTL
	}

	if len(req.EntityTypes) == 0 {
		req.EntityTypes = types.AllEntityTypes
	} else {
		for _, t := range req.EntityTypes {
			if !t.IsValid() {
				return req, fmt.Errorf("%w: %q", types.ErrInvalidEntityType, t)
			}
		}
	}

	return req, nil
}

// MinScore returns a pointer for SearchOptions.MinScore
func MinScore(v float64) *float64 {
	return &v
}

// minScore reads the score floor of resolved options
func minScore(opts SearchOptions) float64 {
	if opts.MinScore == nil {
		return DefaultMinScore
	}
	return *opts.MinScore
}

// GetStats aggregates per-collection and per-type counts
func (s *Searcher) GetStats(ctx context.Context) (*types.IndexStats, error) {
	entries, err := s.storage.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	stats := &types.IndexStats{
		TotalEntries: len(entries),
		ByCollection: make(map[string]int),
		ByEntityType: make(map[types.EntityType]int),
	}
	for _, entry := range entries {
		stats.ByCollection[entry.CollectionID]++
		stats.ByEntityType[entry.EntityType]++
	}

	value, err := s.storage.GetMeta(ctx, storage.MetaLastRebuild)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		if t, perr := time.Parse(time.RFC3339Nano, value); perr == nil {
			stats.LastRebuild = &t
		} else {
			s.logger.Warn("unreadable rebuild timestamp", slog.String("value", value))
		}
	}

	return stats, nil
}
