package searcher

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/tripsearch-mcp/pkg/types"
)

// checkCache looks up cached results
func (s *Searcher) checkCache(key [32]byte) ([]types.SearchResult, bool) {
	now := s.now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(key)
	if !found {
		s.cacheMu.RUnlock()
		return nil, false
	}

	// Check if entry has expired while holding read lock to avoid race condition
	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		// Remove expired entry - need write lock
		s.cacheMu.Lock()
		s.cache.Remove(key)
		s.cacheMu.Unlock()
		return nil, false
	}

	results := copyResults(entry.results)
	s.cacheMu.RUnlock()

	return results, true
}

// cacheGeneration returns the current invalidation generation. A search
// reads it before listing entries and hands it back to storeInCache.
func (s *Searcher) cacheGeneration() uint64 {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.gen
}

// storeInCache saves search results to cache. Results computed before the
// latest invalidation (gen is behind) are dropped.
func (s *Searcher) storeInCache(key [32]byte, results []types.SearchResult, ttl time.Duration, gen uint64) {
	entry := &cacheEntry{
		results:   copyResults(results),
		expiresAt: s.now().Add(ttl),
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if gen != s.gen {
		return
	}
	s.cache.Add(key, entry)
}

// copyResults copies a result slice. SearchResult holds only value fields,
// so copying the elements is a deep copy.
func copyResults(src []types.SearchResult) []types.SearchResult {
	dst := make([]types.SearchResult, len(src))
	copy(dst, src)
	return dst
}

// computeQueryHash computes a unique hash for a search. The raw query is part
// of the key because snippets are cut from raw text.
func computeQueryHash(collectionID, normalizedQuery, rawQuery string, opts SearchOptions) [32]byte {
	typeNames := make([]string, len(opts.EntityTypes))
	for i, t := range opts.EntityTypes {
		typeNames[i] = string(t)
	}

	var data strings.Builder
	data.WriteString(collectionID)
	data.WriteString("|")
	data.WriteString(normalizedQuery)
	data.WriteString("|")
	data.WriteString(rawQuery)
	data.WriteString("|")
	data.WriteString(fmt.Sprintf("%d", opts.Limit))
	data.WriteString("|")
	data.WriteString(strings.Join(typeNames, ","))
	data.WriteString("|")
	data.WriteString(fmt.Sprintf("%.2f", minScore(opts)))

	return sha256.Sum256([]byte(data.String()))
}

// InvalidateCache drops every cached query. The indexer calls it after each
// committed change.
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.gen++
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// CacheLen returns the number of cached queries
func (s *Searcher) CacheLen() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache.Len()
}

// Close releases the query cache. The storage is owned by the caller.
func (s *Searcher) Close() error {
	s.InvalidateCache()
	return nil
}
