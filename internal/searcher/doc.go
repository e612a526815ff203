// Package searcher answers full-text queries over the trip search index.
//
// A search is a full scan: every stored entry (or every entry of one
// collection, for SearchWithin) is scored against the query, entries below
// the minimum score are dropped, and the rest are sorted by score, highest
// first. Queries that normalize to fewer than two characters return no
// results and no error.
//
// # Basic Usage
//
//	s := searcher.NewSearcher(store, &searcher.Config{Logger: logger})
//	defer s.Close()
//
//	results, err := s.Search(ctx, "eiffel", &searcher.SearchOptions{
//	    Limit:       20,
//	    EntityTypes: []types.EntityType{types.EntityTrip, types.EntityLocation},
//	})
//	for _, r := range results {
//	    fmt.Printf("%s %s (%.0f) %s\n", r.EntityType, r.Title, r.Score, r.URL)
//	}
//
// # Result Fields
//
// MatchedField is "title" when the normalized title contains the normalized
// query, "subtitle" when the subtitle does, and "content" otherwise. The
// snippet is cut from the subtitle, or from the title when there is no
// subtitle. Snippet offsets are best effort and may be -1.
//
// URLs follow a fixed template: trips link to /collections/{id}, every other
// entity to /collections/{tripId}?tab={tab}&highlight={id}.
//
// # Grouping
//
// SearchGrouped partitions the ranked results by entity type. Groups are
// ordered by size, largest first; results keep their rank inside a group.
//
// # Query Cache
//
// With UseCache set, results are kept in an LRU cache (1000 queries by
// default) until CacheTTL passes or InvalidateCache is called. The indexer
// calls InvalidateCache after every committed change, so cached results never
// outlive the entries they came from.
package searcher
