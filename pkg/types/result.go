package types

import "time"

// MatchedField names the part of an entry that matched the query
type MatchedField string

const (
	MatchedTitle    MatchedField = "title"
	MatchedSubtitle MatchedField = "subtitle"
	MatchedContent  MatchedField = "content"
)

// SearchResult represents a single search hit. It is derived at query time
// and never persisted.
type SearchResult struct {
	EntityType   EntityType
	EntityID     string
	CollectionID string
	Title        string
	Subtitle     string
	MatchedField MatchedField
	Snippet      string
	MatchStart   int // Rune offset of the match inside Snippet, -1 when unanchored
	MatchEnd     int
	Score        float64
	URL          string
}

// ResultGroup holds the results for one entity type
type ResultGroup struct {
	EntityType EntityType
	Label      string
	Results    []SearchResult
}

// GroupedResults is the response of a grouped search
type GroupedResults struct {
	Groups    []ResultGroup
	Total     int
	Query     string
	Timestamp time.Time
}

// IndexStats contains diagnostic counts about the index
type IndexStats struct {
	TotalEntries int
	ByCollection map[string]int
	ByEntityType map[EntityType]int
	LastRebuild  *time.Time // Nil when no rebuild has been recorded
}
