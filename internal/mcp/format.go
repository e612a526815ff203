package mcp

import (
	"time"

	"github.com/dshills/tripsearch-mcp/internal/snippet"
	"github.com/dshills/tripsearch-mcp/pkg/types"
)

// FormatResult renders one hit in the wire shape shared by the MCP tools and
// the CLI, adding an HTML-safe highlighted snippet
func FormatResult(r types.SearchResult, query, tag string) map[string]interface{} {
	item := map[string]interface{}{
		"entity_type":   string(r.EntityType),
		"entity_id":     r.EntityID,
		"collection_id": r.CollectionID,
		"title":         r.Title,
		"matched_field": string(r.MatchedField),
		"snippet":       r.Snippet,
		"highlighted":   snippet.HighlightMatches(r.Snippet, query, tag),
		"score":         r.Score,
		"url":           r.URL,
	}
	if r.Subtitle != "" {
		item["subtitle"] = r.Subtitle
	}
	if r.MatchStart >= 0 {
		item["match_start"] = r.MatchStart
		item["match_end"] = r.MatchEnd
	}
	return item
}

// FormatResults renders a ranked result list
func FormatResults(results []types.SearchResult, query, tag string) []map[string]interface{} {
	items := make([]map[string]interface{}, len(results))
	for i, r := range results {
		items[i] = FormatResult(r, query, tag)
	}
	return items
}

// FormatGrouped renders grouped results
func FormatGrouped(grouped *types.GroupedResults, tag string) map[string]interface{} {
	groups := make([]map[string]interface{}, len(grouped.Groups))
	for i, g := range grouped.Groups {
		groups[i] = map[string]interface{}{
			"entity_type": string(g.EntityType),
			"label":       g.Label,
			"count":       len(g.Results),
			"results":     FormatResults(g.Results, grouped.Query, tag),
		}
	}

	return map[string]interface{}{
		"query":     grouped.Query,
		"total":     grouped.Total,
		"timestamp": grouped.Timestamp.UTC().Format(time.RFC3339),
		"groups":    groups,
	}
}

// FormatStats renders index statistics; last_rebuild is null until the first
// full rebuild
func FormatStats(stats *types.IndexStats) map[string]interface{} {
	byType := make(map[string]int, len(stats.ByEntityType))
	for t, n := range stats.ByEntityType {
		byType[string(t)] = n
	}
	byCollection := stats.ByCollection
	if byCollection == nil {
		byCollection = map[string]int{}
	}

	response := map[string]interface{}{
		"total_entries":  stats.TotalEntries,
		"by_collection":  byCollection,
		"by_entity_type": byType,
		"last_rebuild":   nil,
	}
	if stats.LastRebuild != nil {
		response["last_rebuild"] = stats.LastRebuild.UTC().Format(time.RFC3339)
	}
	return response
}
