package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/tripsearch-mcp/pkg/types"
)

func collectionIDProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

func entityTypeNames() []string {
	names := make([]string, len(types.AllEntityTypes))
	for i, t := range types.AllEntityTypes {
		names[i] = string(t)
	}
	return names
}

// searchProperties are shared by search and search_grouped
func searchProperties() map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"type":        "string",
			"description": "Search text; diacritics and punctuation are ignored, and queries under 2 characters return no results",
		},
		"limit": map[string]interface{}{
			"type":        "integer",
			"description": "Maximum number of results to return (1-500)",
			"default":     50,
			"minimum":     1,
			"maximum":     500,
		},
		"entity_types": map[string]interface{}{
			"type":        "array",
			"description": "Restrict results to these entity types (default: all)",
			"items": map[string]interface{}{
				"type": "string",
				"enum": entityTypeNames(),
			},
		},
		"min_score": map[string]interface{}{
			"type":        "number",
			"description": "Minimum relevance score (default 1; 0 keeps every entry of the selected types; an exact match scores 100)",
			"minimum":     0,
		},
	}
}

// buildIndexTool returns the tool definition for build_index
func buildIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "build_index",
		Description: "Index every cached record of one trip, replacing its previous entries",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"collection_id": collectionIDProperty("Trip (collection) id to index"),
			},
			Required: []string{"collection_id"},
		},
	}
}

// rebuildAllTool returns the tool definition for rebuild_all
func rebuildAllTool() mcp.Tool {
	return mcp.Tool{
		Name:        "rebuild_all",
		Description: "Clear the search index and rebuild it from every cached trip",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// removeCollectionTool returns the tool definition for remove_collection
func removeCollectionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "remove_collection",
		Description: "Remove one trip and all of its records from the search index",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"collection_id": collectionIDProperty("Trip (collection) id to remove"),
			},
			Required: []string{"collection_id"},
		},
	}
}

// searchTool returns the tool definition for search
func searchTool() mcp.Tool {
	props := searchProperties()
	props["collection_id"] = collectionIDProperty("Only search inside this trip")
	props["highlight_tag"] = map[string]interface{}{
		"type":        "string",
		"description": "HTML tag wrapped around matches in the highlighted snippet",
		"default":     "mark",
	}

	return mcp.Tool{
		Name:        "search",
		Description: "Full-text search across trips, locations, activities, journal entries, transportation and lodging",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: props,
			Required:   []string{"query"},
		},
	}
}

// searchGroupedTool returns the tool definition for search_grouped
func searchGroupedTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_grouped",
		Description: "Full-text search with results grouped by entity type, largest group first",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: searchProperties(),
			Required:   []string{"query"},
		},
	}
}

// getStatsTool returns the tool definition for get_stats
func getStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_stats",
		Description: "Report index entry counts per trip and per entity type, and the last rebuild time",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// needsRebuildTool returns the tool definition for needs_rebuild
func needsRebuildTool() mcp.Tool {
	return mcp.Tool{
		Name:        "needs_rebuild",
		Description: "Report whether the index is empty or older than 24 hours",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
