package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/tripsearch-mcp/internal/entitycache"
	"github.com/dshills/tripsearch-mcp/internal/indexer"
	"github.com/dshills/tripsearch-mcp/internal/searcher"
	"github.com/dshills/tripsearch-mcp/internal/snippet"
	"github.com/dshills/tripsearch-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeCollectionNotFound = -32001 // Collection is not in the entity cache
	ErrorCodeIndexingInProgress = -32002 // Another rebuild is already running
)

const maxSearchLimit = 500

// handleBuildIndex handles the build_index tool invocation
func (s *Server) handleBuildIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	collectionID, err := requireCollectionID(args)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	n, err := s.indexer.BuildIndex(ctx, collectionID)
	if err != nil {
		return nil, mapIndexError("indexing failed", err)
	}

	response := map[string]interface{}{
		"collection_id":   collectionID,
		"entries_indexed": n,
		"duration_ms":     time.Since(start).Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRebuildAll handles the rebuild_all tool invocation
func (s *Server) handleRebuildAll(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := time.Now()
	n, err := s.indexer.RebuildAll(ctx)
	if err != nil {
		return nil, mapIndexError("rebuild failed", err)
	}

	response := map[string]interface{}{
		"entries_indexed": n,
		"duration_ms":     time.Since(start).Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRemoveCollection handles the remove_collection tool invocation
func (s *Server) handleRemoveCollection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	collectionID, err := requireCollectionID(args)
	if err != nil {
		return nil, err
	}

	n, err := s.indexer.RemoveCollection(ctx, collectionID)
	if err != nil {
		return nil, mapIndexError("remove failed", err)
	}

	response := map[string]interface{}{
		"collection_id":   collectionID,
		"entries_removed": n,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearch handles the search tool invocation
func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, opts, err := parseSearchArgs(args)
	if err != nil {
		return nil, err
	}

	tag := getStringDefault(args, "highlight_tag", snippet.DefaultTag)
	collectionID := getStringDefault(args, "collection_id", "")

	var results []types.SearchResult
	if collectionID != "" {
		results, err = s.searcher.SearchWithin(ctx, collectionID, query, opts)
	} else {
		results, err = s.searcher.Search(ctx, query, opts)
	}
	if err != nil {
		return nil, mapSearchError(err)
	}

	response := map[string]interface{}{
		"query":   query,
		"total":   len(results),
		"results": FormatResults(results, query, tag),
	}
	if collectionID != "" {
		response["collection_id"] = collectionID
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchGrouped handles the search_grouped tool invocation
func (s *Server) handleSearchGrouped(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, opts, err := parseSearchArgs(args)
	if err != nil {
		return nil, err
	}

	grouped, err := s.searcher.SearchGrouped(ctx, query, opts)
	if err != nil {
		return nil, mapSearchError(err)
	}

	response := FormatGrouped(grouped, snippet.DefaultTag)
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStats handles the get_stats tool invocation
func (s *Server) handleGetStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.searcher.GetStats(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get stats", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := FormatStats(stats)
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleNeedsRebuild handles the needs_rebuild tool invocation
func (s *Server) handleNeedsRebuild(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stale, err := s.indexer.NeedsRebuild(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to check index freshness", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"needs_rebuild": stale,
		"rebuilding":    s.indexer.Rebuilding(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

func requireCollectionID(args map[string]interface{}) (string, error) {
	collectionID, ok := args["collection_id"].(string)
	if !ok || strings.TrimSpace(collectionID) == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "collection_id parameter is required", map[string]interface{}{
			"param":  "collection_id",
			"reason": "missing or empty",
		})
	}
	return collectionID, nil
}

// parseSearchArgs validates the arguments shared by search and search_grouped
func parseSearchArgs(args map[string]interface{}) (string, *searcher.SearchOptions, error) {
	// Blank and one-character queries are valid and match nothing
	query, ok := args["query"].(string)
	if !ok {
		return "", nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing or not a string",
		})
	}

	limit := getIntDefault(args, "limit", searcher.DefaultLimit)
	if limit < 1 || limit > maxSearchLimit {
		return "", nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", maxSearchLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	minScore := getFloatDefault(args, "min_score", searcher.DefaultMinScore)
	if minScore < 0 {
		return "", nil, newMCPError(ErrorCodeInvalidParams, "min_score cannot be negative", map[string]interface{}{
			"param": "min_score",
			"value": minScore,
		})
	}

	opts := &searcher.SearchOptions{
		Limit:    limit,
		MinScore: searcher.MinScore(minScore),
		UseCache: true,
	}

	if raw, present := args["entity_types"]; present && raw != nil {
		list, ok := raw.([]interface{})
		if !ok {
			return "", nil, newMCPError(ErrorCodeInvalidParams, "entity_types must be an array of strings", map[string]interface{}{
				"param": "entity_types",
			})
		}
		for _, item := range list {
			name, _ := item.(string)
			entityType, err := types.ParseEntityType(name)
			if err != nil {
				return "", nil, newMCPError(ErrorCodeInvalidParams, "invalid entity type", map[string]interface{}{
					"param":   "entity_types",
					"value":   item,
					"allowed": entityTypeNames(),
				})
			}
			opts.EntityTypes = append(opts.EntityTypes, entityType)
		}
	}

	return query, opts, nil
}

// mapIndexError converts indexer errors to MCP errors
func mapIndexError(message string, err error) error {
	data := map[string]interface{}{"error": err.Error()}
	switch {
	case errors.Is(err, indexer.ErrRebuildInProgress):
		return newMCPError(ErrorCodeIndexingInProgress, "a rebuild is already running", data)
	case errors.Is(err, indexer.ErrEmptyCollectionID):
		return newMCPError(ErrorCodeInvalidParams, message, data)
	case errors.Is(err, entitycache.ErrCollectionNotFound):
		return newMCPError(ErrorCodeCollectionNotFound, "collection not found", data)
	default:
		return newMCPError(ErrorCodeInternalError, message, data)
	}
}

// mapSearchError converts searcher errors to MCP errors
func mapSearchError(err error) error {
	data := map[string]interface{}{"error": err.Error()}
	if errors.Is(err, types.ErrInvalidEntityType) || errors.Is(err, searcher.ErrNegativeMinScore) {
		return newMCPError(ErrorCodeInvalidParams, "invalid search options", data)
	}
	return newMCPError(ErrorCodeInternalError, "search failed", data)
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a number parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	if val, ok := args[key].(int); ok {
		return float64(val)
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
