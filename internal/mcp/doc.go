// Package mcp implements the Model Context Protocol (MCP) server for tripsearch.
//
// The server exposes the trip search index to MCP clients over stdio:
//   - build_index: Re-index one collection from the entity cache
//   - rebuild_all: Clear the index and re-index every cached collection
//   - remove_collection: Drop every entry of a collection
//   - search: Ranked search across all collections or within one
//   - search_grouped: Search with results bucketed by entity type
//   - get_stats: Entry counts and last rebuild time
//   - needs_rebuild: Whether the index is empty or older than a day
//
// # Tool: search
//
//	Request:
//	{
//	  "name": "search",
//	  "arguments": {
//	    "query": "eiffel",
//	    "limit": 20,
//	    "entity_types": ["trip", "location"],
//	    "collection_id": "paris"
//	  }
//	}
//
//	Response:
//	{
//	  "query": "eiffel",
//	  "total": 1,
//	  "results": [
//	    {
//	      "entity_type": "trip",
//	      "entity_id": "paris",
//	      "collection_id": "paris",
//	      "title": "Paris Adventure",
//	      "matched_field": "content",
//	      "subtitle": "Planned",
//	      "snippet": "Planned",
//	      "highlighted": "Planned",
//	      "score": 35,
//	      "url": "/collections/paris"
//	    }
//	  ]
//	}
//
// Highlighted snippets are HTML-escaped before the match tags are inserted.
//
// # Error Handling
//
// Handlers return *MCPError values, which the framework encodes as JSON-RPC
// errors:
//   - -32602: Invalid params (missing collection_id or query, bad limit, unknown entity type)
//   - -32603: Internal error (storage, entity cache)
//   - -32001: Collection not found in the entity cache
//   - -32002: A rebuild is already running
//
// A blank or one-character query is not an error; it returns no results.
//
// # Logging
//
// Stdout carries the protocol, so the server logs to the slog.Logger given in
// Options, which the CLI points at stderr.
package mcp
