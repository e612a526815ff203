// Package types provides shared type definitions for the trip search index.
//
// This package defines domain types used across the indexer, searcher and
// MCP surface: the six indexed entity kinds, stored index entries, query-time
// search results and diagnostic statistics.
//
// # Entity Types
//
// EntityType enumerates the record kinds the index understands:
//
//	types.EntityTrip, types.EntityLocation, types.EntityActivity,
//	types.EntityJournalEntry, types.EntityTransportation, types.EntityLodging
//
// Every index entry is keyed by a composite id of the form "entityType:entityId":
//
//	id := types.EntryID(types.EntityLocation, "loc-42") // "location:loc-42"
//
// # Index Entries
//
// SearchIndexEntry is the persisted unit. SearchableText is always normalized
// text, while Title and Subtitle keep the raw display strings:
//
//	entry := &types.SearchIndexEntry{
//	    ID:             types.EntryID(types.EntityTrip, "trip-1"),
//	    EntityType:     types.EntityTrip,
//	    EntityID:       "trip-1",
//	    CollectionID:   "trip-1",
//	    SearchableText: "paris adventure eiffel tower visit planned",
//	    Title:          "Paris Adventure",
//	    Subtitle:       "Planned",
//	}
//
//	if err := entry.Validate(); err != nil {
//	    return err
//	}
//
// # Search Results
//
// SearchResult is derived at query time and never stored. Scores are
// non-negative; an exact normalized match scores 100.
package types
