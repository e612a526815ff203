// Package indexer builds and maintains the trip search index.
//
// The indexer reads raw records from an entitycache.Cache, extracts the
// searchable text, title and subtitle of each record through a per-type
// extractor table, and writes one entry per record to storage.
//
// # Basic Usage
//
//	idx := indexer.New(store, cache, &indexer.Config{
//	    Logger:      logger,
//	    Invalidator: searcher, // drop cached queries after each change
//	})
//
//	n, err := idx.BuildIndex(ctx, "trip-123")
//	fmt.Printf("Indexed %d records\n", n)
//
// # Lifecycle
//
// BuildIndex replaces a collection's entries in one transaction, so a
// concurrent search sees either the old set or the new one. Running it
// twice yields the same entry ids.
//
// RebuildAll clears the store and builds every collection the cache lists.
// A collection that fails is logged and skipped. Only one RebuildAll runs at
// a time; an overlapping call returns ErrRebuildInProgress. Cancelling the
// context stops before the next collection, never in the middle of one.
//
// RemoveCollection deletes a collection's entries and its build timestamp.
//
// NeedsRebuild reports true when the index is empty, has never been rebuilt,
// or was last rebuilt more than RebuildInterval (24h) ago.
//
// # Extraction
//
// Each entity type lists the fields that make up its searchable text:
//
//	Trip            title, description, status
//	Location        name, address, notes, category.name
//	Activity        name, description, notes, category, location.name
//	JournalEntry    title, content, mood, weather
//	Transportation  type, departureLocation, arrivalLocation, carrier,
//	                flightNumber, notes, bookingReference
//	Lodging         name, type, address, notes, bookingReference, phone, email
//
// Missing display fields fall back to fixed defaults ("Untitled Trip",
// "Journal Entry", ...). A record without an id is skipped.
package indexer
