// Package entitycache supplies the raw trip records the indexer reads.
//
// A Cache answers two questions: which collections exist, and what records
// of a given entity type a collection holds. Records are opaque field maps;
// the indexer reads them by dotted path (for example "category.name").
//
// MemoryCache holds snapshots in process. FileCache reads one snapshot file
// per collection from a directory:
//
//	snapshots/
//	    trip-123.json
//	    trip-456.yaml
//
// A snapshot file looks like:
//
//	trip:
//	  id: trip-123
//	  title: Paris Adventure
//	  status: Planned
//	locations:
//	  - id: loc-1
//	    name: Cafe de Flore
//	    category:
//	      name: Restaurant
package entitycache
