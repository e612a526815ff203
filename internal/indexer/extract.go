package indexer

import (
	"fmt"
	"strings"

	"github.com/dshills/tripsearch-mcp/internal/entitycache"
	"github.com/dshills/tripsearch-mcp/internal/normalizer"
	"github.com/dshills/tripsearch-mcp/pkg/types"
)

// Extracted is the indexable form of one record
type Extracted struct {
	SearchableText string
	Title          string
	Subtitle       string
}

// extractor describes how one entity type is indexed
type extractor struct {
	// fields are the dotted paths concatenated into the searchable text
	fields   []string
	title    func(entitycache.Record) string
	subtitle func(entitycache.Record) string
}

// field returns a display function reading path with a fallback
func field(path, def string) func(entitycache.Record) string {
	return func(r entitycache.Record) string {
		return r.StringOr(path, def)
	}
}

// firstOf returns the first present field among paths
func firstOf(paths ...string) func(entitycache.Record) string {
	return func(r entitycache.Record) string {
		for _, p := range paths {
			if s, ok := r.String(p); ok {
				return s
			}
		}
		return ""
	}
}

var extractors = map[types.EntityType]extractor{
	types.EntityTrip: {
		fields:   []string{"title", "description", "status"},
		title:    field("title", "Untitled Trip"),
		subtitle: field("status", ""),
	},
	types.EntityLocation: {
		fields:   []string{"name", "address", "notes", "category.name"},
		title:    field("name", "Unnamed Location"),
		subtitle: firstOf("address", "category.name"),
	},
	types.EntityActivity: {
		fields:   []string{"name", "description", "notes", "category", "location.name"},
		title:    field("name", "Unnamed Activity"),
		subtitle: firstOf("location.name", "category"),
	},
	types.EntityJournalEntry: {
		fields:   []string{"title", "content", "mood", "weather"},
		title:    field("title", "Journal Entry"),
		subtitle: firstOf("mood", "weather"),
	},
	types.EntityTransportation: {
		fields: []string{
			"type", "departureLocation", "arrivalLocation", "carrier",
			"flightNumber", "notes", "bookingReference",
		},
		title:    transportationTitle,
		subtitle: transportationRoute,
	},
	types.EntityLodging: {
		fields: []string{
			"name", "type", "address", "notes", "bookingReference", "phone", "email",
		},
		title:    field("name", "Unnamed Lodging"),
		subtitle: field("address", ""),
	},
}

func transportationTitle(r entitycache.Record) string {
	carrier, hasCarrier := r.String("carrier")
	flight, hasFlight := r.String("flightNumber")
	switch {
	case hasCarrier && hasFlight:
		return carrier + " " + flight
	case hasCarrier:
		return carrier
	}
	return r.StringOr("type", "Transportation")
}

func transportationRoute(r entitycache.Record) string {
	var parts []string
	for _, p := range []string{"departureLocation", "arrivalLocation"} {
		if s, ok := r.String(p); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " → ")
}

// Extract turns a record into its indexable form. It fails for unknown
// entity types and for records without an id.
func Extract(entityType types.EntityType, record entitycache.Record) (*Extracted, error) {
	ex, ok := extractors[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidEntityType, entityType)
	}
	if record.ID() == "" {
		return nil, types.ErrMissingEntityID
	}

	parts := make([]string, 0, len(ex.fields))
	for _, path := range ex.fields {
		if s, ok := record.String(path); ok {
			parts = append(parts, s)
		}
	}

	return &Extracted{
		SearchableText: normalizer.NormalizeMultiple(parts...),
		Title:          ex.title(record),
		Subtitle:       ex.subtitle(record),
	}, nil
}
