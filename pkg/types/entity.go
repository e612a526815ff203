package types

import (
	"fmt"
	"strings"
	"time"
)

// EntityType identifies the kind of record an index entry was built from
type EntityType string

const (
	EntityTrip           EntityType = "trip"
	EntityLocation       EntityType = "location"
	EntityActivity       EntityType = "activity"
	EntityJournalEntry   EntityType = "journalEntry"
	EntityTransportation EntityType = "transportation"
	EntityLodging        EntityType = "lodging"
)

// AllEntityTypes lists every supported entity type in indexing order
var AllEntityTypes = []EntityType{
	EntityTrip,
	EntityLocation,
	EntityActivity,
	EntityJournalEntry,
	EntityTransportation,
	EntityLodging,
}

// IsValid reports whether the entity type is one of the supported variants
func (t EntityType) IsValid() bool {
	for _, known := range AllEntityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Label returns the plural display name used for result groups
func (t EntityType) Label() string {
	switch t {
	case EntityTrip:
		return "Trips"
	case EntityLocation:
		return "Locations"
	case EntityActivity:
		return "Activities"
	case EntityJournalEntry:
		return "Journal Entries"
	case EntityTransportation:
		return "Transportation"
	case EntityLodging:
		return "Lodging"
	default:
		return string(t)
	}
}

// Tab returns the collection page tab that displays this entity type.
// Trips have no tab and return an empty string.
func (t EntityType) Tab() string {
	switch t {
	case EntityLocation:
		return "locations"
	case EntityActivity:
		return "activities"
	case EntityJournalEntry:
		return "journal"
	case EntityTransportation:
		return "transportation"
	case EntityLodging:
		return "lodging"
	default:
		return ""
	}
}

// ParseEntityType converts user input into an EntityType.
// Matching is case-insensitive and accepts "journal_entry" as an alias.
func ParseEntityType(s string) (EntityType, error) {
	candidate := strings.ToLower(strings.TrimSpace(s))
	if candidate == "journal_entry" || candidate == "journal" {
		return EntityJournalEntry, nil
	}
	for _, known := range AllEntityTypes {
		if strings.ToLower(string(known)) == candidate {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidEntityType, s)
}

// EntryID builds the composite primary key "entityType:entityId"
func EntryID(entityType EntityType, entityID string) string {
	return string(entityType) + ":" + entityID
}

// SearchIndexEntry is one indexed record
type SearchIndexEntry struct {
	ID             string // entityType:entityId
	EntityType     EntityType
	EntityID       string
	CollectionID   string // Owning trip
	SearchableText string // Normalized concatenation of all indexed fields
	Title          string // Raw display title
	Subtitle       string // Raw display subtitle, empty when absent
	IndexedAt      time.Time
}

// Validate checks if the entry is well formed
func (e *SearchIndexEntry) Validate() error {
	if !e.EntityType.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidEntityType, e.EntityType)
	}

	if e.EntityID == "" {
		return ErrMissingEntityID
	}

	if e.CollectionID == "" {
		return ErrMissingCollectionID
	}

	if e.ID != EntryID(e.EntityType, e.EntityID) {
		return ErrMismatchedEntryID
	}

	return nil
}
