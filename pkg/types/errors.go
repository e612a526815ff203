package types

import "errors"

// Domain errors for type validation
var (
	ErrInvalidEntityType   = errors.New("invalid entity type")
	ErrMissingEntityID     = errors.New("entity ID is required")
	ErrMissingCollectionID = errors.New("collection ID is required")
	ErrMismatchedEntryID   = errors.New("entry ID does not match entity type and ID")
)
