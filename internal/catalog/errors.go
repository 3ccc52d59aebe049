package catalog

import "errors"

// Domain errors for the catalog package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, catalog.ErrEntityNotFound) {
//	    // handle not found case
//	}
var (
	// ErrEntityNotFound is returned when an entity ID is absent from the snapshot.
	ErrEntityNotFound = errors.New("catalog: entity not found")

	// ErrInvalidEntityID is returned when an entity ID is not of the form domain.slug.
	ErrInvalidEntityID = errors.New("catalog: invalid entity id")

	// ErrRefreshFailed is returned when a snapshot refresh could not fetch entities.
	ErrRefreshFailed = errors.New("catalog: refresh failed")
)
