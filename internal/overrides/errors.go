package overrides

import "errors"

// Domain errors for the overrides package.
var (
	// ErrInvalidID is returned when an override is set for an empty id.
	ErrInvalidID = errors.New("overrides: invalid id")

	// ErrInvalidName is returned when an override is set with a name that
	// holds no letters or digits.
	ErrInvalidName = errors.New("overrides: invalid name")

	// ErrInvalidKind is returned when an override kind is not recognised.
	ErrInvalidKind = errors.New("overrides: invalid kind")

	// ErrSaveFailed is returned when a mutation could not be persisted.
	// The in-memory store still holds the change.
	ErrSaveFailed = errors.New("overrides: save failed")

	// ErrNoDocument is returned by a Backend that has nothing stored yet.
	ErrNoDocument = errors.New("overrides: no document")
)
