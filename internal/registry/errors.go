package registry

import "errors"

// Domain errors for the registry package.
var (
	// ErrEntityNotFound is returned when an entity identifier does not exist.
	ErrEntityNotFound = errors.New("registry: entity not found")

	// ErrEntityExists is returned when a rename targets an identifier already in use.
	ErrEntityExists = errors.New("registry: entity already exists")

	// ErrInvalidIdentifier is returned when an identifier is not of the form domain.slug.
	ErrInvalidIdentifier = errors.New("registry: invalid identifier")

	// ErrDomainChange is returned when a rename would move an entity to another domain.
	ErrDomainChange = errors.New("registry: rename cannot change domain")

	// ErrInvalidSnapshot is returned when a snapshot file cannot be decoded.
	ErrInvalidSnapshot = errors.New("registry: invalid snapshot")
)
