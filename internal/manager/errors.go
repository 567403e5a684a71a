package manager

import "errors"

// Domain errors for the manager package.
var (
	// ErrAreaNotFound is returned when an area id is not in the registry.
	ErrAreaNotFound = errors.New("manager: area not found")

	// ErrRenameFailed is returned when a single-entity rename was attempted
	// and the host rejected it.
	ErrRenameFailed = errors.New("manager: rename failed")
)
