package review

import "errors"

// Domain errors for the review package.
var (
	// ErrConflictingReviewFilters is returned when both review filters are set.
	ErrConflictingReviewFilters = errors.New("review: skip_reviewed and show_reviewed cannot both be set")

	// ErrInvalidLimit is returned for a negative limit.
	ErrInvalidLimit = errors.New("review: limit must be positive")

	// ErrNoMutator is returned when a live apply is requested without a mutator.
	ErrNoMutator = errors.New("review: no registry mutator configured")

	// ErrMarkerUnavailable is returned when the review marker label could not
	// be registered with the host before a batch.
	ErrMarkerUnavailable = errors.New("review: marker label unavailable")
)
