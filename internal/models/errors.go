package models

import "errors"

// Shared error taxonomy. Callers classify with errors.Is; repository and
// client code wraps concrete causes around these sentinels.
var (
	// ErrInvalidFormat marks bad caller input. Never retryable.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrNotFound marks a permanent miss (unknown postcode, missing row).
	ErrNotFound = errors.New("not found")

	// ErrTransient marks infrastructure failures that are safe to retry.
	ErrTransient = errors.New("transient failure")

	// ErrUnmatchable marks an event that structurally cannot be matched:
	// empty instrument set or unresolved location.
	ErrUnmatchable = errors.New("event is not matchable")

	// ErrNotEligible marks an application attempt without a prior
	// notification for the (event, user) pair.
	ErrNotEligible = errors.New("not eligible to apply")

	ErrSelfReview      = errors.New("cannot review yourself")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrCommentLength   = errors.New("comment word count out of bounds")
	ErrAlreadyReviewed = errors.New("user already reviewed")
)
