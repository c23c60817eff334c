package models

import "errors"

// Error taxonomy shared by the domain packages. Packages wrap these with
// context so callers can match on the kind with errors.Is.
var (
	// ErrNotFound marks an unknown item, product, version or record.
	ErrNotFound = errors.New("not found")

	// ErrValidation marks input rejected before any state change.
	ErrValidation = errors.New("validation failed")

	// ErrInvariant marks an operation that would break a stock invariant.
	ErrInvariant = errors.New("invariant violated")

	// ErrDisabled marks an operation switched off by configuration.
	ErrDisabled = errors.New("feature disabled")
)
