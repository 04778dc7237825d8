package store

import "errors"

// Error taxonomy from spec.md §7. Each is recoverable at the call site
// that produces it: the caller skips the offending row/group and
// continues the batch.
var (
	// ErrDuplicateRecord is returned when an insert would violate the
	// uniqueness constraint for its table (spec.md §3 invariant 1).
	ErrDuplicateRecord = errors.New("store: duplicate record")

	// ErrUnknownStatus is returned when a status_id does not resolve to
	// any stored Status.
	ErrUnknownStatus = errors.New("store: unknown status id")

	// ErrUnknownAlias is returned when an alias_id does not resolve to
	// any stored Alias.
	ErrUnknownAlias = errors.New("store: unknown alias id")

	// ErrInvalidInput is returned for malformed input that must not
	// mutate state (e.g. a non-public IP given to UpdateAlias).
	ErrInvalidInput = errors.New("store: invalid input")
)
