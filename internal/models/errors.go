package models

import "errors"

// Shared error taxonomy. Handlers map these onto HTTP status codes;
// services wrap them with context via fmt.Errorf("...: %w", err).
var (
	// ErrNotFound means the referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflictInUse means a delete was refused because live campaigns
	// still reference the record.
	ErrConflictInUse = errors.New("still referenced by an active campaign")

	// ErrValidation means the caller supplied malformed input.
	ErrValidation = errors.New("invalid input")

	// ErrUpstreamUnavailable means the catalog or object store failed after
	// the retry budget was spent. Prior cached state is preserved.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
