package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIndexInProgress indicates an indexing run is already active.
	// Runs are never queued; callers retry when the current run ends.
	ErrIndexInProgress = errors.New("indexing already in progress")

	// ErrEmbeddingUnavailable indicates the embedding gateway cannot be
	// reached or is not configured. Indexing fails per document; hybrid
	// search degrades to keyword-only.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorBackendUnavailable indicates the native vector backend was
	// requested but is not present in this build or database.
	ErrVectorBackendUnavailable = errors.New("native vector backend unavailable")
)

// LocatorError reports a locator that could not be built, decoded or
// validated: an unknown kind, a malformed payload, or a range that does
// not resolve to a sub-range of its document.
type LocatorError struct {
	// Kind is the variant tag involved, possibly unrecognized.
	Kind LocatorKind

	// Reason describes what was wrong.
	Reason string

	// Err is the underlying cause, may be nil.
	Err error
}

func (e *LocatorError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("locator: %s", e.Reason)
	}
	return fmt.Sprintf("locator %q: %s", e.Kind, e.Reason)
}

func (e *LocatorError) Unwrap() error { return e.Err }

// QueryParseError reports a query string the mini-grammar rejects,
// pointing at the offending fragment.
type QueryParseError struct {
	// Fragment is the piece of the query that failed.
	Fragment string

	// Pos is the byte offset of the fragment in the raw query.
	Pos int

	// Reason describes what was wrong.
	Reason string
}

func (e *QueryParseError) Error() string {
	if e.Fragment == "" {
		return fmt.Sprintf("invalid query: %s", e.Reason)
	}
	return fmt.Sprintf("invalid query at offset %d (%q): %s", e.Pos, e.Fragment, e.Reason)
}

// Is lets callers treat any parse failure as invalid input.
func (e *QueryParseError) Is(target error) bool { return target == ErrInvalidInput }

// DimensionMismatchError reports an embedding whose length disagrees
// with the configured dimension.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: want %d, got %d", e.Want, e.Got)
}

// StorageError wraps a persistence failure. Storage errors are fatal
// for the operation that hit them; callers do not retry blindly.
type StorageError struct {
	// Op names the store operation that failed.
	Op string

	// Err is the underlying driver or database error.
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
