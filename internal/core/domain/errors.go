package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist. It is
	// returned both for missing catalog records and for candidate
	// source files that vanished before processing.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateContent indicates an insert that would record the
	// same (origin_url, content_hash) pair twice. The controller
	// filters duplicates before writing, so hitting this error means
	// a caller classification bug; it is surfaced, never swallowed.
	ErrDuplicateContent = errors.New("duplicate content")

	// ErrIOFailure indicates a failed file move or copy during
	// archiving or placement. Completed steps are not rolled back.
	ErrIOFailure = errors.New("io failure")

	// ErrCatalogWrite indicates an underlying ledger write failed.
	// Filesystem and catalog state may disagree after this error.
	ErrCatalogWrite = errors.New("catalog write failure")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")
)
