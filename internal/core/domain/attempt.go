package domain

import "time"

// AttemptStatus is the closed set of outcomes recorded in the
// download-attempt audit log. Free-text statuses are deliberately
// not accepted.
type AttemptStatus string

const (
	// StatusSuccess records a candidate that was placed and catalogued.
	StatusSuccess AttemptStatus = "success"

	// StatusNotFound records a candidate whose source file was missing
	// at processing time.
	StatusNotFound AttemptStatus = "not_found"

	// StatusDuplicateContent records an insert that violated the
	// (origin_url, content_hash) uniqueness rule.
	StatusDuplicateContent AttemptStatus = "duplicate_content"

	// StatusIOFailure records a failed file move or copy.
	StatusIOFailure AttemptStatus = "io_failure"

	// StatusCatalogWriteFailure records a failed catalog write.
	StatusCatalogWriteFailure AttemptStatus = "catalog_write_failure"
)

// Valid reports whether s is one of the defined statuses.
func (s AttemptStatus) Valid() bool {
	switch s {
	case StatusSuccess, StatusNotFound, StatusDuplicateContent,
		StatusIOFailure, StatusCatalogWriteFailure:
		return true
	}
	return false
}

// DownloadAttempt is one append-only audit log entry. Attempts are
// never mutated or deleted; they exist purely as a processing trail.
type DownloadAttempt struct {
	// ID is the surrogate identifier assigned by the catalog.
	ID int64

	// BatchID groups the attempts recorded during one processing run,
	// so a run's outcomes can be correlated in the audit trail. Empty
	// for attempts logged outside a batch.
	BatchID string

	// OriginURL identifies the logical document the attempt was for.
	OriginURL string

	// Status is the closed-enum outcome of the attempt.
	Status AttemptStatus

	// ErrorMessage carries failure detail, empty on success.
	ErrorMessage string

	// Timestamp is when the attempt was recorded.
	Timestamp time.Time
}
