package driven

import (
	"context"
	"time"

	"github.com/jasonmooney/mds-knowledge-capture/internal/core/domain"
)

// MetadataCatalog is the single source of truth for which document
// version is current per origin, and for the download-attempt audit
// trail. Every mutating operation is atomic: a crash mid-write leaves
// either the pre- or post-state, never a mix.
//
// Invariants the catalog enforces:
//
//   - at most one current record per origin_url
//   - (origin_url, content_hash) is unique
type MetadataCatalog interface {
	// RecordExists reports whether a record with this exact
	// (originURL, contentHash) pair exists, current or archived.
	RecordExists(ctx context.Context, originURL, contentHash string) (bool, error)

	// GetCurrent returns the single current record for the origin,
	// or domain.ErrNotFound when the origin has no current record.
	GetCurrent(ctx context.Context, originURL string) (*domain.Document, error)

	// AddDocument inserts a new record with IsCurrent set and returns
	// its catalog ID. Returns domain.ErrDuplicateContent when the
	// (origin_url, content_hash) pair already exists; that is a caller
	// classification bug, not a retryable condition.
	AddDocument(ctx context.Context, doc *domain.Document) (int64, error)

	// Archive flips the record to non-current, stamps archivedAt and
	// rewrites its file path to the archive location. Callers must
	// have physically moved the file first, so the stored path always
	// references an existing file.
	Archive(ctx context.Context, id int64, archivePath string, archivedAt time.Time) error

	// LogAttempt appends one audit entry. Attempts are insert-only
	// and never mutated.
	LogAttempt(ctx context.Context, attempt domain.DownloadAttempt) error

	// ListDocuments returns records ordered by download date
	// descending, optionally restricted to current ones.
	ListDocuments(ctx context.Context, currentOnly bool) ([]domain.Document, error)

	// ListByOrigin returns every record (current and archived) for an
	// origin, newest first.
	ListByOrigin(ctx context.Context, originURL string) ([]domain.Document, error)

	// ListAttempts returns up to limit audit entries, most recent first.
	ListAttempts(ctx context.Context, limit int) ([]domain.DownloadAttempt, error)

	// CleanupArchived deletes archived records whose archived date is
	// at or before olderThan, returning the number removed. Files are
	// not touched; file deletion is owned by the revision controller.
	CleanupArchived(ctx context.Context, olderThan time.Time) (int64, error)

	// Close releases the underlying store.
	Close() error
}
