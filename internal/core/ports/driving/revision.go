package driving

import (
	"context"

	"github.com/jasonmooney/mds-knowledge-capture/internal/core/domain"
)

// RevisionService classifies fetched candidates against the catalog
// and maintains the current/archive file trees.
type RevisionService interface {
	// ProcessDocuments classifies each candidate as new, unchanged or
	// updated and applies the archive/place protocol to the ones that
	// need it. Candidates are processed independently; per-candidate
	// failures are audited and joined into the returned error but
	// never abort the batch. Unchanged candidates are silently
	// omitted from the result, so its length may be shorter than the
	// input.
	ProcessDocuments(ctx context.Context, candidates []domain.Candidate) ([]domain.ProcessedDocument, error)

	// CleanupOldArchives removes archived files whose modification
	// time is at or before the age cutoff, then prunes matching
	// catalog rows. It never touches current documents and is safe to
	// run independently of processing.
	CleanupOldArchives(ctx context.Context, maxAgeDays int) (int, error)

	// RevisionHistory returns every catalogued version for an origin,
	// newest first.
	RevisionHistory(ctx context.Context, originURL string) ([]domain.Document, error)

	// CurrentInventory returns all current records.
	CurrentInventory(ctx context.Context) ([]domain.Document, error)

	// Attempts returns up to limit audit entries, most recent first.
	Attempts(ctx context.Context, limit int) ([]domain.DownloadAttempt, error)
}
