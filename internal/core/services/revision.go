package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/jasonmooney/mds-knowledge-capture/internal/core/domain"
	"github.com/jasonmooney/mds-knowledge-capture/internal/core/ports/driven"
	"github.com/jasonmooney/mds-knowledge-capture/internal/core/ports/driving"
	"github.com/jasonmooney/mds-knowledge-capture/internal/logger"
)

// Ensure RevisionController implements the interface.
var _ driving.RevisionService = (*RevisionController)(nil)

// classification is the decision for one incoming candidate.
type classification int

const (
	classUnchanged classification = iota
	classNew
	classUpdated
)

// RevisionController keeps exactly one current file per origin and
// moves superseded files into a date-partitioned archive tree, with the
// catalog as the single source of truth for what is current.
//
// Single-writer model: one controller instance drives all mutations at
// a time. The surrounding scheduler/watcher enforces at most one
// concurrent run.
type RevisionController struct {
	currentDir string
	archiveDir string
	catalog    driven.MetadataCatalog
	policy     domain.PlacementPolicy
	maxStem    int
	now        func() time.Time
}

// Option configures a RevisionController.
type Option func(*RevisionController)

// WithPlacementPolicy selects the update sequencing. Default is
// ArchiveThenPlace, matching the original workflow.
func WithPlacementPolicy(p domain.PlacementPolicy) Option {
	return func(r *RevisionController) { r.policy = p }
}

// WithMaxStemLength bounds the canonical filename stem.
func WithMaxStemLength(n int) Option {
	return func(r *RevisionController) { r.maxStem = n }
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(r *RevisionController) { r.now = now }
}

// NewRevisionController creates a controller managing the given current
// and archive trees. Both roots are created if absent.
func NewRevisionController(currentDir, archiveDir string, catalog driven.MetadataCatalog, opts ...Option) (*RevisionController, error) {
	r := &RevisionController{
		currentDir: currentDir,
		archiveDir: archiveDir,
		catalog:    catalog,
		policy:     domain.ArchiveThenPlace,
		maxStem:    DefaultMaxStemLength,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	if !r.policy.Valid() {
		return nil, fmt.Errorf("%w: placement policy %q", domain.ErrInvalidInput, r.policy)
	}
	for _, dir := range []string{currentDir, archiveDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	logger.Debug("revision controller ready: current=%s archive=%s policy=%s",
		currentDir, archiveDir, r.policy)
	return r, nil
}

// ProcessDocuments classifies and applies each candidate independently.
// Unchanged candidates are skipped with no side effects and no attempt
// log entry. Per-candidate failures are written to the audit log and
// joined into the returned error; they never abort the batch.
func (r *RevisionController) ProcessDocuments(ctx context.Context, candidates []domain.Candidate) ([]domain.ProcessedDocument, error) {
	batch := uuid.NewString()[:8]
	logger.Section("process batch " + batch)
	logger.Info("batch %s: %d candidates", batch, len(candidates))

	var (
		processed []domain.ProcessedDocument
		errs      []error
	)
	for _, cand := range candidates {
		proc, err := r.processOne(ctx, cand)
		if err != nil {
			logger.Warn("batch %s: %s: %v", batch, cand.Filename, err)
			r.logAttempt(ctx, batch, cand.OriginURL, statusFor(err), err.Error())
			errs = append(errs, fmt.Errorf("%s: %w", cand.OriginURL, err))
			continue
		}
		if proc == nil {
			logger.Debug("batch %s: %s unchanged, skipping", batch, cand.Filename)
			continue
		}
		r.logAttempt(ctx, batch, cand.OriginURL, domain.StatusSuccess, "")
		processed = append(processed, *proc)
	}

	logger.Info("batch %s: placed %d, failed %d", batch, len(processed), len(errs))
	return processed, errors.Join(errs...)
}

// processOne runs the full classify/archive/place/register workflow for
// a single candidate. A nil, nil return means the candidate was
// unchanged.
func (r *RevisionController) processOne(ctx context.Context, cand domain.Candidate) (*domain.ProcessedDocument, error) {
	if cand.OriginURL == "" || cand.ContentHash == "" {
		return nil, fmt.Errorf("%w: candidate needs origin_url and content_hash", domain.ErrInvalidInput)
	}

	class, previous, err := r.classify(ctx, cand)
	if err != nil {
		return nil, err
	}
	if class == classUnchanged {
		// Classification runs on the descriptor alone; the staging
		// file may already be gone and an unchanged candidate never
		// needs it.
		return nil, nil
	}

	if _, err := os.Stat(cand.FilePath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: source file %s", domain.ErrNotFound, cand.FilePath)
		}
		return nil, fmt.Errorf("%w: stat %s: %v", domain.ErrIOFailure, cand.FilePath, err)
	}

	switch class {
	case classNew:
		return r.placeAndRegister(ctx, cand, "")
	case classUpdated:
		return r.applyUpdate(ctx, cand, previous)
	}
	return nil, fmt.Errorf("%w: unknown classification", domain.ErrInvalidInput)
}

// classify decides new/unchanged/updated against the catalog. For
// updates it also returns the record being superseded.
func (r *RevisionController) classify(ctx context.Context, cand domain.Candidate) (classification, *domain.Document, error) {
	exists, err := r.catalog.RecordExists(ctx, cand.OriginURL, cand.ContentHash)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: record lookup: %v", domain.ErrCatalogWrite, err)
	}
	if exists {
		return classUnchanged, nil, nil
	}

	current, err := r.catalog.GetCurrent(ctx, cand.OriginURL)
	if errors.Is(err, domain.ErrNotFound) {
		return classNew, nil, nil
	}
	if err != nil {
		return 0, nil, fmt.Errorf("%w: current lookup: %v", domain.ErrCatalogWrite, err)
	}
	if current.ContentHash == cand.ContentHash {
		// Covered by RecordExists in practice; identical content is
		// never re-recorded either way.
		return classUnchanged, nil, nil
	}
	return classUpdated, current, nil
}

// applyUpdate supersedes the previous version using the configured
// placement policy. The catalog is always flipped old-before-new so at
// most one current record exists per origin, regardless of policy.
func (r *RevisionController) applyUpdate(ctx context.Context, cand domain.Candidate, previous *domain.Document) (*domain.ProcessedDocument, error) {
	switch r.policy {
	case domain.PlaceThenArchive:
		// New file lands first; an origin never has zero current
		// files on disk, at the cost of a transient window with two.
		currentPath, err := r.placeFile(cand)
		if err != nil {
			return nil, err
		}
		archivePath, err := r.archiveCurrent(ctx, previous)
		if err != nil {
			return nil, err
		}
		return r.register(ctx, cand, currentPath, archivePath)

	default: // domain.ArchiveThenPlace, the original ordering.
		archivePath, err := r.archiveCurrent(ctx, previous)
		if err != nil {
			return nil, err
		}
		proc, err := r.placeAndRegister(ctx, cand, archivePath)
		if err != nil {
			// The old file is already archived; the origin now has no
			// current record until the candidate is re-delivered.
			// Detectable downstream via GetCurrent -> ErrNotFound with
			// a recent archived record.
			return nil, err
		}
		return proc, nil
	}
}

// placeAndRegister places the candidate into the current tree and
// creates its catalog record.
func (r *RevisionController) placeAndRegister(ctx context.Context, cand domain.Candidate, archivePath string) (*domain.ProcessedDocument, error) {
	currentPath, err := r.placeFile(cand)
	if err != nil {
		return nil, err
	}
	return r.register(ctx, cand, currentPath, archivePath)
}

// register inserts the new current record and builds the output
// descriptor.
func (r *RevisionController) register(ctx context.Context, cand domain.Candidate, currentPath, archivePath string) (*domain.ProcessedDocument, error) {
	doc := &domain.Document{
		OriginURL:    cand.OriginURL,
		Filename:     filepath.Base(currentPath),
		FilePath:     currentPath,
		DownloadDate: r.now().UTC(),
		SizeBytes:    cand.SizeBytes,
		ContentHash:  cand.ContentHash,
		VersionLabel: cand.VersionLabel,
		IsCurrent:    true,
	}
	id, err := r.catalog.AddDocument(ctx, doc)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateContent) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: add document: %v", domain.ErrCatalogWrite, err)
	}

	logger.Info("placed current version %s (id %d)", doc.Filename, id)
	return &domain.ProcessedDocument{
		Candidate:            cand,
		CurrentFilePath:      currentPath,
		IsUpdate:             archivePath != "",
		ArchivedPreviousPath: archivePath,
		CatalogID:            id,
	}, nil
}

// archiveCurrent moves the superseded file into the date-partitioned
// archive tree and, only after the move succeeded, flips its catalog
// record. Ordering preserves the rule that a stored file path always
// references an existing file.
func (r *RevisionController) archiveCurrent(ctx context.Context, old *domain.Document) (string, error) {
	now := r.now()
	dir := filepath.Join(r.archiveDir, now.Format("2006"), now.Format("01"), now.Format("02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: creating archive dir: %v", domain.ErrIOFailure, err)
	}

	name := archiveFilename(old.Filename, now.Format("150405"))
	target := filepath.Join(dir, name)
	// Timestamp naming avoids collisions; a counter covers two
	// archives of the same name within one second.
	target = uniquePath(target)

	if err := moveFile(old.FilePath, target); err != nil {
		return "", err
	}

	if err := r.catalog.Archive(ctx, old.ID, target, now.UTC()); err != nil {
		return "", fmt.Errorf("%w: archive record %d: %v", domain.ErrCatalogWrite, old.ID, err)
	}

	logger.Info("archived %s -> %s", old.Filename, target)
	return target, nil
}

// placeFile copies (or, when already inside the current tree, renames)
// the candidate file to its canonical current-tree path.
func (r *RevisionController) placeFile(cand domain.Candidate) (string, error) {
	target := uniquePath(filepath.Join(r.currentDir, canonicalFilename(cand, r.maxStem)))

	sourceDir, err := filepath.Abs(filepath.Dir(cand.FilePath))
	if err != nil {
		return "", fmt.Errorf("%w: resolving %s: %v", domain.ErrIOFailure, cand.FilePath, err)
	}
	currentDir, err := filepath.Abs(r.currentDir)
	if err != nil {
		return "", fmt.Errorf("%w: resolving %s: %v", domain.ErrIOFailure, r.currentDir, err)
	}

	if sourceDir == currentDir {
		if cand.FilePath == target {
			return target, nil
		}
		if err := moveFile(cand.FilePath, target); err != nil {
			return "", err
		}
		return target, nil
	}

	if err := copyFile(cand.FilePath, target); err != nil {
		return "", err
	}
	return target, nil
}

// CleanupOldArchives removes archived files whose modification time is
// at or before the cutoff (a zero-day cutoff is inclusive of files
// archived "now"), then prunes matching catalog rows.
func (r *RevisionController) CleanupOldArchives(ctx context.Context, maxAgeDays int) (int, error) {
	cutoff := r.now().AddDate(0, 0, -maxAgeDays)
	logger.Section("retention sweep")
	logger.Info("removing archives at or before %s", cutoff.Format(time.RFC3339))

	removed := 0
	err := filepath.WalkDir(r.archiveDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			logger.Warn("stat %s: %v", path, err)
			return nil
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			logger.Warn("remove %s: %v", path, err)
			return nil
		}
		removed++
		logger.Debug("deleted old archive %s", path)
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("%w: walking archive tree: %v", domain.ErrIOFailure, err)
	}

	pruned, err := r.catalog.CleanupArchived(ctx, cutoff.UTC())
	if err != nil {
		return removed, fmt.Errorf("%w: pruning catalog: %v", domain.ErrCatalogWrite, err)
	}

	logger.Info("sweep complete: %d files, %d catalog rows", removed, pruned)
	return removed, nil
}

// RevisionHistory returns every catalogued version for an origin,
// newest first.
func (r *RevisionController) RevisionHistory(ctx context.Context, originURL string) ([]domain.Document, error) {
	return r.catalog.ListByOrigin(ctx, originURL)
}

// CurrentInventory returns all current records.
func (r *RevisionController) CurrentInventory(ctx context.Context) ([]domain.Document, error) {
	return r.catalog.ListDocuments(ctx, true)
}

// Attempts returns recent audit entries.
func (r *RevisionController) Attempts(ctx context.Context, limit int) ([]domain.DownloadAttempt, error) {
	return r.catalog.ListAttempts(ctx, limit)
}

// logAttempt appends an audit entry, logging and continuing on its own
// failure so auditing never fails the caller's workflow.
func (r *RevisionController) logAttempt(ctx context.Context, batchID, originURL string, status domain.AttemptStatus, message string) {
	attempt := domain.DownloadAttempt{
		BatchID:      batchID,
		OriginURL:    originURL,
		Status:       status,
		ErrorMessage: message,
		Timestamp:    r.now().UTC(),
	}
	if err := r.catalog.LogAttempt(ctx, attempt); err != nil {
		logger.Warn("audit log write failed for %s: %v", originURL, err)
	}
}

// statusFor maps a workflow error onto the closed audit status enum.
func statusFor(err error) domain.AttemptStatus {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return domain.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateContent):
		return domain.StatusDuplicateContent
	case errors.Is(err, domain.ErrCatalogWrite):
		return domain.StatusCatalogWriteFailure
	default:
		return domain.StatusIOFailure
	}
}

// uniquePath resolves name collisions by appending an incrementing
// counter before the final extension.
func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	base := path[:len(path)-len(ext)]
	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s_%d%s", base, counter, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// moveFile renames src to dst, falling back to copy-and-remove when
// rename fails (e.g. across filesystems).
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("%w: removing %s after copy: %v", domain.ErrIOFailure, src, err)
	}
	return nil
}

// copyFile copies src to dst, fsyncing before close so a placed file is
// durable before its catalog record is written.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", domain.ErrNotFound, src)
		}
		return fmt.Errorf("%w: opening %s: %v", domain.ErrIOFailure, src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", domain.ErrIOFailure, dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("%w: copying to %s: %v", domain.ErrIOFailure, dst, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return fmt.Errorf("%w: syncing %s: %v", domain.ErrIOFailure, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %v", domain.ErrIOFailure, dst, err)
	}
	return nil
}
