package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasonmooney/mds-knowledge-capture/internal/adapters/driven/catalog/memory"
	"github.com/jasonmooney/mds-knowledge-capture/internal/core/domain"
	"github.com/jasonmooney/mds-knowledge-capture/internal/identity"
)

// newTestController wires a controller over an in-memory catalog and
// temp current/archive trees.
func newTestController(t *testing.T, opts ...Option) (*RevisionController, *memory.Catalog, string) {
	t.Helper()

	root := t.TempDir()
	catalog := memory.NewCatalog()
	ctrl, err := NewRevisionController(
		filepath.Join(root, "current"),
		filepath.Join(root, "archive"),
		catalog,
		opts...,
	)
	require.NoError(t, err)
	require.NotNil(t, ctrl)

	return ctrl, catalog, root
}

// writeCandidate drops a file with the given content into an inbox
// directory and builds its descriptor the way the fetcher would.
func writeCandidate(t *testing.T, root, filename, content, originURL, version string) domain.Candidate {
	t.Helper()

	inbox := filepath.Join(root, "inbox")
	require.NoError(t, os.MkdirAll(inbox, 0o755))

	path := filepath.Join(inbox, filename)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	hash, err := identity.HashFile(path)
	require.NoError(t, err)
	size, err := identity.FileSize(path)
	require.NoError(t, err)

	return domain.Candidate{
		OriginURL:    originURL,
		Filename:     filename,
		FilePath:     path,
		SizeBytes:    size,
		ContentHash:  hash,
		VersionLabel: version,
	}
}

func TestProcessDocuments_NewDocument(t *testing.T) {
	ctrl, catalog, root := newTestController(t)
	ctx := context.Background()

	cand := writeCandidate(t, root, "mds_guide.pdf", "version one", "https://x/doc.pdf", "1.0")

	processed, err := ctrl.ProcessDocuments(ctx, []domain.Candidate{cand})
	require.NoError(t, err)
	require.Len(t, processed, 1)

	assert.False(t, processed[0].IsUpdate)
	assert.Empty(t, processed[0].ArchivedPreviousPath)
	assert.FileExists(t, processed[0].CurrentFilePath)
	assert.Equal(t, "mds_guide_v1.0.pdf", filepath.Base(processed[0].CurrentFilePath))

	current, err := catalog.GetCurrent(ctx, "https://x/doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, cand.ContentHash, current.ContentHash)
	assert.True(t, current.IsCurrent)
	assert.Equal(t, processed[0].CatalogID, current.ID)
}

func TestProcessDocuments_Update(t *testing.T) {
	ctrl, catalog, root := newTestController(t)
	ctx := context.Background()

	first := writeCandidate(t, root, "mds_guide.pdf", "version one", "https://x/doc.pdf", "1.0")
	_, err := ctrl.ProcessDocuments(ctx, []domain.Candidate{first})
	require.NoError(t, err)

	second := writeCandidate(t, root, "mds_guide.pdf", "version two", "https://x/doc.pdf", "2.0")
	processed, err := ctrl.ProcessDocuments(ctx, []domain.Candidate{second})
	require.NoError(t, err)
	require.Len(t, processed, 1)

	assert.True(t, processed[0].IsUpdate)
	require.NotEmpty(t, processed[0].ArchivedPreviousPath)
	assert.FileExists(t, processed[0].ArchivedPreviousPath)
	assert.FileExists(t, processed[0].CurrentFilePath)

	// The new record is the only current one for the origin.
	current, err := catalog.GetCurrent(ctx, "https://x/doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, second.ContentHash, current.ContentHash)

	history, err := ctrl.RevisionHistory(ctx, "https://x/doc.pdf")
	require.NoError(t, err)
	require.Len(t, history, 2)

	currentCount := 0
	for _, doc := range history {
		if doc.IsCurrent {
			currentCount++
		} else {
			require.NotNil(t, doc.ArchivedDate)
			assert.FileExists(t, doc.FilePath)
		}
	}
	assert.Equal(t, 1, currentCount)
}

func TestProcessDocuments_ArchiveIntegrity(t *testing.T) {
	ctrl, _, root := newTestController(t)
	ctx := context.Background()

	first := writeCandidate(t, root, "spec.pdf", "old bytes", "https://x/spec.pdf", "")
	_, err := ctrl.ProcessDocuments(ctx, []domain.Candidate{first})
	require.NoError(t, err)

	second := writeCandidate(t, root, "spec.pdf", "new bytes", "https://x/spec.pdf", "")
	_, err = ctrl.ProcessDocuments(ctx, []domain.Candidate{second})
	require.NoError(t, err)

	history, err := ctrl.RevisionHistory(ctx, "https://x/spec.pdf")
	require.NoError(t, err)

	for _, doc := range history {
		if doc.IsCurrent {
			continue
		}
		// Archived file content still matches its recorded hash.
		gotHash, err := identity.HashFile(doc.FilePath)
		require.NoError(t, err)
		assert.Equal(t, doc.ContentHash, gotHash)
		assert.Contains(t, doc.FilePath, "archive")
	}
}

func TestProcessDocuments_UnchangedIsIdempotent(t *testing.T) {
	ctrl, catalog, root := newTestController(t)
	ctx := context.Background()

	cand := writeCandidate(t, root, "doc.pdf", "same content", "https://x/doc.pdf", "")

	processed, err := ctrl.ProcessDocuments(ctx, []domain.Candidate{cand})
	require.NoError(t, err)
	require.Len(t, processed, 1)
	attemptsAfterFirst, err := catalog.ListAttempts(ctx, 0)
	require.NoError(t, err)

	// Resubmitting the same content yields an empty result, no new
	// rows, no file moves, and no attempt log entry.
	processed, err = ctrl.ProcessDocuments(ctx, []domain.Candidate{cand})
	require.NoError(t, err)
	assert.Empty(t, processed)

	docs, err := catalog.ListDocuments(ctx, false)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	attempts, err := catalog.ListAttempts(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, attempts, len(attemptsAfterFirst))
}

func TestProcessDocuments_UnchangedAfterStagingCleanup(t *testing.T) {
	ctrl, catalog, root := newTestController(t)
	ctx := context.Background()

	cand := writeCandidate(t, root, "doc.pdf", "same content", "https://x/doc.pdf", "")
	_, err := ctrl.ProcessDocuments(ctx, []domain.Candidate{cand})
	require.NoError(t, err)
	attemptsAfterFirst, err := catalog.ListAttempts(ctx, 0)
	require.NoError(t, err)

	// The fetcher cleaned its staging dir between deliveries. An
	// unchanged descriptor never needs the file, so re-delivery still
	// yields an empty result, no error and no new audit row.
	require.NoError(t, os.Remove(cand.FilePath))

	processed, err := ctrl.ProcessDocuments(ctx, []domain.Candidate{cand})
	require.NoError(t, err)
	assert.Empty(t, processed)

	attempts, err := catalog.ListAttempts(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, attempts, len(attemptsAfterFirst))

	docs, err := catalog.ListDocuments(ctx, false)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestProcessDocuments_AttemptsShareBatchID(t *testing.T) {
	ctrl, catalog, root := newTestController(t)
	ctx := context.Background()

	good := writeCandidate(t, root, "good.pdf", "fine", "https://x/good.pdf", "")
	bad := domain.Candidate{
		OriginURL:   "https://x/bad.pdf",
		Filename:    "bad.pdf",
		FilePath:    filepath.Join(root, "nope.pdf"),
		ContentHash: "cafe",
	}

	_, err := ctrl.ProcessDocuments(ctx, []domain.Candidate{good, bad})
	require.Error(t, err)

	attempts, err := catalog.ListAttempts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, attempts, 2)

	// Both outcomes of one run carry the same batch stamp.
	firstBatch := attempts[0].BatchID
	assert.Len(t, firstBatch, 8)
	assert.Equal(t, firstBatch, attempts[1].BatchID)

	// A later run gets its own stamp.
	next := writeCandidate(t, root, "next.pdf", "more", "https://x/next.pdf", "")
	_, err = ctrl.ProcessDocuments(ctx, []domain.Candidate{next})
	require.NoError(t, err)

	attempts, err = catalog.ListAttempts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Len(t, attempts[0].BatchID, 8)
	assert.NotEqual(t, firstBatch, attempts[0].BatchID)
}

func TestProcessDocuments_SingleCurrentAcrossSequence(t *testing.T) {
	ctrl, catalog, root := newTestController(t)
	ctx := context.Background()

	// Several generations across two origins, interleaved.
	for i, content := range []string{"a1", "a2", "a3"} {
		cand := writeCandidate(t, root, "alpha.pdf", content, "https://x/alpha.pdf", "")
		_, err := ctrl.ProcessDocuments(ctx, []domain.Candidate{cand})
		require.NoError(t, err, "generation %d", i)

		other := writeCandidate(t, root, "beta.pdf", "b"+content, "https://x/beta.pdf", "")
		_, err = ctrl.ProcessDocuments(ctx, []domain.Candidate{other})
		require.NoError(t, err)
	}

	for _, origin := range []string{"https://x/alpha.pdf", "https://x/beta.pdf"} {
		history, err := catalog.ListByOrigin(ctx, origin)
		require.NoError(t, err)
		assert.Len(t, history, 3)

		currentCount := 0
		for _, doc := range history {
			if doc.IsCurrent {
				currentCount++
			}
		}
		assert.Equal(t, 1, currentCount, "origin %s", origin)
	}
}

func TestProcessDocuments_MissingSourceFile(t *testing.T) {
	ctrl, catalog, _ := newTestController(t)
	ctx := context.Background()

	cand := domain.Candidate{
		OriginURL:   "https://x/ghost.pdf",
		Filename:    "ghost.pdf",
		FilePath:    filepath.Join(t.TempDir(), "missing.pdf"),
		ContentHash: "deadbeef",
	}

	processed, err := ctrl.ProcessDocuments(ctx, []domain.Candidate{cand})
	assert.Empty(t, processed)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	attempts, err := catalog.ListAttempts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, domain.StatusNotFound, attempts[0].Status)
	assert.Equal(t, "https://x/ghost.pdf", attempts[0].OriginURL)
}

func TestProcessDocuments_BatchContinuesPastFailures(t *testing.T) {
	ctrl, _, root := newTestController(t)
	ctx := context.Background()

	bad := domain.Candidate{
		OriginURL:   "https://x/bad.pdf",
		Filename:    "bad.pdf",
		FilePath:    filepath.Join(root, "nope.pdf"),
		ContentHash: "cafe",
	}
	good := writeCandidate(t, root, "good.pdf", "fine", "https://x/good.pdf", "")

	processed, err := ctrl.ProcessDocuments(ctx, []domain.Candidate{bad, good})
	require.Error(t, err)
	require.Len(t, processed, 1)
	assert.Equal(t, "https://x/good.pdf", processed[0].OriginURL)
}

func TestProcessDocuments_CatalogWriteFailure(t *testing.T) {
	ctrl, catalog, root := newTestController(t)
	ctx := context.Background()

	catalog.FailWrites = true
	cand := writeCandidate(t, root, "doc.pdf", "content", "https://x/doc.pdf", "")

	processed, err := ctrl.ProcessDocuments(ctx, []domain.Candidate{cand})
	assert.Empty(t, processed)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCatalogWrite)

	attempts, err := catalog.ListAttempts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, domain.StatusCatalogWriteFailure, attempts[0].Status)
}

func TestProcessDocuments_PlaceThenArchive(t *testing.T) {
	ctrl, catalog, root := newTestController(t, WithPlacementPolicy(domain.PlaceThenArchive))
	ctx := context.Background()

	first := writeCandidate(t, root, "doc.pdf", "one", "https://x/doc.pdf", "")
	_, err := ctrl.ProcessDocuments(ctx, []domain.Candidate{first})
	require.NoError(t, err)

	second := writeCandidate(t, root, "doc.pdf", "two", "https://x/doc.pdf", "")
	processed, err := ctrl.ProcessDocuments(ctx, []domain.Candidate{second})
	require.NoError(t, err)
	require.Len(t, processed, 1)

	assert.True(t, processed[0].IsUpdate)
	assert.FileExists(t, processed[0].CurrentFilePath)
	assert.FileExists(t, processed[0].ArchivedPreviousPath)

	// The catalog still shows exactly one current record.
	current, err := catalog.GetCurrent(ctx, "https://x/doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, second.ContentHash, current.ContentHash)
}

func TestNewRevisionController_RejectsBadPolicy(t *testing.T) {
	root := t.TempDir()
	_, err := NewRevisionController(
		filepath.Join(root, "current"),
		filepath.Join(root, "archive"),
		memory.NewCatalog(),
		WithPlacementPolicy(domain.PlacementPolicy("yolo")),
	)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPlaceFile_NameCollisionGetsCounter(t *testing.T) {
	ctrl, _, root := newTestController(t)
	ctx := context.Background()

	// Two different origins whose files canonicalise to the same name.
	one := writeCandidate(t, root, "manual.pdf", "origin one", "https://x/one.pdf", "")
	two := writeCandidate(t, root, "manual_20240101.pdf", "origin two", "https://x/two.pdf", "")

	processed, err := ctrl.ProcessDocuments(ctx, []domain.Candidate{one, two})
	require.NoError(t, err)
	require.Len(t, processed, 2)

	assert.Equal(t, "manual.pdf", filepath.Base(processed[0].CurrentFilePath))
	assert.Equal(t, "manual_1.pdf", filepath.Base(processed[1].CurrentFilePath))
}

func TestCleanupOldArchives(t *testing.T) {
	ctrl, catalog, root := newTestController(t)
	ctx := context.Background()

	first := writeCandidate(t, root, "doc.pdf", "one", "https://x/doc.pdf", "")
	_, err := ctrl.ProcessDocuments(ctx, []domain.Candidate{first})
	require.NoError(t, err)

	second := writeCandidate(t, root, "doc.pdf", "two", "https://x/doc.pdf", "")
	processed, err := ctrl.ProcessDocuments(ctx, []domain.Candidate{second})
	require.NoError(t, err)
	archivedPath := processed[0].ArchivedPreviousPath
	require.FileExists(t, archivedPath)

	// A zero-day cutoff is inclusive: the just-archived file goes.
	removed, err := ctrl.CleanupOldArchives(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, archivedPath)

	history, err := catalog.ListByOrigin(ctx, "https://x/doc.pdf")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].IsCurrent)

	// Current documents are untouched.
	assert.FileExists(t, history[0].FilePath)
}

func TestCleanupOldArchives_KeepsYoungArchives(t *testing.T) {
	ctrl, _, root := newTestController(t)
	ctx := context.Background()

	first := writeCandidate(t, root, "doc.pdf", "one", "https://x/doc.pdf", "")
	_, err := ctrl.ProcessDocuments(ctx, []domain.Candidate{first})
	require.NoError(t, err)

	second := writeCandidate(t, root, "doc.pdf", "two", "https://x/doc.pdf", "")
	processed, err := ctrl.ProcessDocuments(ctx, []domain.Candidate{second})
	require.NoError(t, err)

	removed, err := ctrl.CleanupOldArchives(ctx, 30)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.FileExists(t, processed[0].ArchivedPreviousPath)
}

func TestArchiveTreeIsDatePartitioned(t *testing.T) {
	fixed := time.Date(2026, 8, 23, 12, 30, 45, 0, time.UTC)
	ctrl, _, root := newTestController(t, WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	first := writeCandidate(t, root, "doc.pdf", "one", "https://x/doc.pdf", "")
	_, err := ctrl.ProcessDocuments(ctx, []domain.Candidate{first})
	require.NoError(t, err)

	second := writeCandidate(t, root, "doc.pdf", "two", "https://x/doc.pdf", "")
	processed, err := ctrl.ProcessDocuments(ctx, []domain.Candidate{second})
	require.NoError(t, err)
	require.Len(t, processed, 1)

	rel, err := filepath.Rel(filepath.Join(root, "archive"), processed[0].ArchivedPreviousPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("2026", "08", "23", "doc_archived_123045.pdf"), rel)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, domain.StatusNotFound, statusFor(domain.ErrNotFound))
	assert.Equal(t, domain.StatusDuplicateContent, statusFor(domain.ErrDuplicateContent))
	assert.Equal(t, domain.StatusCatalogWriteFailure, statusFor(domain.ErrCatalogWrite))
	assert.Equal(t, domain.StatusIOFailure, statusFor(domain.ErrIOFailure))
	assert.Equal(t, domain.StatusIOFailure, statusFor(errors.New("anything else")))
}
