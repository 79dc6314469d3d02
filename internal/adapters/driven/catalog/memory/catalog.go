// Package memory provides an in-memory MetadataCatalog used to test
// the revision controller without a database on disk.
package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jasonmooney/mds-knowledge-capture/internal/core/domain"
	"github.com/jasonmooney/mds-knowledge-capture/internal/core/ports/driven"
)

// Ensure Catalog implements the interface.
var _ driven.MetadataCatalog = (*Catalog)(nil)

// Catalog is an in-memory implementation of driven.MetadataCatalog.
// It enforces the same uniqueness rules as the SQLite schema.
type Catalog struct {
	mu       sync.RWMutex
	nextID   int64
	docs     map[int64]domain.Document
	attempts []domain.DownloadAttempt

	// FailWrites simulates ledger write failures when set.
	FailWrites bool
}

// NewCatalog creates an empty in-memory catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		nextID: 1,
		docs:   make(map[int64]domain.Document),
	}
}

// RecordExists reports whether the (origin, hash) pair is recorded.
func (c *Catalog) RecordExists(_ context.Context, originURL, contentHash string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, doc := range c.docs {
		if doc.OriginURL == originURL && doc.ContentHash == contentHash {
			return true, nil
		}
	}
	return false, nil
}

// GetCurrent returns the current record for an origin.
func (c *Catalog) GetCurrent(_ context.Context, originURL string) (*domain.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, doc := range c.docs {
		if doc.OriginURL == originURL && doc.IsCurrent {
			d := doc
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}

// AddDocument inserts a new current record.
func (c *Catalog) AddDocument(_ context.Context, doc *domain.Document) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailWrites {
		return 0, fmt.Errorf("simulated write failure")
	}
	for _, existing := range c.docs {
		if existing.OriginURL == doc.OriginURL && existing.ContentHash == doc.ContentHash {
			return 0, fmt.Errorf("%w: %s", domain.ErrDuplicateContent, doc.OriginURL)
		}
		if existing.OriginURL == doc.OriginURL && existing.IsCurrent && doc.IsCurrent {
			return 0, fmt.Errorf("%w: origin %s already has a current record", domain.ErrDuplicateContent, doc.OriginURL)
		}
	}

	id := c.nextID
	c.nextID++
	stored := *doc
	stored.ID = id
	stored.IsCurrent = true
	c.docs[id] = stored
	doc.ID = id
	return id, nil
}

// Archive flips a record to non-current and rewrites its path.
func (c *Catalog) Archive(_ context.Context, id int64, archivePath string, archivedAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailWrites {
		return fmt.Errorf("simulated write failure")
	}
	doc, ok := c.docs[id]
	if !ok {
		return fmt.Errorf("%w: document %d", domain.ErrNotFound, id)
	}
	doc.IsCurrent = false
	doc.ArchivedDate = &archivedAt
	doc.FilePath = archivePath
	doc.Filename = filepath.Base(archivePath)
	c.docs[id] = doc
	return nil
}

// LogAttempt appends one audit entry.
func (c *Catalog) LogAttempt(_ context.Context, attempt domain.DownloadAttempt) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !attempt.Status.Valid() {
		return fmt.Errorf("%w: attempt status %q", domain.ErrInvalidInput, attempt.Status)
	}
	attempt.ID = int64(len(c.attempts) + 1)
	if attempt.Timestamp.IsZero() {
		attempt.Timestamp = time.Now().UTC()
	}
	c.attempts = append(c.attempts, attempt)
	return nil
}

// ListDocuments returns records ordered by download date descending.
func (c *Catalog) ListDocuments(_ context.Context, currentOnly bool) ([]domain.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var docs []domain.Document
	for _, doc := range c.docs {
		if currentOnly && !doc.IsCurrent {
			continue
		}
		docs = append(docs, doc)
	}
	sortNewestFirst(docs)
	return docs, nil
}

// ListByOrigin returns all versions for an origin, newest first.
func (c *Catalog) ListByOrigin(_ context.Context, originURL string) ([]domain.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var docs []domain.Document
	for _, doc := range c.docs {
		if doc.OriginURL == originURL {
			docs = append(docs, doc)
		}
	}
	sortNewestFirst(docs)
	return docs, nil
}

// ListAttempts returns up to limit audit entries, most recent first.
func (c *Catalog) ListAttempts(_ context.Context, limit int) ([]domain.DownloadAttempt, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if limit <= 0 || limit > len(c.attempts) {
		limit = len(c.attempts)
	}
	out := make([]domain.DownloadAttempt, 0, limit)
	for i := len(c.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, c.attempts[i])
	}
	return out, nil
}

// CleanupArchived deletes archived rows at or before olderThan.
func (c *Catalog) CleanupArchived(_ context.Context, olderThan time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var deleted int64
	for id, doc := range c.docs {
		if doc.IsCurrent || doc.ArchivedDate == nil {
			continue
		}
		if !doc.ArchivedDate.After(olderThan) {
			delete(c.docs, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close is a no-op for the in-memory catalog.
func (c *Catalog) Close() error {
	return nil
}

func sortNewestFirst(docs []domain.Document) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].DownloadDate.Equal(docs[j].DownloadDate) {
			return docs[i].ID > docs[j].ID
		}
		return docs[i].DownloadDate.After(docs[j].DownloadDate)
	})
}
