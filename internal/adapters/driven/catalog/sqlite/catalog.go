package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/jasonmooney/mds-knowledge-capture/internal/adapters/driven/catalog/sqlite/migrations"
	"github.com/jasonmooney/mds-knowledge-capture/internal/core/domain"
	"github.com/jasonmooney/mds-knowledge-capture/internal/core/ports/driven"
)

// Ensure Catalog implements the interface.
var _ driven.MetadataCatalog = (*Catalog)(nil)

// Catalog is the SQLite-backed document ledger and audit log.
type Catalog struct {
	db   *sql.DB
	path string
}

// NewCatalog opens (creating if necessary) the catalog database in the
// specified data directory. If dataDir is empty, defaults to
// ~/.mdskc/data/catalog.db. A failure here is fatal to the component
// and propagates to the caller.
func NewCatalog(dataDir string) (*Catalog, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".mdskc", "data")
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "catalog.db")

	// WAL lets catalog reads proceed concurrently with the single
	// writer's mutations.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	c := &Catalog{db: db, path: dbPath}

	if err := c.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return c, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Path returns the database file path.
func (c *Catalog) Path() string {
	return c.path
}

// migrate runs all pending migrations.
func (c *Catalog) migrate(fsys embed.FS) error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := c.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := c.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := c.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// RecordExists reports whether a (origin_url, content_hash) pair is
// already catalogued.
func (c *Catalog) RecordExists(ctx context.Context, originURL, contentHash string) (bool, error) {
	var count int
	err := c.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM documents WHERE origin_url = ? AND content_hash = ?
	`, originURL, contentHash).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking record: %w", err)
	}
	return count > 0, nil
}

// GetCurrent returns the single current record for an origin.
func (c *Catalog) GetCurrent(ctx context.Context, originURL string) (*domain.Document, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, origin_url, filename, file_path, download_date,
		       size_bytes, content_hash, version_label, is_current, archived_date
		FROM documents WHERE origin_url = ? AND is_current = 1
	`, originURL)

	return scanDocument(row)
}

// AddDocument inserts a new current record and returns its ID.
func (c *Catalog) AddDocument(ctx context.Context, doc *domain.Document) (int64, error) {
	res, err := c.db.ExecContext(ctx, `
		INSERT INTO documents
			(origin_url, filename, file_path, download_date,
			 size_bytes, content_hash, version_label, is_current)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)
	`, doc.OriginURL, doc.Filename, doc.FilePath, doc.DownloadDate,
		doc.SizeBytes, doc.ContentHash, nullString(doc.VersionLabel))
	if err != nil {
		// Both uniqueness guards (the (origin_url, content_hash) pair
		// and the single-current partial index) surface here.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, fmt.Errorf("%w: %s", domain.ErrDuplicateContent, doc.OriginURL)
		}
		return 0, fmt.Errorf("inserting document: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading insert id: %w", err)
	}
	doc.ID = id
	return id, nil
}

// Archive flips a record to non-current and rewrites its path. A
// single UPDATE, atomic under SQLite journaling.
func (c *Catalog) Archive(ctx context.Context, id int64, archivePath string, archivedAt time.Time) error {
	res, err := c.db.ExecContext(ctx, `
		UPDATE documents
		SET is_current = 0, archived_date = ?, file_path = ?, filename = ?
		WHERE id = ?
	`, archivedAt, archivePath, filepath.Base(archivePath), id)
	if err != nil {
		return fmt.Errorf("archiving document %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: document %d", domain.ErrNotFound, id)
	}
	return nil
}

// LogAttempt appends one audit entry.
func (c *Catalog) LogAttempt(ctx context.Context, attempt domain.DownloadAttempt) error {
	if !attempt.Status.Valid() {
		return fmt.Errorf("%w: attempt status %q", domain.ErrInvalidInput, attempt.Status)
	}
	ts := attempt.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO download_history (batch_id, origin_url, status, error_message, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, nullString(attempt.BatchID), attempt.OriginURL, string(attempt.Status), nullString(attempt.ErrorMessage), ts)
	if err != nil {
		return fmt.Errorf("logging attempt: %w", err)
	}
	return nil
}

// ListDocuments returns records ordered by download date descending.
func (c *Catalog) ListDocuments(ctx context.Context, currentOnly bool) ([]domain.Document, error) {
	query := `
		SELECT id, origin_url, filename, file_path, download_date,
		       size_bytes, content_hash, version_label, is_current, archived_date
		FROM documents`
	if currentOnly {
		query += ` WHERE is_current = 1`
	}
	query += ` ORDER BY download_date DESC`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// ListByOrigin returns all versions for an origin, newest first.
func (c *Catalog) ListByOrigin(ctx context.Context, originURL string) ([]domain.Document, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, origin_url, filename, file_path, download_date,
		       size_bytes, content_hash, version_label, is_current, archived_date
		FROM documents WHERE origin_url = ?
		ORDER BY download_date DESC
	`, originURL)
	if err != nil {
		return nil, fmt.Errorf("querying documents by origin: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// ListAttempts returns up to limit audit entries, most recent first.
func (c *Catalog) ListAttempts(ctx context.Context, limit int) ([]domain.DownloadAttempt, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, batch_id, origin_url, status, error_message, timestamp
		FROM download_history
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.DownloadAttempt //nolint:prealloc // size unknown from query
	for rows.Next() {
		var a domain.DownloadAttempt
		var status string
		var batchID, errorMessage sql.NullString
		if err := rows.Scan(&a.ID, &batchID, &a.OriginURL, &status, &errorMessage, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning attempt: %w", err)
		}
		a.BatchID = batchID.String
		a.Status = domain.AttemptStatus(status)
		a.ErrorMessage = errorMessage.String
		attempts = append(attempts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating attempts: %w", err)
	}

	return attempts, nil
}

// CleanupArchived deletes archived rows whose archived_date is at or
// before olderThan. Current rows are never touched.
func (c *Catalog) CleanupArchived(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, `
		DELETE FROM documents
		WHERE is_current = 0 AND archived_date IS NOT NULL AND archived_date <= ?
	`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("cleaning up archived documents: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading rows affected: %w", err)
	}
	return deleted, nil
}

// scanDocument scans a single document row.
func scanDocument(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	var versionLabel sql.NullString
	var archivedDate sql.NullTime

	if err := row.Scan(&doc.ID, &doc.OriginURL, &doc.Filename, &doc.FilePath,
		&doc.DownloadDate, &doc.SizeBytes, &doc.ContentHash,
		&versionLabel, &doc.IsCurrent, &archivedDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.VersionLabel = versionLabel.String
	if archivedDate.Valid {
		t := archivedDate.Time
		doc.ArchivedDate = &t
	}

	return &doc, nil
}

// scanDocuments scans multiple document rows.
func scanDocuments(rows *sql.Rows) ([]domain.Document, error) {
	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		var doc domain.Document
		var versionLabel sql.NullString
		var archivedDate sql.NullTime

		if err := rows.Scan(&doc.ID, &doc.OriginURL, &doc.Filename, &doc.FilePath,
			&doc.DownloadDate, &doc.SizeBytes, &doc.ContentHash,
			&versionLabel, &doc.IsCurrent, &archivedDate); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}

		doc.VersionLabel = versionLabel.String
		if archivedDate.Valid {
			t := archivedDate.Time
			doc.ArchivedDate = &t
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// nullString converts an empty string to NULL for storage.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
