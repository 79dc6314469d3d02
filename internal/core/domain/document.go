package domain

import "time"

// Document represents one historical version of a logical document
// tracked by the catalog. A logical document is identified by its
// OriginURL; each accepted file version gets its own Document row.
//
// Exactly one Document per OriginURL may have IsCurrent set at any time.
type Document struct {
	// ID is the surrogate identifier assigned by the catalog.
	ID int64

	// OriginURL is the stable identity key for "the same logical
	// document over time". Filenames are not trusted for identity.
	OriginURL string

	// Filename is the on-disk name of the file this record points at.
	Filename string

	// FilePath is the current on-disk location. It moves from the
	// current tree into the archive tree when the record is archived.
	FilePath string

	// DownloadDate is when this version was accepted into the catalog.
	DownloadDate time.Time

	// SizeBytes is the file size at acceptance time.
	SizeBytes int64

	// ContentHash is the SHA-256 digest of the file bytes. Together
	// with OriginURL it forms the content-addressing key: the pair
	// is unique across the catalog.
	ContentHash string

	// VersionLabel is an optional free-text version supplied by the
	// fetcher (e.g. "1.0"). Empty when the source carries none.
	VersionLabel string

	// IsCurrent marks the single authoritative version for the origin.
	IsCurrent bool

	// ArchivedDate is set exactly once, when the record is superseded.
	// Nil while the record is current.
	ArchivedDate *time.Time
}

// Candidate is the descriptor an external fetcher hands to the
// revision controller for one re-fetched file. The fetcher is
// responsible for populating every field; the core never performs
// network I/O.
type Candidate struct {
	// OriginURL identifies the logical document.
	OriginURL string `json:"origin_url"`

	// Filename is the name the source supplied for the file.
	Filename string `json:"filename"`

	// FilePath is where the fetcher left the file on local disk.
	FilePath string `json:"file_path"`

	// SizeBytes is the downloaded file size.
	SizeBytes int64 `json:"size_bytes"`

	// ContentHash is the SHA-256 digest computed at fetch time.
	ContentHash string `json:"content_hash"`

	// VersionLabel is the optional version advertised by the source.
	VersionLabel string `json:"version_label,omitempty"`
}

// ProcessedDocument is the output descriptor for a candidate that was
// actually placed. Unchanged candidates produce no ProcessedDocument.
type ProcessedDocument struct {
	Candidate

	// CurrentFilePath is the canonical location in the current tree.
	CurrentFilePath string `json:"current_file_path"`

	// IsUpdate reports whether a previous version was superseded.
	IsUpdate bool `json:"is_update"`

	// ArchivedPreviousPath is where the superseded file was moved,
	// empty for brand-new documents.
	ArchivedPreviousPath string `json:"archived_previous_path,omitempty"`

	// CatalogID is the catalog row created for the new version.
	CatalogID int64 `json:"catalog_id"`
}
