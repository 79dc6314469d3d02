// Package domain defines the core business entities for the MDS
// knowledge-capture revision core.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A catalogued file version (current or archived)
//   - Candidate: An incoming descriptor produced by the external fetcher
//   - ProcessedDocument: A candidate after acceptance, with placement results
//   - DownloadAttempt: An append-only audit log entry
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
