// Package sqlite implements the MetadataCatalog on a local SQLite
// database using the pure-Go modernc.org/sqlite driver.
//
// The database is opened in WAL mode. Schema changes are applied from
// embedded, numbered .up.sql migration files at open time. Each
// mutating operation is a single SQL statement, so it is atomic under
// SQLite's journaling: a crash mid-write leaves either the pre- or
// post-state, never a mix.
package sqlite
