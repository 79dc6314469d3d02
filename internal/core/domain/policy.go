package domain

// PlacementPolicy selects how the controller sequences an update.
//
// The two filesystem moves and two catalog writes of an update cannot
// be made atomic as a group, so the ordering decides which inconsistent
// state a crash can leave behind. Neither ordering is silently chosen;
// operators pick one in configuration.
type PlacementPolicy string

const (
	// ArchiveThenPlace archives the superseded file before placing the
	// new one. A failure after archiving can leave an origin with zero
	// current files until the candidate is re-delivered.
	ArchiveThenPlace PlacementPolicy = "archive-then-place"

	// PlaceThenArchive places the new file before archiving the old
	// one. A failure after placement can leave two files in the
	// current tree, but an origin never has zero.
	PlaceThenArchive PlacementPolicy = "place-then-archive"
)

// Valid reports whether p is a known policy.
func (p PlacementPolicy) Valid() bool {
	return p == ArchiveThenPlace || p == PlaceThenArchive
}
