package services

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jasonmooney/mds-knowledge-capture/internal/core/domain"
)

// DefaultMaxStemLength bounds the canonical filename stem so generated
// paths stay clear of filesystem path-length limits.
const DefaultMaxStemLength = 100

var (
	// Embedded date stamps: _YYYYMMDD or _YYYYMMDD_HHMMSS.
	dateStampRe = regexp.MustCompile(`_\d{8}(_\d{6})?`)

	// Embedded version numbers: _1.2, _v1.2, _v1.2.3.
	versionRe = regexp.MustCompile(`_v?\d+\.\d+(\.\d+)?`)
)

// canonicalFilename derives the current-tree name for a candidate.
// Date stamps and version numbers embedded by the source are stripped
// from the stem, a single _v<label> suffix is appended when a version
// label is present and not already embedded, and the stem is truncated
// to maxStem runes before the extension goes back on.
func canonicalFilename(c domain.Candidate, maxStem int) string {
	if maxStem <= 0 {
		maxStem = DefaultMaxStemLength
	}

	ext := filepath.Ext(c.Filename)
	if ext == "" {
		ext = ".pdf"
	}
	stem := strings.TrimSuffix(filepath.Base(c.Filename), ext)

	stem = dateStampRe.ReplaceAllString(stem, "")
	stem = versionRe.ReplaceAllString(stem, "")
	stem = strings.Trim(stem, "_")
	if stem == "" {
		stem = "document"
	}

	if c.VersionLabel != "" && !strings.Contains(stem, "v"+c.VersionLabel) {
		stem += "_v" + c.VersionLabel
	}

	if runes := []rune(stem); len(runes) > maxStem {
		stem = string(runes[:maxStem])
	}

	return stem + ext
}

// archiveFilename derives the archive-tree name for a superseded file:
// <original-stem>_archived_<hhmmss><ext>.
func archiveFilename(currentName, timestamp string) string {
	ext := filepath.Ext(currentName)
	if ext == "" {
		ext = ".pdf"
	}
	stem := strings.TrimSuffix(filepath.Base(currentName), ext)
	return fmt.Sprintf("%s_archived_%s%s", stem, timestamp, ext)
}
