// Package identity computes content digests for files. The digest is
// the sole change-detection key in the revision core: filenames and
// URLs are never trusted as identity signals because sources rename
// files across releases.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/jasonmooney/mds-knowledge-capture/internal/core/domain"
)

// HashFile returns the hex-encoded SHA-256 digest of the file's bytes.
// The file is streamed, never loaded whole into memory. Returns
// domain.ErrNotFound when the path does not exist and a wrapped
// domain.ErrIOFailure for read errors; both are fatal to the caller's
// operation.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return "", fmt.Errorf("%w: opening %s: %v", domain.ErrIOFailure, path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", domain.ErrIOFailure, path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// FileSize returns the file's size in bytes with the same error
// contract as HashFile.
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return 0, fmt.Errorf("%w: stat %s: %v", domain.ErrIOFailure, path, err)
	}
	return info.Size(), nil
}
