// Package watch feeds the revision controller from an inbox directory.
//
// The external fetcher drops each downloaded file alongside a JSON
// sidecar descriptor: `report.pdf` plus `report.pdf.json` containing
// the origin URL and optional version label. The sidecar is written
// last, so its appearance signals a complete drop. The watcher hashes
// the payload, builds a candidate and hands it to the controller;
// consumed drops are removed from the inbox, failed ones are left in
// place for re-delivery.
package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/jasonmooney/mds-knowledge-capture/internal/core/domain"
	"github.com/jasonmooney/mds-knowledge-capture/internal/core/ports/driving"
	"github.com/jasonmooney/mds-knowledge-capture/internal/identity"
	"github.com/jasonmooney/mds-knowledge-capture/internal/logger"
)

// sidecarExt marks descriptor files in the inbox.
const sidecarExt = ".json"

// descriptor is the sidecar payload written by the fetcher.
type descriptor struct {
	OriginURL    string `json:"origin_url"`
	VersionLabel string `json:"version,omitempty"`
}

// Watcher drives the revision service from inbox drops.
type Watcher struct {
	inboxDir  string
	revisions driving.RevisionService
	limiter   *rate.Limiter
}

// New creates a watcher for the given inbox directory. The directory
// is created if absent. Scan bursts from event storms are coalesced by
// a rate limiter (at most two inbox scans per second).
func New(inboxDir string, revisions driving.RevisionService) (*Watcher, error) {
	if err := os.MkdirAll(inboxDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating inbox %s: %w", inboxDir, err)
	}
	return &Watcher{
		inboxDir:  inboxDir,
		revisions: revisions,
		limiter:   rate.NewLimiter(rate.Limit(2), 1),
	}, nil
}

// Run watches the inbox until the context is cancelled. Drops already
// present at startup are processed before any events are handled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.inboxDir); err != nil {
		return fmt.Errorf("watching %s: %w", w.inboxDir, err)
	}

	logger.Info("watching inbox %s", w.inboxDir)
	if err := w.ScanOnce(ctx); err != nil {
		logger.Warn("initial inbox scan: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !strings.HasSuffix(event.Name, sidecarExt) {
				continue
			}
			if err := w.limiter.Wait(ctx); err != nil {
				return err
			}
			if err := w.ScanOnce(ctx); err != nil {
				logger.Warn("inbox scan: %v", err)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)
		}
	}
}

// ScanOnce processes every complete drop currently in the inbox.
// Candidates are processed one at a time so a bad drop never holds up
// its neighbours.
func (w *Watcher) ScanOnce(ctx context.Context) error {
	sidecars, err := filepath.Glob(filepath.Join(w.inboxDir, "*"+sidecarExt))
	if err != nil {
		return fmt.Errorf("scanning inbox: %w", err)
	}

	var errs []error
	for _, sidecar := range sidecars {
		if err := w.consume(ctx, sidecar); err != nil {
			logger.Warn("drop %s: %v", filepath.Base(sidecar), err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// consume processes one sidecar/payload pair and removes it from the
// inbox on success. An incomplete drop (payload not yet written) is
// skipped without error; the payload's own Write event retriggers a
// scan.
func (w *Watcher) consume(ctx context.Context, sidecar string) error {
	payload := strings.TrimSuffix(sidecar, sidecarExt)
	if _, err := os.Stat(payload); os.IsNotExist(err) {
		logger.Debug("sidecar %s has no payload yet, skipping", filepath.Base(sidecar))
		return nil
	}

	cand, err := w.buildCandidate(sidecar, payload)
	if err != nil {
		return err
	}

	if _, err := w.revisions.ProcessDocuments(ctx, []domain.Candidate{cand}); err != nil {
		return err
	}

	// Unchanged drops land here too; either way the inbox copy is
	// spent.
	for _, path := range []string{payload, sidecar} {
		if err := os.Remove(path); err != nil {
			logger.Warn("removing consumed drop %s: %v", path, err)
		}
	}
	return nil
}

// buildCandidate derives a candidate descriptor from a drop.
func (w *Watcher) buildCandidate(sidecar, payload string) (domain.Candidate, error) {
	data, err := os.ReadFile(sidecar)
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("reading sidecar: %w", err)
	}

	var desc descriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return domain.Candidate{}, fmt.Errorf("%w: sidecar %s: %v", domain.ErrInvalidInput, filepath.Base(sidecar), err)
	}
	if desc.OriginURL == "" {
		return domain.Candidate{}, fmt.Errorf("%w: sidecar %s missing origin_url", domain.ErrInvalidInput, filepath.Base(sidecar))
	}

	hash, err := identity.HashFile(payload)
	if err != nil {
		return domain.Candidate{}, err
	}
	size, err := identity.FileSize(payload)
	if err != nil {
		return domain.Candidate{}, err
	}

	return domain.Candidate{
		OriginURL:    desc.OriginURL,
		Filename:     filepath.Base(payload),
		FilePath:     payload,
		SizeBytes:    size,
		ContentHash:  hash,
		VersionLabel: desc.VersionLabel,
	}, nil
}
