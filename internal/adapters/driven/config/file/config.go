// Package file loads and saves mdskc configuration from a TOML file.
package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/jasonmooney/mds-knowledge-capture/internal/core/domain"
	"github.com/jasonmooney/mds-knowledge-capture/internal/core/services"
)

// Config holds every operator-tunable knob of the revision core.
type Config struct {
	// DataDir holds the catalog database. Empty means ~/.mdskc/data.
	DataDir string `toml:"data_dir"`

	// CurrentDir is the tree with one live file per origin.
	CurrentDir string `toml:"current_dir"`

	// ArchiveDir is the date-partitioned, append-only archive tree.
	ArchiveDir string `toml:"archive_dir"`

	// InboxDir is watched for fetcher drops by `mdskc watch`.
	InboxDir string `toml:"inbox_dir"`

	// RetentionDays is the archive age cutoff for `mdskc cleanup`.
	RetentionDays int `toml:"retention_days"`

	// MaxStemLength bounds canonical filename stems.
	MaxStemLength int `toml:"max_stem_length"`

	// PlacementPolicy is "archive-then-place" (default, original
	// behavior) or "place-then-archive".
	PlacementPolicy string `toml:"placement_policy"`

	// Verbose enables debug logging without the --verbose flag.
	Verbose bool `toml:"verbose"`
}

// Default returns the configuration used when no file exists, rooted
// in the user's home directory.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("getting home directory: %w", err)
	}
	base := filepath.Join(home, ".mdskc")
	return Config{
		DataDir:         filepath.Join(base, "data"),
		CurrentDir:      filepath.Join(base, "knowledge_source", "current"),
		ArchiveDir:      filepath.Join(base, "knowledge_source", "archive"),
		InboxDir:        filepath.Join(base, "inbox"),
		RetentionDays:   180,
		MaxStemLength:   services.DefaultMaxStemLength,
		PlacementPolicy: string(domain.ArchiveThenPlace),
	}, nil
}

// Load reads the config file at path, or the defaults when the file
// does not exist. An empty path means ~/.mdskc/config.toml.
func Load(path string) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return Config{}, err
	}

	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".mdskc", "config.toml")
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes the config as TOML, creating parent directories.
func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

// Validate rejects unusable values.
func (c Config) Validate() error {
	if c.RetentionDays < 0 {
		return fmt.Errorf("%w: retention_days must not be negative", domain.ErrInvalidInput)
	}
	if c.MaxStemLength < 0 {
		return fmt.Errorf("%w: max_stem_length must not be negative", domain.ErrInvalidInput)
	}
	if c.PlacementPolicy != "" && !domain.PlacementPolicy(c.PlacementPolicy).Valid() {
		return fmt.Errorf("%w: placement_policy %q", domain.ErrInvalidInput, c.PlacementPolicy)
	}
	return nil
}

// Policy returns the configured placement policy, defaulting to
// archive-then-place.
func (c Config) Policy() domain.PlacementPolicy {
	if c.PlacementPolicy == "" {
		return domain.ArchiveThenPlace
	}
	return domain.PlacementPolicy(c.PlacementPolicy)
}
