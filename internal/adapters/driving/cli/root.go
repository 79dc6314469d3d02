// Package cli implements the mdskc command-line interface.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jasonmooney/mds-knowledge-capture/internal/adapters/driven/catalog/sqlite"
	configfile "github.com/jasonmooney/mds-knowledge-capture/internal/adapters/driven/config/file"
	"github.com/jasonmooney/mds-knowledge-capture/internal/core/domain"
	"github.com/jasonmooney/mds-knowledge-capture/internal/core/ports/driven"
	"github.com/jasonmooney/mds-knowledge-capture/internal/core/ports/driving"
	"github.com/jasonmooney/mds-knowledge-capture/internal/core/services"
	"github.com/jasonmooney/mds-knowledge-capture/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Injected services. Tests replace these with fakes; production runs
// populate them lazily via ensureServices.
var (
	revisionService driving.RevisionService
	metadataCatalog driven.MetadataCatalog
	appConfig       configfile.Config
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "mdskc",
	Short: "Document revision control for captured knowledge sources",
	Long: `mdskc tracks periodically re-fetched PDF documents, keeping exactly
one current copy per origin URL, archiving superseded versions in a
date-partitioned tree, and recording every outcome in a durable
SQLite catalog.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.mdskc/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

// Execute runs the root command.
func Execute() error {
	defer teardown()
	return rootCmd.Execute()
}

// ensureServices wires config, catalog and controller on first use.
// Commands that touch no state (version) never call it.
func ensureServices() error {
	if revisionService != nil {
		return nil
	}

	cfg, err := configfile.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	appConfig = cfg
	logger.SetVerbose(verbose || cfg.Verbose)

	catalog, err := sqlite.NewCatalog(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}

	controller, err := services.NewRevisionController(
		cfg.CurrentDir,
		cfg.ArchiveDir,
		catalog,
		services.WithPlacementPolicy(cfg.Policy()),
		services.WithMaxStemLength(cfg.MaxStemLength),
	)
	if err != nil {
		catalog.Close()
		return fmt.Errorf("creating revision controller: %w", err)
	}

	metadataCatalog = catalog
	revisionService = controller
	return nil
}

// teardown releases the catalog after command execution.
func teardown() {
	if metadataCatalog != nil {
		if err := metadataCatalog.Close(); err != nil {
			logger.Warn("closing catalog: %v", err)
		}
		metadataCatalog = nil
		revisionService = nil
	}
}

// requireRevisionService fetches the wired service or errors out like
// the rest of the command handlers.
func requireRevisionService() (driving.RevisionService, error) {
	if err := ensureServices(); err != nil {
		return nil, err
	}
	if revisionService == nil {
		return nil, errors.New("revision service not configured")
	}
	return revisionService, nil
}

// describeDocument prints one catalog record in list output.
func describeDocument(cmd *cobra.Command, doc domain.Document) {
	state := "current"
	if !doc.IsCurrent {
		state = "archived"
	}
	cmd.Printf("  [%d] %s (%s)\n", doc.ID, doc.Filename, state)
	cmd.Printf("      Origin:     %s\n", doc.OriginURL)
	cmd.Printf("      Downloaded: %s  Size: %d bytes\n", doc.DownloadDate.Format("2006-01-02 15:04:05"), doc.SizeBytes)
	if doc.VersionLabel != "" {
		cmd.Printf("      Version:    %s\n", doc.VersionLabel)
	}
	if doc.ArchivedDate != nil {
		cmd.Printf("      Archived:   %s\n", doc.ArchivedDate.Format("2006-01-02 15:04:05"))
	}
	cmd.Printf("      Path:       %s\n", doc.FilePath)
	cmd.Println()
}
