package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupDays int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove archived files and records past the retention age",
	Long: `Walks the archive tree, deletes files whose modification time is at
or before the age cutoff, then prunes the matching catalog rows.
Current documents are never touched.`,
	Args: cobra.NoArgs,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", -1, "Age cutoff in days (default: retention_days from config)")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	svc, err := requireRevisionService()
	if err != nil {
		return err
	}

	days := cleanupDays
	if days < 0 {
		days = appConfig.RetentionDays
	}

	removed, err := svc.CleanupOldArchives(context.Background(), days)
	if err != nil {
		return fmt.Errorf("cleanup failed after removing %d files: %w", removed, err)
	}

	cmd.Printf("Removed %d archived files older than %d days.\n", removed, days)
	return nil
}
