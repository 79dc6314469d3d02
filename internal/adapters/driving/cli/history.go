package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [origin-url]",
	Short: "Show all catalogued versions for an origin",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var attemptsLimit int

var attemptsCmd = &cobra.Command{
	Use:   "attempts",
	Short: "Show the download-attempt audit trail",
	Args:  cobra.NoArgs,
	RunE:  runAttempts,
}

func init() {
	attemptsCmd.Flags().IntVarP(&attemptsLimit, "limit", "n", 100, "Maximum number of entries to show")

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(attemptsCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	svc, err := requireRevisionService()
	if err != nil {
		return err
	}

	originURL := args[0]
	docs, err := svc.RevisionHistory(context.Background(), originURL)
	if err != nil {
		return fmt.Errorf("failed to get revision history: %w", err)
	}

	if len(docs) == 0 {
		cmd.Printf("No records for origin: %s\n", originURL)
		return nil
	}

	cmd.Printf("Revision history for %s:\n\n", originURL)
	for _, doc := range docs {
		describeDocument(cmd, doc)
	}
	cmd.Printf("Total: %d versions\n", len(docs))
	return nil
}

func runAttempts(cmd *cobra.Command, _ []string) error {
	svc, err := requireRevisionService()
	if err != nil {
		return err
	}

	attempts, err := svc.Attempts(context.Background(), attemptsLimit)
	if err != nil {
		return fmt.Errorf("failed to list attempts: %w", err)
	}

	if len(attempts) == 0 {
		cmd.Println("No download attempts recorded.")
		return nil
	}

	for _, a := range attempts {
		batch := a.BatchID
		if batch == "" {
			batch = "-"
		}
		cmd.Printf("  %s  %-8s %-22s %s\n", a.Timestamp.Format("2006-01-02 15:04:05"), batch, a.Status, a.OriginURL)
		if a.ErrorMessage != "" {
			cmd.Printf("      %s\n", a.ErrorMessage)
		}
	}
	cmd.Printf("Total: %d attempts\n", len(attempts))
	return nil
}
