package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jasonmooney/mds-knowledge-capture/internal/core/domain"
)

var processCmd = &cobra.Command{
	Use:   "process [batch.json]",
	Short: "Process a batch of fetched document descriptors",
	Long: `Reads a JSON array of candidate descriptors produced by the fetcher
and runs each through revision control: new documents are placed,
updated documents supersede their archived predecessor, unchanged
documents are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	svc, err := requireRevisionService()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading batch file: %w", err)
	}

	var candidates []domain.Candidate
	if err := json.Unmarshal(data, &candidates); err != nil {
		return fmt.Errorf("parsing batch file: %w", err)
	}
	if len(candidates) == 0 {
		cmd.Println("Batch file contains no candidates.")
		return nil
	}

	processed, procErr := svc.ProcessDocuments(context.Background(), candidates)

	for _, p := range processed {
		action := "new"
		if p.IsUpdate {
			action = "updated"
		}
		cmd.Printf("  %-8s %s -> %s\n", action, p.OriginURL, p.CurrentFilePath)
		if p.ArchivedPreviousPath != "" {
			cmd.Printf("           previous archived at %s\n", p.ArchivedPreviousPath)
		}
	}

	cmd.Printf("Placed %d of %d candidates.\n", len(processed), len(candidates))
	if procErr != nil {
		return fmt.Errorf("some candidates failed: %w", procErr)
	}
	return nil
}
