package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "List all current documents",
	Args:  cobra.NoArgs,
	RunE:  runInventory,
}

func init() {
	rootCmd.AddCommand(inventoryCmd)
}

func runInventory(cmd *cobra.Command, _ []string) error {
	svc, err := requireRevisionService()
	if err != nil {
		return err
	}

	docs, err := svc.CurrentInventory(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list inventory: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No current documents.")
		return nil
	}

	cmd.Println("Current documents:")
	cmd.Println()
	for _, doc := range docs {
		describeDocument(cmd, doc)
	}
	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}
