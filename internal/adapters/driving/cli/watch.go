package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jasonmooney/mds-knowledge-capture/internal/adapters/driving/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the inbox directory for fetcher drops",
	Long: `Watches the configured inbox directory for files dropped by the
external fetcher (a payload plus a .json sidecar descriptor) and runs
each through revision control as it arrives. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	svc, err := requireRevisionService()
	if err != nil {
		return err
	}

	watcher, err := watch.New(appConfig.InboxDir, svc)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Watching %s (Ctrl-C to stop)...\n", appConfig.InboxDir)
	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	cmd.Println("Watcher stopped.")
	return nil
}
