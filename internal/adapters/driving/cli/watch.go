package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/services"
	"github.com/custodia-labs/printdesk/internal/logger"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the index in sync with the manual sources",
	Long: `Synchronises every source once, then again whenever files change in a
watched source and, with --interval, periodically. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVarP(&watchInterval, "interval", "i", 0,
		"also sync every source at this interval (0 disables)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	scheduler := services.NewScheduler(syncOrchestrator,
		services.WithInterval(watchInterval),
		services.WithResultHandler(func(stats domain.SyncStats, err error) {
			if err != nil {
				cmd.PrintErrf("sync %s: %v\n", stats.Source, err)
				return
			}
			printStats(cmd, stats)
		}),
	)

	for _, w := range changeWatchers {
		changes, err := w.Watch(ctx)
		if err != nil {
			return fmt.Errorf("watch %s: %w", w.Name(), err)
		}
		go forwardChanges(ctx, w.Name(), changes, scheduler.Trigger)
		cmd.Printf("Watching %s for changes.\n", w.Name())
	}

	err := scheduler.Start(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// forwardChanges triggers a sync of source for every batch of changes.
func forwardChanges(ctx context.Context, source string, changes <-chan []string, trigger func(string)) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-changes:
			if !ok {
				return
			}
			logger.Debug("%d files changed in %s", len(batch), source)
			trigger(source)
		}
	}
}
