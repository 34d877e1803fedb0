package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driving"
)

// progressInterval is how often a long sync prints a liveness marker.
const progressInterval = 2 * time.Second

var syncDryRun bool

var syncCmd = &cobra.Command{
	Use:   "sync [source]",
	Short: "Synchronise the index with the manual sources",
	Long: `Compares each manual source with the index and ingests new or changed
manuals, removing models whose manual is gone.

If a source name is provided, only that source is synchronised.
Otherwise, all sources are synchronised. --dry-run prints the plan
without changing anything.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

var syncStatusCmd = &cobra.Command{
	Use:   "status [source]",
	Short: "Show the last sync of each source",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSyncStatus,
}

func init() {
	syncCmd.Flags().BoolVarP(&syncDryRun, "dry-run", "n", false, "show what would change")
	syncCmd.AddCommand(syncStatusCmd)
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}

	sources := syncOrchestrator.Sources()
	if len(args) > 0 {
		sources = args
	}
	if len(sources) == 0 {
		cmd.Println("No manual sources configured.")
		return nil
	}

	ctx := cmd.Context()
	var failed []string
	for _, name := range sources {
		if syncDryRun {
			plan, err := syncOrchestrator.Plan(ctx, name)
			if err != nil {
				return fmt.Errorf("plan failed for %s: %w", name, err)
			}
			printPlan(cmd, name, plan)
			continue
		}

		cmd.Printf("Synchronising source: %s...\n", name)
		stats, err := syncWithProgress(ctx, cmd, syncOrchestrator, name)
		if err != nil {
			if errors.Is(err, domain.ErrSyncInProgress) {
				return fmt.Errorf("source %s is already being synchronised", name)
			}
			return fmt.Errorf("sync failed: %w", err)
		}
		printStats(cmd, stats)
		if stats.Failed() {
			failed = append(failed, name)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("sync finished with errors for: %v", failed)
	}
	return nil
}

// syncWithProgress runs sync while printing a marker for long runs.
func syncWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	syncOrch driving.SyncOrchestrator,
	source string,
) (domain.SyncStats, error) {
	type outcome struct {
		stats domain.SyncStats
		err   error
	}

	// Start sync in goroutine
	done := make(chan outcome, 1)
	go func() {
		stats, err := syncOrch.Sync(ctx, source)
		done <- outcome{stats, err}
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	ticked := false
	for {
		select {
		case o := <-done:
			if ticked {
				cmd.Println()
			}
			return o.stats, o.err
		case <-ticker.C:
			cmd.Print(".")
			ticked = true
		}
	}
}

func runSyncStatus(cmd *cobra.Command, args []string) error {
	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}

	sources := syncOrchestrator.Sources()
	if len(args) > 0 {
		sources = args
	}

	for _, name := range sources {
		status, err := syncOrchestrator.Status(cmd.Context(), name)
		if err != nil {
			return fmt.Errorf("status failed for %s: %w", name, err)
		}

		state := "idle"
		if status.Running {
			state = "running"
		}
		cmd.Printf("%s: %s\n", name, state)
		if last := status.LastRun; last != nil {
			cmd.Printf("  Last run: %s (%s)\n", last.FinishedAt.Format(time.RFC3339), last.RunID)
			cmd.Printf("  Added %d, reindexed %d, removed %d, unchanged %d\n",
				last.Added, last.Reindexed, last.Removed, last.Unchanged)
			if last.Failed() {
				cmd.Printf("  Errors: %d\n", len(last.Errors))
			}
		} else {
			cmd.Println("  Never synchronised.")
		}
	}
	return nil
}

func printPlan(cmd *cobra.Command, source string, plan domain.SyncPlan) {
	cmd.Printf("Plan for %s:\n", source)
	if plan.Empty() {
		cmd.Printf("  Up to date (%d models unchanged).\n", len(plan.Unchanged))
		return
	}
	for _, f := range plan.Add {
		cmd.Printf("  + %-12s %s\n", f.ModelID, f.Name)
	}
	for _, f := range plan.Reindex {
		cmd.Printf("  ~ %-12s %s\n", f.ModelID, f.Name)
	}
	for _, id := range plan.Remove {
		cmd.Printf("  - %s\n", id)
	}
	cmd.Printf("  %d unchanged.\n", len(plan.Unchanged))
}

func printStats(cmd *cobra.Command, stats domain.SyncStats) {
	cmd.Printf("Source %s synchronised: %d added, %d reindexed, %d removed, %d unchanged.\n",
		stats.Source, stats.Added, stats.Reindexed, stats.Removed, stats.Unchanged)
	if stats.SectionsAdded > 0 || stats.SectionsRemoved > 0 {
		cmd.Printf("Sections: +%d -%d\n", stats.SectionsAdded, stats.SectionsRemoved)
	}
	for _, e := range stats.Errors {
		cmd.Printf("  error: %s\n", e)
	}
}
