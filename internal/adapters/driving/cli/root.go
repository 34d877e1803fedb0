// Package cli implements the printdesk command line.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/printdesk/internal/core/ports/driving"
	"github.com/custodia-labs/printdesk/internal/logger"
)

// version is set at build time.
var version = "dev"

// Services wired by main. Commands check for nil and report the
// service as not configured.
var (
	searchService    driving.SearchService
	resolverService  driving.ResolverService
	registryService  driving.RegistryService
	syncOrchestrator driving.SyncOrchestrator
	settingsService  driving.SettingsService
	changeWatchers   []ChangeWatcher
)

var verbose bool

// ChangeWatcher reports batches of changed manual files for a source.
type ChangeWatcher interface {
	// Name is the source the changes belong to.
	Name() string

	// Watch streams changed paths until ctx is cancelled.
	Watch(ctx context.Context) (<-chan []string, error)
}

// Services holds the core services the commands drive.
type Services struct {
	Search   driving.SearchService
	Resolver driving.ResolverService
	Registry driving.RegistryService
	Sync     driving.SyncOrchestrator
	Settings driving.SettingsService
	Watchers []ChangeWatcher
}

// SetServices installs the services used by every command.
func SetServices(s Services) {
	searchService = s.Search
	resolverService = s.Resolver
	registryService = s.Registry
	syncOrchestrator = s.Sync
	settingsService = s.Settings
	changeWatchers = s.Watchers
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var rootCmd = &cobra.Command{
	Use:   "printdesk",
	Short: "Search Epson printer manuals",
	Long: `printdesk answers support questions from indexed Epson printer manuals.

It identifies the printer model from a free-text description, asks
hardware questions when several models fit, and retrieves the manual
sections most relevant to the problem.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs to stderr")
}

// Execute runs the root command. Command output goes to stdout.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}
