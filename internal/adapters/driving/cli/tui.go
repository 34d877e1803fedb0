package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/printdesk/internal/adapters/driving/tui"
	"github.com/custodia-labs/printdesk/internal/core/domain"
)

var (
	tuiTopK   int
	tuiHybrid bool
)

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui [description]",
	Short: "Launch the interactive support assistant",
	Long: `Launch the interactive terminal assistant.

It asks which printer you have, narrows the model down with hardware
questions when needed, then searches that model's manual for your problem.

Controls:
  ↑/k, ↓/j - Choose an answer
  Enter    - Confirm / Expand result
  s / n    - Yes / No
  ?        - I don't know
  Esc      - Back
  Ctrl+R   - Start over
  Ctrl+C   - Quit`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().IntVarP(&tuiTopK, "top-k", "k", domain.DefaultTopK, "number of nearest sections to retrieve")
	tuiCmd.Flags().BoolVar(&tuiHybrid, "hybrid", false, "blend keyword overlap into the score")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) (err error) {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	if resolverService == nil {
		return errors.New("resolver service not configured")
	}

	opts := []tui.Option{
		tui.WithSearchOptions(domain.SearchOptions{TopK: tuiTopK, Hybrid: tuiHybrid}),
	}
	if len(args) > 0 {
		opts = append(opts, tui.WithDescription(strings.Join(args, " ")))
	}

	// Create the TUI app
	app, err := tui.NewApp(&tui.Ports{
		Resolver: resolverService,
		Search:   searchService,
	}, opts...)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	// Set up context from command
	app.WithContext(cmd.Context())

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
