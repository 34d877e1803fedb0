package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/printdesk/internal/adapters/driving/tui"
	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/services"
)

var (
	funnelCandidates []string
	funnelAnswers    map[string]string
	funnelBatch      bool
)

// isTerminal reports whether stdin is interactive. Tests replace it.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

var funnelCmd = &cobra.Command{
	Use:   "funnel [text]",
	Short: "Narrow down the printer model with hardware questions",
	Long: `Asks hardware questions (duplex, ADF, colour, size...) until one printer
model remains.

The candidates come from --candidates, from the models named in the text,
or from the whole registry. On a terminal the questions are asked
interactively; otherwise, or with --batch, answers are read from
--answer flags keyed by question ID, for example:

  printdesk funnel "l3150 ou l4150" --answer duplex=sim`,
	RunE: runFunnel,
}

func init() {
	funnelCmd.Flags().StringSliceVarP(&funnelCandidates, "candidates", "c", nil, "candidate model IDs")
	funnelCmd.Flags().StringToStringVarP(&funnelAnswers, "answer", "a", nil, "answer as question=value")
	funnelCmd.Flags().BoolVar(&funnelBatch, "batch", false, "never ask interactively")
	rootCmd.AddCommand(funnelCmd)
}

func runFunnel(cmd *cobra.Command, args []string) error {
	if resolverService == nil {
		return errors.New("resolver service not configured")
	}

	ctx := cmd.Context()
	text := strings.Join(args, " ")
	ids := funnelCandidates

	if len(ids) == 0 && text != "" {
		res, err := resolverService.Resolve(ctx, text)
		if err != nil {
			return fmt.Errorf("resolve failed: %w", err)
		}
		if id, ok := res.Unique(); ok {
			cmd.Printf("Identified model: %s\n", id)
			return nil
		}
		ids = candidateIDs(res, services.DefaultPlausibleThreshold)
		switch len(ids) {
		case 0:
			return fmt.Errorf("%w: no registered model matches %q", domain.ErrUnknownModel, text)
		case 1:
			cmd.Printf("Identified model: %s\n", ids[0])
			return nil
		}
	}

	if len(funnelAnswers) == 0 && !funnelBatch && isTerminal() {
		return runFunnelTUI(cmd, ids)
	}

	outcome, err := resolverService.Disambiguate(ctx, ids, funnelAnswers)
	if err != nil {
		return fmt.Errorf("funnel failed: %w", err)
	}
	printOutcome(cmd, outcome)

	if outcome.Status != domain.FunnelResolved && len(funnelAnswers) == 0 {
		return printFirstQuestion(cmd, ids)
	}
	return nil
}

func runFunnelTUI(cmd *cobra.Command, ids []string) error {
	app, err := tui.NewApp(&tui.Ports{
		Resolver: resolverService,
		Search:   searchService,
	}, tui.WithCandidates(ids))
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	if out := app.Outcome(); out != nil {
		printOutcome(cmd, *out)
	}
	return app.Err()
}

func printOutcome(cmd *cobra.Command, out domain.FunnelOutcome) {
	switch out.Status {
	case domain.FunnelResolved:
		cmd.Printf("Identified model: %s\n", out.ModelID)
	default:
		cmd.Printf("Could not separate: %s\n", strings.Join(out.Remaining, ", "))
	}
	if len(out.Asked) > 0 {
		cmd.Printf("Questions used: %s\n", strings.Join(out.Asked, ", "))
	}
}

// printFirstQuestion shows what to answer when the funnel ran without answers.
func printFirstQuestion(cmd *cobra.Command, ids []string) error {
	session, err := resolverService.StartFunnel(cmd.Context(), ids)
	if err != nil {
		return fmt.Errorf("funnel failed: %w", err)
	}
	q := session.Question()
	if q == nil {
		return nil
	}

	cmd.Printf("\nNext question (%s): %s\n", q.Stage.ID, q.Stage.Prompt)
	if len(q.Options) > 0 {
		cmd.Printf("Options: %s\n", strings.Join(q.Options, ", "))
	}
	cmd.Printf("Answer with --answer %s=<value>\n", q.Stage.ID)
	return nil
}
