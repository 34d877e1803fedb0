package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/printdesk/internal/core/domain"
)

var resolveJSON bool

var resolveCmd = &cobra.Command{
	Use:   "resolve [text]",
	Short: "Identify printer models named in free text",
	Long: `Matches a free-text description against the printer model registry
and lists the candidate models with their confidence.

An exact alias match identifies the model outright. When the text names
an Epson model that is not registered, a registry entry is proposed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "output the resolution as JSON")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	if resolverService == nil {
		return errors.New("resolver service not configured")
	}

	text := strings.Join(args, " ")
	res, err := resolverService.Resolve(cmd.Context(), text)
	if err != nil {
		return fmt.Errorf("resolve failed: %w", err)
	}

	if resolveJSON {
		data, err := json.MarshalIndent(toResolutionJSON(res), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal resolution: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(res.Candidates) == 0 {
		cmd.Println("No registered model matches.")
	} else {
		cmd.Println("Candidates:")
		for _, c := range res.Candidates {
			cmd.Printf("  %-12s %5.2f  %s\n", c.ModelID, c.Confidence, c.Kind)
		}
		if id, ok := res.Unique(); ok {
			cmd.Printf("\nIdentified model: %s\n", id)
		}
	}

	if p := res.Proposed; p != nil {
		cmd.Printf("\nUnregistered model mentioned: %s (%s series)\n", p.ID, p.Series)
		cmd.Println("Add it with 'printdesk models import' or by ingesting its manual.")
	}

	return nil
}

// resolutionJSON is the JSON shape of a resolution.
type resolutionJSON struct {
	Identified string          `json:"identified,omitempty"`
	Candidates []candidateJSON `json:"candidates"`
	Proposed   string          `json:"proposed,omitempty"`
}

type candidateJSON struct {
	ModelID    string  `json:"model_id"`
	Confidence float64 `json:"confidence"`
	Kind       string  `json:"kind"`
}

func toResolutionJSON(res domain.Resolution) resolutionJSON {
	out := resolutionJSON{Candidates: make([]candidateJSON, len(res.Candidates))}
	for i, c := range res.Candidates {
		out.Candidates[i] = candidateJSON{ModelID: c.ModelID, Confidence: c.Confidence, Kind: string(c.Kind)}
	}
	if id, ok := res.Unique(); ok {
		out.Identified = id
	}
	if res.Proposed != nil {
		out.Proposed = res.Proposed.ID
	}
	return out
}

// candidateIDs returns the IDs of the plausible candidates, or every
// candidate when none reaches the threshold.
func candidateIDs(res domain.Resolution, threshold float64) []string {
	cands := res.Plausible(threshold)
	if len(cands) == 0 {
		cands = res.Candidates
	}
	ids := make([]string, len(cands))
	for i, c := range cands {
		ids[i] = c.ModelID
	}
	return ids
}
