package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/printdesk/internal/core/domain"
)

// snippetLength bounds the content shown per result in table output.
const snippetLength = 200

var (
	searchModel    string
	searchTopK     int
	searchHybrid   bool
	searchRelax    bool
	searchIdentify bool
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the printer manuals",
	Long: `Performs semantic search across the indexed manual sections.

Results can be restricted to one printer model with --model, or with
--identify the model is resolved from the query text itself. --hybrid
blends keyword overlap into the score; --relax drops the similarity floor.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchModel, "model", "m", "", "restrict results to a printer model")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", domain.DefaultTopK, "number of nearest sections to retrieve")
	searchCmd.Flags().BoolVar(&searchHybrid, "hybrid", false, "blend keyword overlap into the score")
	searchCmd.Flags().BoolVar(&searchRelax, "relax", false, "disable the minimum similarity floor")
	searchCmd.Flags().BoolVar(&searchIdentify, "identify", false, "identify the printer model from the query")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	if searchService == nil {
		return errors.New("search service not configured")
	}

	ctx := cmd.Context()
	opts := domain.SearchOptions{
		ModelFilter: searchModel,
		TopK:        searchTopK,
		Hybrid:      searchHybrid,
	}
	if searchRelax {
		opts.MinSimilarity = -1
	}

	if opts.ModelFilter == "" && searchIdentify {
		model, err := identifyModel(cmd, query)
		if err != nil {
			return err
		}
		opts.ModelFilter = model
	}

	results, err := searchService.Search(ctx, query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchTable(cmd, opts.ModelFilter, results)
}

// identifyModel resolves the model named in the query. A query that does
// not pin down one model searches across every model.
func identifyModel(cmd *cobra.Command, query string) (string, error) {
	if resolverService == nil {
		return "", errors.New("resolver service not configured")
	}

	model, err := resolverService.Identify(cmd.Context(), query, nil)
	switch {
	case err == nil:
		return model, nil
	case errors.Is(err, domain.ErrAmbiguousModel), errors.Is(err, domain.ErrUnknownModel):
		cmd.PrintErrf("Model not identified (%v), searching all models.\n", err)
		return "", nil
	default:
		return "", fmt.Errorf("identify model: %w", err)
	}
}

// searchResultJSON is the JSON shape of one result.
type searchResultJSON struct {
	SectionID    string   `json:"section_id"`
	Title        string   `json:"title"`
	Type         string   `json:"type"`
	PrinterModel string   `json:"printer_model"`
	Score        int      `json:"score"`
	Similarity   float64  `json:"similarity"`
	Keywords     []string `json:"keywords,omitempty"`
	Content      string   `json:"content"`
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	out := make([]searchResultJSON, len(results))
	for i, r := range results {
		out[i] = searchResultJSON{
			SectionID:    r.Section.ID,
			Title:        r.Section.Title,
			Type:         string(r.Section.Type),
			PrinterModel: r.Section.PrinterModel,
			Score:        r.Score,
			Similarity:   r.Similarity,
			Keywords:     r.Section.Keywords,
			Content:      r.Section.Content,
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, model string, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No relevant manual sections found.")
		return nil
	}

	if model != "" {
		cmd.Printf("Results for %s:\n", model)
	} else {
		cmd.Println("Results:")
	}
	cmd.Println()
	for i := range results {
		s := results[i].Section
		title := s.Title
		if title == "" {
			title = s.ID
		}

		cmd.Printf("  [%d] %s (%d)\n", i+1, title, results[i].Score)
		cmd.Printf("      %s · %s\n", s.PrinterModel, s.Type)
		if text := snippet(s.Content, snippetLength); text != "" {
			cmd.Printf("      %s\n", text)
		}
		cmd.Println()
	}

	return nil
}

// snippet flattens whitespace and cuts text to at most n runes.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
