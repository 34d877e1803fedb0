package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/printdesk/internal/core/domain"
)

var ingestModel string

var ingestCmd = &cobra.Command{
	Use:   "ingest [pdf]",
	Short: "Index one manual PDF",
	Long: `Extracts, embeds and indexes a manual PDF, replacing whatever was
indexed for the same printer model.

The model is taken from --model or derived from the file name
(for example "Manual L3150.pdf").`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestModel, "model", "m", "", "printer model the manual belongs to")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}

	cmd.Printf("Ingesting %s...\n", args[0])

	report, err := syncOrchestrator.Ingest(cmd.Context(), args[0], ingestModel)
	if err != nil {
		if errors.Is(err, domain.ErrSyncInProgress) {
			return errors.New("another sync or ingest is running, try again later")
		}
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Printf("Indexed %d sections for %s", report.Sections, report.ModelID)
	if report.Replaced > 0 {
		cmd.Printf(" (replaced %d)", report.Replaced)
	}
	cmd.Println(".")
	if report.PageWarnings > 0 {
		cmd.Printf("Warning: %d pages could not be read.\n", report.PageWarnings)
	}
	return nil
}
