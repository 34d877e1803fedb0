package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/printdesk/internal/adapters/driven/registryfile"
	"github.com/custodia-labs/printdesk/internal/core/domain"
)

var (
	modelsExportFormat string
	modelsRemoveYes    bool
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage the printer model registry",
	Long: `Lists, inspects, imports and exports the printer models known to printdesk.

Registry files may be TOML, YAML or JSON with a top-level "printers" list.`,
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered printer models",
	Args:  cobra.NoArgs,
	RunE:  runModelsList,
}

var modelsShowCmd = &cobra.Command{
	Use:   "show [model]",
	Short: "Show one printer model",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelsShow,
}

var modelsImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Merge printer models from a registry file",
	Long: `Merges models from a TOML, YAML or JSON file into the registry.
Existing entries keep their aliases and features; new ones are added.`,
	Args: cobra.ExactArgs(1),
	RunE: runModelsImport,
}

var modelsExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the registry to a file, or stdout",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runModelsExport,
}

var modelsRemoveCmd = &cobra.Command{
	Use:     "remove [model]",
	Aliases: []string{"rm"},
	Short:   "Remove a printer model and its indexed sections",
	Args:    cobra.ExactArgs(1),
	RunE:    runModelsRemove,
}

func init() {
	modelsExportCmd.Flags().StringVarP(&modelsExportFormat, "format", "f", "toml",
		"output format when writing to stdout (toml, yaml, json)")
	modelsRemoveCmd.Flags().BoolVarP(&modelsRemoveYes, "yes", "y", false, "do not ask for confirmation")

	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsShowCmd)
	modelsCmd.AddCommand(modelsImportCmd)
	modelsCmd.AddCommand(modelsExportCmd)
	modelsCmd.AddCommand(modelsRemoveCmd)
	rootCmd.AddCommand(modelsCmd)
}

func runModelsList(cmd *cobra.Command, _ []string) error {
	if registryService == nil {
		return errors.New("registry service not configured")
	}

	models, err := registryService.Models(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	if len(models) == 0 {
		cmd.Println("No printer models registered.")
		return nil
	}

	cmd.Printf("Printer models (%d):\n\n", len(models))
	for _, m := range models {
		cmd.Printf("  %-12s %-22s %s\n", m.ID, m.DisplayName, joinFeatures(m.Features))
	}
	return nil
}

func runModelsShow(cmd *cobra.Command, args []string) error {
	if registryService == nil {
		return errors.New("registry service not configured")
	}

	m, err := registryService.GetModel(cmd.Context(), args[0])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("model not found: %s", args[0])
		}
		return fmt.Errorf("failed to get model: %w", err)
	}

	cmd.Printf("ID:          %s\n", m.ID)
	cmd.Printf("Name:        %s\n", m.DisplayName)
	cmd.Printf("Series:      %s\n", m.Series)
	if m.Description != "" {
		cmd.Printf("Description: %s\n", m.Description)
	}
	if m.Color != "" {
		cmd.Printf("Color:       %s\n", m.Color)
	}
	cmd.Printf("Size:        %s\n", m.EffectiveSize())
	cmd.Printf("Aliases:     %s\n", strings.Join(m.Aliases, ", "))
	cmd.Printf("Features:    %s\n", joinFeatures(m.Features))
	return nil
}

func runModelsImport(cmd *cobra.Command, args []string) error {
	if registryService == nil {
		return errors.New("registry service not configured")
	}

	models, err := registryfile.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	n, err := registryService.Import(cmd.Context(), models)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	cmd.Printf("Imported %d of %d models from %s.\n", n, len(models), args[0])
	return nil
}

func runModelsExport(cmd *cobra.Command, args []string) error {
	if registryService == nil {
		return errors.New("registry service not configured")
	}

	models, err := registryService.Models(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	if len(args) == 1 {
		if err := registryfile.WriteFile(args[0], models); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		cmd.Printf("Exported %d models to %s.\n", len(models), args[0])
		return nil
	}

	format, err := registryfile.ParseFormat(modelsExportFormat)
	if err != nil {
		return err
	}
	return registryfile.Encode(cmd.OutOrStdout(), format, models)
}

func runModelsRemove(cmd *cobra.Command, args []string) error {
	return removeModel(cmd, args[0], modelsRemoveYes)
}

// removeModel deletes a registry entry and its sections, asking first
// unless confirmed.
func removeModel(cmd *cobra.Command, id string, confirmed bool) error {
	if registryService == nil {
		return errors.New("registry service not configured")
	}

	if !confirmed {
		cmd.Printf("Remove %s and all of its indexed sections? [y/N]: ", id)
		if !confirm(cmd) {
			cmd.Println("Aborted.")
			return nil
		}
	}

	n, err := registryService.DeleteModel(cmd.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("model not found: %s", id)
		}
		return fmt.Errorf("failed to remove model: %w", err)
	}

	cmd.Printf("Removed %s (%d sections).\n", id, n)
	return nil
}

func joinFeatures(features []domain.Feature) string {
	parts := make([]string, len(features))
	for i, f := range features {
		parts[i] = string(f)
	}
	return strings.Join(parts, ", ")
}
