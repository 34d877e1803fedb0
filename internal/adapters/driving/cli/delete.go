package cli

import (
	"bufio"
	"strings"

	"github.com/spf13/cobra"
)

var deleteYes bool

var deleteCmd = &cobra.Command{
	Use:   "delete [model]",
	Short: "Delete a printer model and its manual sections",
	Long: `Deletes a printer model from the registry together with every manual
section indexed for it. Registry entries are never removed any other way.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return removeModel(cmd, args[0], deleteYes)
	},
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "do not ask for confirmation")
	rootCmd.AddCommand(deleteCmd)
}

// confirm reads a yes/no reply from the command input.
//
//nolint:errcheck // CLI helper, error ignored for UX
func confirm(cmd *cobra.Command) bool {
	reader := bufio.NewReader(cmd.InOrStdin())
	input, _ := reader.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes", "s", "sim":
		return true
	default:
		return false
	}
}
