package cli

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/printdesk/internal/adapters/driving/mcp"
)

var (
	mcpPort int
	mcpHost string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Expose printdesk to AI assistants through the Model Context Protocol.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Serves three tools to an MCP client:

  resolve_printer   identify the printer model in a description
  search_manuals    retrieve manual sections, optionally for one model
  list_printers     list the registered printer models

The registered models are also published as printer:// resources.

Without --port the server speaks JSON-RPC over stdio, which is what
desktop assistants expect:

  {
    "mcpServers": {
      "printdesk": {
        "command": "/path/to/printdesk",
        "args": ["mcp", "serve"]
      }
    }
  }

With --port it serves streamable HTTP instead, for the MCP Inspector or
remote clients:

  printdesk mcp serve --port 8080`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().StringVar(&mcpHost, "host", "localhost", "HTTP bind address")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	if mcpPort < 0 || mcpPort > 65535 {
		return fmt.Errorf("invalid port %d", mcpPort)
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Search:   searchService,
		Resolver: resolverService,
		Registry: registryService,
	})
	if err != nil {
		if errors.Is(err, mcp.ErrMissingSearchService) {
			return fmt.Errorf("%w (is the embedding backend configured?)", err)
		}
		return err
	}

	if mcpPort == 0 {
		return server.Run(cmd.Context())
	}

	addr := net.JoinHostPort(mcpHost, strconv.Itoa(mcpPort))
	// Stdout stays free of protocol traffic in HTTP mode.
	cmd.Printf("MCP server listening on http://%s\n", addr)
	return server.RunHTTP(cmd.Context(), addr)
}
