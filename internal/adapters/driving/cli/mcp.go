package cli

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-docs/internal/adapters/driving/mcp"
)

var (
	mcpPort int
	mcpHost string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol integration",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the document collection to MCP clients",
	Long: `Serve the document collection over the Model Context Protocol.

Without --port the server speaks JSON-RPC on stdin and stdout, which is
what desktop assistants expect when they launch sercha-docs themselves:

  {"mcpServers": {"sercha-docs": {"command": "sercha-docs", "args": ["mcp", "serve"]}}}

With --port it serves streamable HTTP instead. Ingestion workers and the
watch folder keep running while the server is up.`,
	Example: `  sercha-docs mcp serve
  sercha-docs mcp serve --port 8081`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "serve streamable HTTP on this port instead of stdio")
	mcpServeCmd.Flags().StringVar(&mcpHost, "host", "localhost", "interface for --port")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	server, err := mcp.NewServer(&mcp.Ports{Query: queryService, Document: documentService})
	if err != nil {
		return err
	}

	stop, err := startBackground(cmd)
	if err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	defer stop()

	if mcpPort > 0 {
		return server.RunHTTP(cmd.Context(), net.JoinHostPort(mcpHost, strconv.Itoa(mcpPort)))
	}
	return server.Run(cmd.Context())
}
