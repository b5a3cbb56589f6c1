package main

import (
	"github.com/archlens/archlens/internal/config"
	"github.com/archlens/archlens/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP tool server on stdio",
	Long: `Expose the graph to agents over the Model Context Protocol on stdin/stdout.

Tools: get_graph_schema, execute_cypher_query (read-only), class_diagram,
package_diagram. Logs go to stderr.`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().Int("max-rows", mcp.DefaultMaxRows, "row cap for execute_cypher_query")
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	maxRows, _ := cmd.Flags().GetInt("max-rows")

	if err := validate(config.ValidationContextMCP); err != nil {
		return err
	}

	backend, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer backend.Close(ctx)

	return mcp.Run(ctx, mcp.NewTools(backend, backend, backend, maxRows), Version)
}
