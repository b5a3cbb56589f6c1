// Package mcp exposes the code graph to agents as MCP tools over stdio.
package mcp

import (
	"context"
	"log/slog"

	"github.com/archlens/archlens/internal/diagram"
	"github.com/archlens/archlens/internal/graph"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServerName is advertised during the MCP handshake
const ServerName = "archlens"

// DefaultMaxRows caps execute_cypher_query results
const DefaultMaxRows = 200

// Tool names
const (
	ToolGraphSchema    = "get_graph_schema"
	ToolExecuteCypher  = "execute_cypher_query"
	ToolClassDiagram   = "class_diagram"
	ToolPackageDiagram = "package_diagram"

	ToolInternalDependencies = "get_internal_dependencies"
)

// Tools holds the graph dependencies behind every tool. query may be nil
// when the store cannot run ad-hoc Cypher.
type Tools struct {
	reader   graph.Reader
	schema   graph.SchemaReader
	query    graph.QueryRunner
	renderer *diagram.Renderer
	maxRows  int
	logger   *slog.Logger
}

// NewTools creates the tool set. maxRows <= 0 selects DefaultMaxRows.
func NewTools(reader graph.Reader, schema graph.SchemaReader, query graph.QueryRunner, maxRows int) *Tools {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &Tools{
		reader:   reader,
		schema:   schema,
		query:    query,
		renderer: diagram.NewRenderer(0),
		maxRows:  maxRows,
		logger:   slog.Default().With("component", "mcp"),
	}
}

// NewServer builds an MCP server with every tool registered
func NewServer(tools *Tools, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name: ToolGraphSchema,
		Description: "Returns the node labels with their property keys and the relationship patterns " +
			"of the code graph. Call this before writing Cypher.",
	}, tools.GraphSchema)

	mcp.AddTool(server, &mcp.Tool{
		Name: ToolExecuteCypher,
		Description: "Runs a read-only Cypher query against the code graph and returns the rows. " +
			"Write clauses are rejected.",
	}, tools.ExecuteCypher)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolClassDiagram,
		Description: "Renders a Mermaid class diagram for one class with its members and direct dependencies.",
	}, tools.ClassDiagram)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolPackageDiagram,
		Description: "Renders a Mermaid flowchart of the classes in a package and their dependencies.",
	}, tools.PackageDiagram)

	mcp.AddTool(server, &mcp.Tool{
		Name: ToolInternalDependencies,
		Description: "Lists the internal dependency edges reachable from a class, following up to " +
			"level hops (default 4). Each edge is reported once with the hop at which it is first reached.",
	}, tools.InternalDependencies)

	return server
}

// Run serves the tools on stdin/stdout until ctx is cancelled or the client
// disconnects
func Run(ctx context.Context, tools *Tools, version string) error {
	tools.logger.Info("mcp server starting on stdio")
	return NewServer(tools, version).Run(ctx, &mcp.StdioTransport{})
}
