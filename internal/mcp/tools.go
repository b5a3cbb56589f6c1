package mcp

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/archlens/archlens/internal/errors"
	"github.com/archlens/archlens/internal/graph"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SchemaInput takes no arguments
type SchemaInput struct{}

// SchemaOutput is the graph schema as text and as structure
type SchemaOutput struct {
	Schema         string              `json:"schema" jsonschema:"schema rendered as text"`
	NodeProperties map[string][]string `json:"node_properties" jsonschema:"property keys per node label"`
	Relationships  []string            `json:"relationships" jsonschema:"relationship patterns such as (:Class)-[:HAS_METHOD]->(:Method)"`
}

// CypherInput is a read-only query with optional parameters
type CypherInput struct {
	Query      string         `json:"query" jsonschema:"read-only Cypher query"`
	Parameters map[string]any `json:"parameters,omitempty" jsonschema:"query parameters referenced as $name"`
}

// CypherOutput holds the rows returned by a query
type CypherOutput struct {
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	Truncated bool             `json:"truncated"`
}

// NameInput names a class or package
type NameInput struct {
	Name string `json:"name" jsonschema:"class or package name"`
}

// PackageDiagramInput names a package and an optional flowchart direction
type PackageDiagramInput struct {
	Name      string `json:"name" jsonschema:"package name"`
	Direction string `json:"direction,omitempty" jsonschema:"flowchart direction, LR (default) or TD"`
}

// DependenciesInput names a class and how many hops to follow
type DependenciesInput struct {
	ClassName string `json:"class_name" jsonschema:"simple class name"`
	Level     int    `json:"level,omitempty" jsonschema:"maximum hops to follow, default 4, at most 10"`
}

// DependenciesOutput lists the internal dependency edges reachable from a class
type DependenciesOutput struct {
	Class        string                `json:"class"`
	Level        int                   `json:"level"`
	Dependencies []graph.DependencyHop `json:"dependencies"`
}

// DiagramOutput carries Mermaid source
type DiagramOutput struct {
	Subject string `json:"subject"`
	Mermaid string `json:"mermaid"`
}

var writeClause = regexp.MustCompile(`(?i)\b(CREATE|MERGE|DELETE|DETACH|SET|REMOVE|DROP|FOREACH|LOAD\s+CSV)\b`)

// GraphSchema implements get_graph_schema
func (t *Tools) GraphSchema(ctx context.Context, req *mcp.CallToolRequest, _ SchemaInput) (*mcp.CallToolResult, SchemaOutput, error) {
	schema, err := t.schema.Schema(ctx)
	if err != nil {
		return nil, SchemaOutput{}, err
	}

	out := SchemaOutput{
		Schema:         schema.String(),
		NodeProperties: map[string][]string{},
		Relationships:  make([]string, 0, len(schema.Relationships)),
	}
	for label, props := range schema.NodeProperties {
		out.NodeProperties[label] = append([]string{}, props...)
	}
	for _, r := range schema.Relationships {
		out.Relationships = append(out.Relationships, "(:"+r.From+")-[:"+r.Type+"]->(:"+r.To+")")
	}
	return nil, out, nil
}

// ExecuteCypher implements execute_cypher_query
func (t *Tools) ExecuteCypher(ctx context.Context, req *mcp.CallToolRequest, in CypherInput) (*mcp.CallToolResult, CypherOutput, error) {
	if t.query == nil {
		return nil, CypherOutput{}, errors.ConfigErrorf("ad-hoc queries need a Neo4j store")
	}
	if err := CheckReadOnly(in.Query); err != nil {
		return nil, CypherOutput{}, err
	}

	start := time.Now()
	// one extra row tells us whether the cap truncated the result
	rows, err := t.query.ReadQuery(ctx, in.Query, in.Parameters, t.maxRows+1)
	if err != nil {
		return nil, CypherOutput{}, err
	}

	out := CypherOutput{Rows: rows}
	if len(rows) > t.maxRows {
		out.Rows = rows[:t.maxRows]
		out.Truncated = true
	}
	if out.Rows == nil {
		out.Rows = []map[string]any{}
	}
	out.RowCount = len(out.Rows)

	t.logger.Debug("cypher tool query",
		"rows", out.RowCount,
		"truncated", out.Truncated,
		"duration", time.Since(start))
	return nil, out, nil
}

// ClassDiagram implements class_diagram
func (t *Tools) ClassDiagram(ctx context.Context, req *mcp.CallToolRequest, in NameInput) (*mcp.CallToolResult, DiagramOutput, error) {
	if in.Name == "" {
		return nil, DiagramOutput{}, errors.ValidationErrorf("name is required")
	}
	detail, err := t.reader.ClassDetail(ctx, in.Name)
	if err != nil {
		return nil, DiagramOutput{}, err
	}
	text, err := t.renderer.ClassDiagram(detail)
	if err != nil {
		return nil, DiagramOutput{}, err
	}
	return nil, DiagramOutput{Subject: detail.Name, Mermaid: text}, nil
}

// PackageDiagram implements package_diagram
func (t *Tools) PackageDiagram(ctx context.Context, req *mcp.CallToolRequest, in PackageDiagramInput) (*mcp.CallToolResult, DiagramOutput, error) {
	if in.Name == "" {
		return nil, DiagramOutput{}, errors.ValidationErrorf("name is required")
	}
	renderer, err := t.renderer.WithDirection(strings.ToUpper(in.Direction))
	if err != nil {
		return nil, DiagramOutput{}, err
	}
	view, err := t.reader.PackageView(ctx, in.Name)
	if err != nil {
		return nil, DiagramOutput{}, err
	}
	text, err := renderer.PackageDiagram(view)
	if err != nil {
		return nil, DiagramOutput{}, err
	}
	return nil, DiagramOutput{Subject: view.Name, Mermaid: text}, nil
}

// InternalDependencies implements get_internal_dependencies
func (t *Tools) InternalDependencies(ctx context.Context, req *mcp.CallToolRequest, in DependenciesInput) (*mcp.CallToolResult, DependenciesOutput, error) {
	if in.ClassName == "" {
		return nil, DependenciesOutput{}, errors.ValidationErrorf("class_name is required")
	}
	level := graph.ClampDependencyDepth(in.Level)
	hops, err := t.reader.InternalDependencies(ctx, in.ClassName, level)
	if err != nil {
		return nil, DependenciesOutput{}, err
	}
	return nil, DependenciesOutput{Class: in.ClassName, Level: level, Dependencies: hops}, nil
}

// CheckReadOnly rejects empty queries and queries containing write clauses.
// The store also runs tool queries in read-access mode; this check gives a
// clearer error before the round trip.
func CheckReadOnly(query string) error {
	stripped := stripCypherLiterals(query)
	if strings.TrimSpace(stripped) == "" {
		return errors.ValidationErrorf("query is empty")
	}
	if m := writeClause.FindString(stripped); m != "" {
		return errors.ValidationErrorf("query contains write clause %q; only read queries are allowed", m)
	}
	return nil
}

var cypherLiteral = regexp.MustCompile(`'(?:[^'\\]|\\.)*'|"(?:[^"\\]|\\.)*"|//[^\n]*`)

// stripCypherLiterals blanks string literals and comments so keywords inside
// them do not trip the write-clause check
func stripCypherLiterals(query string) string {
	return cypherLiteral.ReplaceAllString(query, "''")
}
