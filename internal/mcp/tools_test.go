package mcp

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/archlens/archlens/internal/errors"
	"github.com/archlens/archlens/internal/graph"
	"github.com/archlens/archlens/internal/ingestion"
	"github.com/archlens/archlens/internal/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRunner returns n synthetic rows and records the cap it was given
type stubRunner struct {
	n       int
	err     error
	gotCap  int
	gotText string
}

func (s *stubRunner) ReadQuery(ctx context.Context, cypher string, params map[string]any, maxRows int) ([]map[string]any, error) {
	s.gotCap, s.gotText = maxRows, cypher
	if s.err != nil {
		return nil, s.err
	}
	rows := []map[string]any{}
	for i := 0; i < s.n && i < maxRows; i++ {
		rows = append(rows, map[string]any{"i": i})
	}
	return rows, nil
}

func seeded(t *testing.T) *graph.MemoryBackend {
	t.Helper()
	backend := graph.NewMemoryBackend()
	records := []*models.CodeMetadata{
		{
			FileName:             "Foo.java",
			Package:              "com.acme",
			ClassName:            "Foo",
			InternalDependencies: []string{"com.acme.Bar"},
			Methods:              []models.MethodMetadata{{Name: "run", ReturnType: "void"}},
			ArchitectureLayer:    models.LayerController,
		},
		{FileName: "Bar.java", Package: "com.acme", ClassName: "Bar", ArchitectureLayer: models.LayerService},
	}
	_, err := ingestion.NewLoader(backend, nil).Load(context.Background(), records, ingestion.LoadModeAllOrNothing)
	require.NoError(t, err)
	return backend
}

func TestGraphSchemaTool(t *testing.T) {
	backend := seeded(t)
	tools := NewTools(backend, backend, nil, 0)

	_, out, err := tools.GraphSchema(context.Background(), nil, SchemaInput{})
	require.NoError(t, err)

	assert.Contains(t, out.NodeProperties, graph.LabelClass)
	assert.Contains(t, out.NodeProperties[graph.LabelClass], "layer")
	assert.Contains(t, out.Relationships, "(:Class)-[:HAS_METHOD]->(:Method)")
	assert.Contains(t, out.Schema, "Relationships:")
}

func TestExecuteCypherTool(t *testing.T) {
	backend := seeded(t)

	t.Run("rows within cap", func(t *testing.T) {
		runner := &stubRunner{n: 3}
		tools := NewTools(backend, backend, runner, 10)

		_, out, err := tools.ExecuteCypher(context.Background(), nil, CypherInput{Query: "MATCH (c:Class) RETURN c.name"})
		require.NoError(t, err)
		assert.Equal(t, 3, out.RowCount)
		assert.False(t, out.Truncated)
		assert.Equal(t, 11, runner.gotCap)
	})

	t.Run("truncated", func(t *testing.T) {
		tools := NewTools(backend, backend, &stubRunner{n: 50}, 10)

		_, out, err := tools.ExecuteCypher(context.Background(), nil, CypherInput{Query: "MATCH (n) RETURN n"})
		require.NoError(t, err)
		assert.Equal(t, 10, out.RowCount)
		assert.Len(t, out.Rows, 10)
		assert.True(t, out.Truncated)
	})

	t.Run("write rejected before store", func(t *testing.T) {
		runner := &stubRunner{}
		tools := NewTools(backend, backend, runner, 10)

		_, _, err := tools.ExecuteCypher(context.Background(), nil, CypherInput{Query: "MATCH (n) DETACH DELETE n"})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
		assert.Empty(t, runner.gotText)
	})

	t.Run("no runner", func(t *testing.T) {
		tools := NewTools(backend, backend, nil, 10)
		_, _, err := tools.ExecuteCypher(context.Background(), nil, CypherInput{Query: "MATCH (n) RETURN n"})
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	})

	t.Run("store error passes through", func(t *testing.T) {
		runner := &stubRunner{err: errors.NetworkErrorf(fmt.Errorf("refused"), "neo4j unreachable")}
		tools := NewTools(backend, backend, runner, 10)
		_, _, err := tools.ExecuteCypher(context.Background(), nil, CypherInput{Query: "MATCH (n) RETURN n"})
		assert.True(t, errors.IsType(err, errors.ErrorTypeNetwork))
	})
}

func TestCheckReadOnly(t *testing.T) {
	tests := []struct {
		query string
		ok    bool
	}{
		{"MATCH (c:Class) RETURN c.name", true},
		{"MATCH (c:Class) WHERE c.name = 'CreateOrder' RETURN c", true},
		{"MATCH (c:Class {name: \"DeleteUser\"}) RETURN c", true},
		{"MATCH (c:Class)-[:HAS_METHOD]->(m) RETURN c.name, count(m) AS methods ORDER BY methods DESC", true},
		{"CALL db.labels()", true},
		{"", false},
		{"   ", false},
		{"CREATE (n:Class {name: 'X'})", false},
		{"MATCH (n) SET n.x = 1", false},
		{"merge (n:Package {name: 'p'})", false},
		{"MATCH (n) DETACH DELETE n", false},
		{"MATCH (n) REMOVE n.layer", false},
		{"LOAD  CSV FROM 'file:///x' AS row RETURN row", false},
	}
	for _, tt := range tests {
		err := CheckReadOnly(tt.query)
		if tt.ok {
			assert.NoError(t, err, tt.query)
		} else {
			assert.Error(t, err, tt.query)
		}
	}
}

func TestDiagramTools(t *testing.T) {
	backend := seeded(t)
	tools := NewTools(backend, backend, nil, 0)
	ctx := context.Background()

	_, class, err := tools.ClassDiagram(ctx, nil, NameInput{Name: "Foo"})
	require.NoError(t, err)
	assert.Contains(t, class.Mermaid, "<<Controller>>")
	assert.Contains(t, class.Mermaid, "Foo ..> Bar : internal")

	_, pkg, err := tools.PackageDiagram(ctx, nil, PackageDiagramInput{Name: "com.acme"})
	require.NoError(t, err)
	assert.Equal(t, "com.acme", pkg.Subject)
	assert.Contains(t, pkg.Mermaid, "flowchart LR")
	assert.Contains(t, pkg.Mermaid, "Foo --> Bar")

	_, pkg, err = tools.PackageDiagram(ctx, nil, PackageDiagramInput{Name: "com.acme", Direction: "td"})
	require.NoError(t, err)
	assert.Contains(t, pkg.Mermaid, "flowchart TD")

	_, _, err = tools.PackageDiagram(ctx, nil, PackageDiagramInput{Name: "com.acme", Direction: "sideways"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, _, err = tools.ClassDiagram(ctx, nil, NameInput{Name: "Missing"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	_, _, err = tools.PackageDiagram(ctx, nil, PackageDiagramInput{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestInternalDependenciesTool(t *testing.T) {
	backend := seeded(t)
	tools := NewTools(backend, backend, nil, 0)
	ctx := context.Background()

	_, out, err := tools.InternalDependencies(ctx, nil, DependenciesInput{ClassName: "Foo"})
	require.NoError(t, err)
	assert.Equal(t, "Foo", out.Class)
	assert.Equal(t, graph.DefaultDependencyDepth, out.Level)
	assert.Equal(t, []graph.DependencyHop{{From: "Foo", To: "Bar", Depth: 1}}, out.Dependencies)

	_, out, err = tools.InternalDependencies(ctx, nil, DependenciesInput{ClassName: "Bar", Level: 99})
	require.NoError(t, err)
	assert.Equal(t, graph.MaxDependencyDepth, out.Level)
	assert.NotNil(t, out.Dependencies)
	assert.Empty(t, out.Dependencies)

	_, _, err = tools.InternalDependencies(ctx, nil, DependenciesInput{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, _, err = tools.InternalDependencies(ctx, nil, DependenciesInput{ClassName: "Ghost"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestServerOverInMemoryTransport(t *testing.T) {
	backend := seeded(t)
	server := NewServer(NewTools(backend, backend, &stubRunner{n: 1}, 0), "test")
	ctx := context.Background()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close()

	listed, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range listed.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{ToolClassDiagram, ToolExecuteCypher, ToolGraphSchema, ToolInternalDependencies, ToolPackageDiagram}, names)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      ToolClassDiagram,
		Arguments: map[string]any{"name": "Foo"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	require.NotEmpty(t, res.Content)

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      ToolInternalDependencies,
		Arguments: map[string]any{"class_name": "Foo", "level": 2},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      ToolExecuteCypher,
		Arguments: map[string]any{"query": "CREATE (n)"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError, "tool errors are reported in the result")
}
