package graph

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/archlens/archlens/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedGraph(t *testing.T, b *MemoryBackend) {
	t.Helper()
	ctx := context.Background()

	err := b.ExecuteWrite(ctx, OpRecordUpsert, func(tx Tx) error {
		pkg := Node(LabelPackage, "name", "com.acme")
		ext := Node(LabelPackage, "name", "org.lib")
		foo := Node(LabelClass, "name", "Foo")
		bar := Node(LabelClass, "name", "Bar")
		baz := Node(LabelClass, "name", "Baz")
		util := Node(LabelClass, "name", "Util")
		field := Node(LabelField, "name", "id", "type", "Long")
		method := Node(LabelMethod, "name", "doWork")
		param := Node(LabelParameter, "name", "x", "type", "int")

		for _, n := range []NodeRef{pkg, ext, bar, baz, util, field, param} {
			require.NoError(t, tx.MergeNode(ctx, n, nil))
		}
		require.NoError(t, tx.MergeNode(ctx, foo, map[string]any{"layer": "Service", "file_name": "Foo.java"}))
		require.NoError(t, tx.MergeNode(ctx, field, map[string]any{"isPrimaryKey": true}))
		require.NoError(t, tx.MergeNode(ctx, method, map[string]any{"returnType": "void", "description": "NA"}))

		edges := []struct {
			from NodeRef
			rel  string
			to   NodeRef
		}{
			{foo, RelBelongsToPackage, pkg},
			{bar, RelBelongsToPackage, pkg},
			{baz, RelBelongsToPackage, pkg},
			{util, RelBelongsToPackage, ext},
			{foo, RelHasInternalDependencyOn, bar},
			{foo, RelHasInternalDependencyOn, baz},
			{bar, RelHasInternalDependencyOn, baz},
			{foo, RelHasExternalDependencyOn, util},
			{foo, RelHasField, field},
			{foo, RelHasMethod, method},
			{method, RelHasParameter, param},
			{method, RelHasDependencyOn, bar},
		}
		for _, e := range edges {
			require.NoError(t, tx.MergeEdge(ctx, e.from, e.rel, e.to))
		}
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryBackend_MergeIsIdempotent(t *testing.T) {
	b := NewMemoryBackend()
	seedGraph(t, b)
	nodes, edges := b.NodeCount(""), b.EdgeCount("")

	seedGraph(t, b)
	assert.Equal(t, nodes, b.NodeCount(""))
	assert.Equal(t, edges, b.EdgeCount(""))
}

func TestMemoryBackend_MergeNodeUpdatesProps(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()
	foo := Node(LabelClass, "name", "Foo")

	for _, layer := range []string{"Service", "Controller"} {
		require.NoError(t, b.ExecuteWrite(ctx, OpRecordUpsert, func(tx Tx) error {
			return tx.MergeNode(ctx, foo, map[string]any{"layer": layer})
		}))
	}

	props, ok := b.NodeProperties(foo)
	require.True(t, ok)
	assert.Equal(t, "Controller", props["layer"])
	assert.Equal(t, "Foo", props["name"])
	assert.Equal(t, 1, b.NodeCount(LabelClass))
}

func TestMemoryBackend_EdgeRequiresEndpoints(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	err := b.ExecuteWrite(ctx, OpRecordUpsert, func(tx Tx) error {
		if err := tx.MergeNode(ctx, Node(LabelClass, "name", "Foo"), nil); err != nil {
			return err
		}
		return tx.MergeEdge(ctx, Node(LabelClass, "name", "Foo"), RelHasInternalDependencyOn, Node(LabelClass, "name", "Ghost"))
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeDatabase, errors.GetType(err))
}

func TestMemoryBackend_FailedTransactionRollsBack(t *testing.T) {
	b := NewMemoryBackend()
	seedGraph(t, b)
	ctx := context.Background()
	before := b.NodeCount("")

	boom := stderrors.New("boom")
	err := b.ExecuteWrite(ctx, OpCollectionLoad, func(tx Tx) error {
		require.NoError(t, tx.DeleteAll(ctx))
		require.NoError(t, tx.MergeNode(ctx, Node(LabelClass, "name", "Temp"), nil))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, b.NodeCount(""))
	assert.False(t, b.HasNode(Node(LabelClass, "name", "Temp")))
}

func TestMemoryBackend_DeleteAll(t *testing.T) {
	b := NewMemoryBackend()
	seedGraph(t, b)
	ctx := context.Background()

	require.NoError(t, b.ExecuteWrite(ctx, OpGraphWipe, func(tx Tx) error {
		return tx.DeleteAll(ctx)
	}))
	assert.Zero(t, b.NodeCount(""))
	assert.Zero(t, b.EdgeCount(""))
}

func TestMemoryBackend_ClassDependencies(t *testing.T) {
	b := NewMemoryBackend()
	seedGraph(t, b)

	rows, err := b.ClassDependencies(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []ClassDependency{
		{PackageName: "com.acme", ClassName: "Foo", DependencyCount: 2},
		{PackageName: "com.acme", ClassName: "Bar", DependencyCount: 1},
	}, rows)

	rows, err = b.ClassDependencies(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestMemoryBackend_Counts(t *testing.T) {
	b := NewMemoryBackend()
	seedGraph(t, b)
	ctx := context.Background()

	pkgs, err := b.PackageClassCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []PackageClassCount{
		{PackageName: "com.acme", ClassCount: 3},
		{PackageName: "org.lib", ClassCount: 1},
	}, pkgs)

	labels, err := b.LabelCounts(ctx)
	require.NoError(t, err)
	assert.Contains(t, labels, LabelCount{Label: LabelClass, Count: 4})
	assert.Contains(t, labels, LabelCount{Label: LabelPackage, Count: 2})

	total, err := b.TotalClasses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
}

func TestMemoryBackend_ClassDetail(t *testing.T) {
	b := NewMemoryBackend()
	seedGraph(t, b)
	ctx := context.Background()

	detail, err := b.ClassDetail(ctx, "Foo")
	require.NoError(t, err)
	assert.Equal(t, "Service", detail.Layer)
	assert.Equal(t, []string{"com.acme"}, detail.Packages)
	assert.Equal(t, []string{"Bar", "Baz"}, detail.InternalDependencies)
	assert.Equal(t, []string{"Util"}, detail.ExternalDependencies)
	require.Len(t, detail.Fields, 1)
	assert.True(t, detail.Fields[0].IsPrimaryKey)
	require.Len(t, detail.Methods, 1)
	assert.Equal(t, []ParameterDetail{{Name: "x", Type: "int"}}, detail.Methods[0].Parameters)
	assert.Equal(t, []string{"Bar"}, detail.Methods[0].Dependencies)

	bar, err := b.ClassDetail(ctx, "Bar")
	require.NoError(t, err)
	assert.Equal(t, []string{"Foo"}, bar.Dependents)

	_, err = b.ClassDetail(ctx, "Nope")
	assert.Equal(t, errors.ErrorTypeNotFound, errors.GetType(err))
}

func TestMemoryBackend_PackageView(t *testing.T) {
	b := NewMemoryBackend()
	seedGraph(t, b)
	ctx := context.Background()

	view, err := b.PackageView(ctx, "com.acme")
	require.NoError(t, err)
	assert.Equal(t, []PackageClass{{Name: "Bar"}, {Name: "Baz"}, {Name: "Foo", Layer: "Service"}}, view.Classes)
	assert.Contains(t, view.Dependencies, ClassEdge{From: "Foo", To: "Util", ToPackage: "org.lib", Kind: RelHasExternalDependencyOn})
	assert.Len(t, view.Dependencies, 4)

	_, err = b.PackageView(ctx, "com.none")
	assert.Equal(t, errors.ErrorTypeNotFound, errors.GetType(err))
}

func TestMemoryBackend_Schema(t *testing.T) {
	b := NewMemoryBackend()
	seedGraph(t, b)

	schema, err := b.Schema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"file_name", "layer", "name"}, schema.NodeProperties[LabelClass])
	assert.Contains(t, schema.Relationships, RelationshipPattern{From: LabelMethod, Type: RelHasParameter, To: LabelParameter})

	text := schema.String()
	assert.Contains(t, text, "Field {isPrimaryKey, name, type}")
	assert.Contains(t, text, "(:Class)-[:HAS_FIELD]->(:Field)")
}

func TestMemoryBackend_DistinctKeysWithSeparators(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	require.NoError(t, b.ExecuteWrite(ctx, OpRecordUpsert, func(tx Tx) error {
		if err := tx.MergeNode(ctx, Node(LabelField, "name", "a,type:b", "type", "c"), nil); err != nil {
			return err
		}
		return tx.MergeNode(ctx, Node(LabelField, "name", "a", "type", "b,type:c"), nil)
	}))
	assert.Equal(t, 2, b.NodeCount(LabelField))
}

// chainGraph links A -> B -> C -> D -> E -> A plus A -> C
func chainGraph(t *testing.T) *MemoryBackend {
	t.Helper()
	b := NewMemoryBackend()
	ctx := context.Background()

	names := []string{"A", "B", "C", "D", "E"}
	require.NoError(t, b.ExecuteWrite(ctx, OpRecordUpsert, func(tx Tx) error {
		for _, n := range names {
			require.NoError(t, tx.MergeNode(ctx, Node(LabelClass, "name", n), nil))
		}
		for i, n := range names {
			next := names[(i+1)%len(names)]
			require.NoError(t, tx.MergeEdge(ctx, Node(LabelClass, "name", n), RelHasInternalDependencyOn, Node(LabelClass, "name", next)))
		}
		return tx.MergeEdge(ctx, Node(LabelClass, "name", "A"), RelHasInternalDependencyOn, Node(LabelClass, "name", "C"))
	}))
	return b
}

func TestMemoryBackend_InternalDependencies(t *testing.T) {
	b := chainGraph(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		depth int
		want  []DependencyHop
	}{
		{
			name:  "direct only",
			depth: 1,
			want:  []DependencyHop{{"A", "B", 1}, {"A", "C", 1}},
		},
		{
			name:  "cut off at two",
			depth: 2,
			want:  []DependencyHop{{"A", "B", 1}, {"A", "C", 1}, {"B", "C", 2}, {"C", "D", 2}},
		},
		{
			name:  "cycle back to root reported once",
			depth: 4,
			want: []DependencyHop{
				{"A", "B", 1}, {"A", "C", 1},
				{"B", "C", 2}, {"C", "D", 2},
				{"D", "E", 3},
				{"E", "A", 4},
			},
		},
		{
			name:  "deep walk terminates on the cycle",
			depth: MaxDependencyDepth,
			want: []DependencyHop{
				{"A", "B", 1}, {"A", "C", 1},
				{"B", "C", 2}, {"C", "D", 2},
				{"D", "E", 3},
				{"E", "A", 4},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hops, err := b.InternalDependencies(ctx, "A", tt.depth)
			require.NoError(t, err)
			assert.Equal(t, tt.want, hops)
		})
	}
}

func TestMemoryBackend_InternalDependenciesEdgeCases(t *testing.T) {
	b := chainGraph(t)
	ctx := context.Background()

	hops, err := b.InternalDependencies(ctx, "A", 0)
	require.NoError(t, err)
	assert.Len(t, hops, 6, "zero depth uses the default of four")

	_, err = b.InternalDependencies(ctx, "Ghost", 2)
	assert.Equal(t, errors.ErrorTypeNotFound, errors.GetType(err))

	leaf := NewMemoryBackend()
	require.NoError(t, leaf.ExecuteWrite(ctx, OpRecordUpsert, func(tx Tx) error {
		return tx.MergeNode(ctx, Node(LabelClass, "name", "Lonely"), nil)
	}))
	hops, err = leaf.InternalDependencies(ctx, "Lonely", 3)
	require.NoError(t, err)
	assert.Empty(t, hops)
	assert.NotNil(t, hops)
}

func TestClampDependencyDepth(t *testing.T) {
	assert.Equal(t, DefaultDependencyDepth, ClampDependencyDepth(0))
	assert.Equal(t, DefaultDependencyDepth, ClampDependencyDepth(-3))
	assert.Equal(t, 2, ClampDependencyDepth(2))
	assert.Equal(t, MaxDependencyDepth, ClampDependencyDepth(99))
}
