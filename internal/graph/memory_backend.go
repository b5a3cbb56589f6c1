package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/archlens/archlens/internal/errors"
)

// MemoryBackend is an in-process graph with the same MERGE semantics as the
// Neo4j backend. Each write transaction works on a copy that replaces the
// live graph only on commit, so a failed transaction leaves no trace.
// Used by tests and by dry-run loads.
type MemoryBackend struct {
	mu    sync.RWMutex
	graph *memGraph
}

type memNode struct {
	label string
	props map[string]any
}

type memEdge struct {
	from, rel, to string
}

type memGraph struct {
	nodes     map[string]*memNode
	nodeOrder []string
	edges     map[memEdge]struct{}
	edgeOrder []memEdge
}

// NewMemoryBackend creates an empty in-memory graph
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{graph: newMemGraph()}
}

func newMemGraph() *memGraph {
	return &memGraph{
		nodes: make(map[string]*memNode),
		edges: make(map[memEdge]struct{}),
	}
}

func (g *memGraph) clone() *memGraph {
	c := &memGraph{
		nodes:     make(map[string]*memNode, len(g.nodes)),
		nodeOrder: append([]string(nil), g.nodeOrder...),
		edges:     make(map[memEdge]struct{}, len(g.edges)),
		edgeOrder: append([]memEdge(nil), g.edgeOrder...),
	}
	for id, n := range g.nodes {
		props := make(map[string]any, len(n.props))
		for k, v := range n.props {
			props[k] = v
		}
		c.nodes[id] = &memNode{label: n.label, props: props}
	}
	for e := range g.edges {
		c.edges[e] = struct{}{}
	}
	return c
}

// ExecuteWrite implements Backend. Transactions are serialized.
func (m *MemoryBackend) ExecuteWrite(ctx context.Context, operation string, work func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return errors.DatabaseErrorf(err, "%s transaction not started", operation)
	}

	staged := m.graph.clone()
	if err := work(&memTx{graph: staged}); err != nil {
		return err
	}
	m.graph = staged
	return nil
}

// HealthCheck implements Backend
func (m *MemoryBackend) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}

// Close implements Backend
func (m *MemoryBackend) Close(ctx context.Context) error {
	return nil
}

type memTx struct {
	graph *memGraph
}

func (t *memTx) MergeNode(ctx context.Context, node NodeRef, props map[string]any) error {
	if err := ctx.Err(); err != nil {
		return errors.DatabaseErrorf(err, "merge %s aborted", node.ID())
	}
	if _, err := NewCypherBuilder().BuildMergeNode(node, props); err != nil {
		return errors.DatabaseErrorf(err, "invalid merge for %s", node.ID())
	}

	id := node.ID()
	n, ok := t.graph.nodes[id]
	if !ok {
		n = &memNode{label: node.Label, props: make(map[string]any, len(node.Key)+len(props))}
		for k, v := range node.Key {
			n.props[k] = v
		}
		t.graph.nodes[id] = n
		t.graph.nodeOrder = append(t.graph.nodeOrder, id)
	}
	for k, v := range props {
		n.props[k] = v
	}
	return nil
}

func (t *memTx) MergeEdge(ctx context.Context, from NodeRef, rel string, to NodeRef) error {
	if err := ctx.Err(); err != nil {
		return errors.DatabaseErrorf(err, "merge %s aborted", rel)
	}
	if !isValidIdentifier(rel) {
		return errors.DatabaseErrorf(fmt.Errorf("invalid relationship type: %s", rel), "invalid merge")
	}

	fromID, toID := from.ID(), to.ID()
	if _, ok := t.graph.nodes[fromID]; !ok {
		return errors.DatabaseErrorf(fmt.Errorf("node %s not found", fromID), "merge %s failed", rel)
	}
	if _, ok := t.graph.nodes[toID]; !ok {
		return errors.DatabaseErrorf(fmt.Errorf("node %s not found", toID), "merge %s failed", rel)
	}

	e := memEdge{from: fromID, rel: rel, to: toID}
	if _, ok := t.graph.edges[e]; !ok {
		t.graph.edges[e] = struct{}{}
		t.graph.edgeOrder = append(t.graph.edgeOrder, e)
	}
	return nil
}

func (t *memTx) DeleteAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.DatabaseErrorf(err, "delete all aborted")
	}
	*t.graph = *newMemGraph()
	return nil
}

// NodeCount returns the number of nodes with label, or all nodes for ""
func (m *MemoryBackend) NodeCount(label string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if label == "" {
		return len(m.graph.nodes)
	}
	count := 0
	for _, n := range m.graph.nodes {
		if n.label == label {
			count++
		}
	}
	return count
}

// EdgeCount returns the number of relationships of type rel, or all for ""
func (m *MemoryBackend) EdgeCount(rel string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if rel == "" {
		return len(m.graph.edges)
	}
	count := 0
	for e := range m.graph.edges {
		if e.rel == rel {
			count++
		}
	}
	return count
}

// HasNode reports whether the node exists
func (m *MemoryBackend) HasNode(node NodeRef) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.graph.nodes[node.ID()]
	return ok
}

// HasEdge reports whether the relationship exists
func (m *MemoryBackend) HasEdge(from NodeRef, rel string, to NodeRef) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.graph.edges[memEdge{from: from.ID(), rel: rel, to: to.ID()}]
	return ok
}

// NodeProperties returns a copy of the node's properties
func (m *MemoryBackend) NodeProperties(node NodeRef) (map[string]any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.graph.nodes[node.ID()]
	if !ok {
		return nil, false
	}
	props := make(map[string]any, len(n.props))
	for k, v := range n.props {
		props[k] = v
	}
	return props, true
}

// Reader implementation

func (g *memGraph) targets(fromID, rel string) []string {
	var out []string
	for _, e := range g.edgeOrder {
		if e.from == fromID && e.rel == rel {
			out = append(out, e.to)
		}
	}
	return out
}

func (g *memGraph) sources(toID, rel string) []string {
	var out []string
	for _, e := range g.edgeOrder {
		if e.to == toID && e.rel == rel {
			out = append(out, e.from)
		}
	}
	return out
}

func (g *memGraph) str(id, key string) string {
	n, ok := g.nodes[id]
	if !ok {
		return ""
	}
	if v, ok := n.props[key]; ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func (g *memGraph) flag(id, key string) bool {
	n, ok := g.nodes[id]
	if !ok {
		return false
	}
	b, _ := n.props[key].(bool)
	return b
}

func (g *memGraph) names(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.str(id, "name"))
	}
	sort.Strings(out)
	return out
}

// ClassDependencies implements Reader
func (m *MemoryBackend) ClassDependencies(ctx context.Context, limit int) ([]ClassDependency, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		limit = DefaultDependencyLimit
	}

	g := m.graph
	rows := []ClassDependency{}
	for _, id := range g.nodeOrder {
		if g.nodes[id].label != LabelClass {
			continue
		}
		count := 0
		for _, to := range g.targets(id, RelHasInternalDependencyOn) {
			if g.nodes[to].label == LabelClass {
				count++
			}
		}
		if count == 0 {
			continue
		}
		for _, pkg := range g.targets(id, RelBelongsToPackage) {
			rows = append(rows, ClassDependency{
				PackageName:     g.str(pkg, "name"),
				ClassName:       g.str(id, "name"),
				DependencyCount: count,
			})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].DependencyCount != rows[j].DependencyCount {
			return rows[i].DependencyCount > rows[j].DependencyCount
		}
		if rows[i].ClassName != rows[j].ClassName {
			return rows[i].ClassName < rows[j].ClassName
		}
		return rows[i].PackageName < rows[j].PackageName
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// PackageClassCounts implements Reader
func (m *MemoryBackend) PackageClassCounts(ctx context.Context) ([]PackageClassCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g := m.graph
	counts := make(map[string]int)
	for _, e := range g.edgeOrder {
		if e.rel != RelBelongsToPackage || g.nodes[e.from].label != LabelClass {
			continue
		}
		counts[g.str(e.to, "name")]++
	}

	rows := make([]PackageClassCount, 0, len(counts))
	for name, count := range counts {
		rows = append(rows, PackageClassCount{PackageName: name, ClassCount: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ClassCount != rows[j].ClassCount {
			return rows[i].ClassCount > rows[j].ClassCount
		}
		return rows[i].PackageName < rows[j].PackageName
	})
	return rows, nil
}

// LabelCounts implements Reader
func (m *MemoryBackend) LabelCounts(ctx context.Context) ([]LabelCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int)
	for _, n := range m.graph.nodes {
		counts[n.label]++
	}

	rows := make([]LabelCount, 0, len(counts))
	for label, count := range counts {
		rows = append(rows, LabelCount{Label: label, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Label < rows[j].Label })
	return rows, nil
}

// TotalClasses implements Reader
func (m *MemoryBackend) TotalClasses(ctx context.Context) (int, error) {
	return m.NodeCount(LabelClass), nil
}

// ClassDetail implements Reader
func (m *MemoryBackend) ClassDetail(ctx context.Context, name string) (*ClassDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g := m.graph
	id := Node(LabelClass, "name", name).ID()
	if _, ok := g.nodes[id]; !ok {
		return nil, errors.NotFoundf("class %s not found", name)
	}

	detail := &ClassDetail{
		Name:                 name,
		FileName:             g.str(id, "file_name"),
		Layer:                g.str(id, "layer"),
		Summary:              g.str(id, "functionalitySummary"),
		Packages:             g.names(g.targets(id, RelBelongsToPackage)),
		Annotations:          g.names(g.targets(id, RelHasAnnotation)),
		InternalDependencies: g.names(g.targets(id, RelHasInternalDependencyOn)),
		ExternalDependencies: g.names(g.targets(id, RelHasExternalDependencyOn)),
		Dependents:           g.names(g.sources(id, RelHasInternalDependencyOn)),
		Fields:               []FieldDetail{},
		Methods:              []MethodDetail{},
	}

	for _, fid := range g.targets(id, RelHasField) {
		detail.Fields = append(detail.Fields, FieldDetail{
			Name:         g.str(fid, "name"),
			Type:         g.str(fid, "type"),
			IsPrimaryKey: g.flag(fid, "isPrimaryKey"),
			IsPublic:     g.flag(fid, "isPublic"),
			IsStatic:     g.flag(fid, "isStatic"),
			Annotations:  g.names(g.targets(fid, RelHasAnnotation)),
		})
	}

	for _, mid := range g.targets(id, RelHasMethod) {
		method := MethodDetail{
			Name:         g.str(mid, "name"),
			ReturnType:   g.str(mid, "returnType"),
			Description:  g.str(mid, "description"),
			PseudoCode:   g.str(mid, "pseudoCode"),
			Parameters:   []ParameterDetail{},
			Annotations:  g.names(g.targets(mid, RelHasAnnotation)),
			Exceptions:   g.names(g.targets(mid, RelThrowsException)),
			Dependencies: g.names(g.targets(mid, RelHasDependencyOn)),
		}
		for _, pid := range g.targets(mid, RelHasParameter) {
			method.Parameters = append(method.Parameters, ParameterDetail{
				Name: g.str(pid, "name"),
				Type: g.str(pid, "type"),
			})
		}
		detail.Methods = append(detail.Methods, method)
	}

	sortDetail(detail)
	return detail, nil
}

// PackageView implements Reader
func (m *MemoryBackend) PackageView(ctx context.Context, name string) (*PackageView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g := m.graph
	pkgID := Node(LabelPackage, "name", name).ID()
	if _, ok := g.nodes[pkgID]; !ok {
		return nil, errors.NotFoundf("package %s not found", name)
	}

	view := &PackageView{Name: name, Classes: []PackageClass{}, Dependencies: []ClassEdge{}}
	for _, cid := range g.sources(pkgID, RelBelongsToPackage) {
		if g.nodes[cid].label != LabelClass {
			continue
		}
		view.Classes = append(view.Classes, PackageClass{Name: g.str(cid, "name"), Layer: g.str(cid, "layer")})

		for _, rel := range []string{RelHasInternalDependencyOn, RelHasExternalDependencyOn} {
			for _, target := range g.targets(cid, rel) {
				edge := ClassEdge{From: g.str(cid, "name"), To: g.str(target, "name"), Kind: rel}
				if pkgs := g.targets(target, RelBelongsToPackage); len(pkgs) > 0 {
					edge.ToPackage = g.names(pkgs)[0]
				}
				view.Dependencies = append(view.Dependencies, edge)
			}
		}
	}

	sortPackageView(view)
	return view, nil
}

// InternalDependencies implements Reader with a breadth-first walk
func (m *MemoryBackend) InternalDependencies(ctx context.Context, name string, depth int) ([]DependencyHop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g := m.graph
	root := Node(LabelClass, "name", name).ID()
	if _, ok := g.nodes[root]; !ok {
		return nil, errors.NotFoundf("class %s not found", name)
	}
	depth = ClampDependencyDepth(depth)

	hops := []DependencyHop{}
	seen := map[string]bool{root: true}
	frontier := []string{root}
	for level := 1; level <= depth && len(frontier) > 0; level++ {
		var next []string
		for _, from := range frontier {
			for _, to := range g.targets(from, RelHasInternalDependencyOn) {
				hops = append(hops, DependencyHop{From: g.str(from, "name"), To: g.str(to, "name"), Depth: level})
				if !seen[to] {
					seen[to] = true
					next = append(next, to)
				}
			}
		}
		frontier = next
	}

	sortHops(hops)
	return hops, nil
}

func sortHops(hops []DependencyHop) {
	sort.Slice(hops, func(i, j int) bool {
		if hops[i].Depth != hops[j].Depth {
			return hops[i].Depth < hops[j].Depth
		}
		if hops[i].From != hops[j].From {
			return hops[i].From < hops[j].From
		}
		return hops[i].To < hops[j].To
	})
}

func sortDetail(d *ClassDetail) {
	sort.Slice(d.Fields, func(i, j int) bool {
		if d.Fields[i].Name != d.Fields[j].Name {
			return d.Fields[i].Name < d.Fields[j].Name
		}
		return d.Fields[i].Type < d.Fields[j].Type
	})
	sort.Slice(d.Methods, func(i, j int) bool { return d.Methods[i].Name < d.Methods[j].Name })
	for i := range d.Methods {
		params := d.Methods[i].Parameters
		sort.Slice(params, func(a, b int) bool {
			if params[a].Name != params[b].Name {
				return params[a].Name < params[b].Name
			}
			return params[a].Type < params[b].Type
		})
	}
}

func sortPackageView(v *PackageView) {
	sort.Slice(v.Classes, func(i, j int) bool { return v.Classes[i].Name < v.Classes[j].Name })
	sort.Slice(v.Dependencies, func(i, j int) bool {
		a, b := v.Dependencies[i], v.Dependencies[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.To < b.To
	})
}
