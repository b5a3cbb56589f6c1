package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// SchemaReader describes the shape of the stored graph
type SchemaReader interface {
	Schema(ctx context.Context) (*GraphSchema, error)
}

// QueryRunner executes caller-supplied Cypher in a read-only session.
// Rows are converted to JSON-friendly values.
type QueryRunner interface {
	ReadQuery(ctx context.Context, cypher string, params map[string]any, maxRows int) ([]map[string]any, error)
}

// GraphSchema lists node labels with their property keys and the
// relationship patterns present in the graph
type GraphSchema struct {
	NodeProperties map[string][]string  `json:"node_properties"`
	Relationships  []RelationshipPattern `json:"relationships"`
}

// RelationshipPattern is one (:From)-[:Type]->(:To) combination
type RelationshipPattern struct {
	From string `json:"from"`
	Type string `json:"type"`
	To   string `json:"to"`
}

// String renders the schema as text suitable for an LLM prompt
func (s *GraphSchema) String() string {
	var sb strings.Builder

	labels := make([]string, 0, len(s.NodeProperties))
	for label := range s.NodeProperties {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	sb.WriteString("Node properties:\n")
	for _, label := range labels {
		fmt.Fprintf(&sb, "%s {%s}\n", label, strings.Join(s.NodeProperties[label], ", "))
	}

	sb.WriteString("Relationships:\n")
	for _, r := range s.Relationships {
		fmt.Fprintf(&sb, "(:%s)-[:%s]->(:%s)\n", r.From, r.Type, r.To)
	}
	return sb.String()
}

func sortRelationshipPatterns(patterns []RelationshipPattern) {
	sort.Slice(patterns, func(i, j int) bool {
		a, b := patterns[i], patterns[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.To < b.To
	})
}

// Schema implements SchemaReader
func (m *MemoryBackend) Schema(ctx context.Context) (*GraphSchema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keySets := make(map[string]map[string]struct{})
	for _, n := range m.graph.nodes {
		set, ok := keySets[n.label]
		if !ok {
			set = make(map[string]struct{})
			keySets[n.label] = set
		}
		for k := range n.props {
			set[k] = struct{}{}
		}
	}

	schema := &GraphSchema{
		NodeProperties: make(map[string][]string, len(keySets)),
		Relationships:  []RelationshipPattern{},
	}
	for label, set := range keySets {
		keys := make([]string, 0, len(set))
		for k := range set {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		schema.NodeProperties[label] = keys
	}

	seen := make(map[RelationshipPattern]struct{})
	for _, e := range m.graph.edgeOrder {
		p := RelationshipPattern{
			From: m.graph.nodes[e.from].label,
			Type: e.rel,
			To:   m.graph.nodes[e.to].label,
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		schema.Relationships = append(schema.Relationships, p)
	}
	sortRelationshipPatterns(schema.Relationships)

	return schema, nil
}
