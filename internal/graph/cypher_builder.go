package graph

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// identifierPattern follows the Neo4j naming rules for unquoted identifiers
var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// CypherBuilder builds parameterized Cypher statements. Every value goes
// through a parameter; labels, relationship types and property keys are
// validated as identifiers because Cypher cannot parameterize them.
type CypherBuilder struct {
	params  map[string]any
	counter int
}

// NewCypherBuilder creates a query builder
func NewCypherBuilder() *CypherBuilder {
	return &CypherBuilder{
		params: make(map[string]any),
	}
}

// AddParam adds a parameter and returns its placeholder
func (b *CypherBuilder) AddParam(value any) string {
	paramName := fmt.Sprintf("p%d", b.counter)
	b.counter++
	b.params[paramName] = value
	return "$" + paramName
}

// Params returns all parameters for the query
func (b *CypherBuilder) Params() map[string]any {
	return b.params
}

// BuildMergeNode returns
//
//	MERGE (n:Label {k1: $p0, ...}) SET n.a = $p1, ...
//
// Keys and properties are emitted in sorted order so the same input always
// yields the same statement.
func (b *CypherBuilder) BuildMergeNode(node NodeRef, props map[string]any) (string, error) {
	pattern, err := b.nodePattern("n", node)
	if err != nil {
		return "", err
	}

	query := "MERGE " + pattern
	if len(props) == 0 {
		return query, nil
	}

	keys := make([]string, 0, len(props))
	for k := range props {
		if !isValidIdentifier(k) {
			return "", fmt.Errorf("invalid property key: %s (must be alphanumeric + underscore)", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	setClauses := make([]string, len(keys))
	for i, k := range keys {
		setClauses[i] = fmt.Sprintf("n.%s = %s", k, b.AddParam(props[k]))
	}

	return query + " SET " + strings.Join(setClauses, ", "), nil
}

// BuildMergeEdge returns
//
//	MATCH (from:L {..}) MATCH (to:L {..}) MERGE (from)-[r:REL]->(to) RETURN count(r) AS merged
//
// merged is 0 when either endpoint is missing.
func (b *CypherBuilder) BuildMergeEdge(from NodeRef, rel string, to NodeRef) (string, error) {
	if !isValidIdentifier(rel) {
		return "", fmt.Errorf("invalid relationship type: %s", rel)
	}

	fromPattern, err := b.nodePattern("from", from)
	if err != nil {
		return "", err
	}
	toPattern, err := b.nodePattern("to", to)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"MATCH %s MATCH %s MERGE (from)-[r:%s]->(to) RETURN count(r) AS merged",
		fromPattern, toPattern, rel,
	), nil
}

// BuildDeleteAll returns the statement that empties the graph
func (b *CypherBuilder) BuildDeleteAll() string {
	return "MATCH (n) DETACH DELETE n"
}

func (b *CypherBuilder) nodePattern(variable string, node NodeRef) (string, error) {
	if !isValidIdentifier(node.Label) {
		return "", fmt.Errorf("invalid node label: %s (must be alphanumeric + underscore)", node.Label)
	}
	if len(node.Key) == 0 {
		return "", fmt.Errorf("node %s has no identity key", node.Label)
	}

	keyNames := node.KeyNames()
	keyClauses := make([]string, len(keyNames))
	for i, k := range keyNames {
		if !isValidIdentifier(k) {
			return "", fmt.Errorf("invalid identity key: %s (must be alphanumeric + underscore)", k)
		}
		v := node.Key[k]
		if v == nil {
			return "", fmt.Errorf("identity key %s.%s is null", node.Label, k)
		}
		keyClauses[i] = fmt.Sprintf("%s: %s", k, b.AddParam(v))
	}

	return fmt.Sprintf("(%s:%s {%s})", variable, node.Label, strings.Join(keyClauses, ", ")), nil
}

// isValidIdentifier validates that a string can be safely used as a Cypher identifier
func isValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}
