package graph

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Backend is a property graph store that supports idempotent MERGE writes
// inside explicit transactions. Implementations: Neo4jBackend, MemoryBackend.
type Backend interface {
	// ExecuteWrite runs work inside one write transaction. The transaction
	// commits when work returns nil and rolls back otherwise. operation selects
	// the timeout/metadata profile (see GetConfigForOperation).
	ExecuteWrite(ctx context.Context, operation string, work func(tx Tx) error) error

	// HealthCheck verifies the store is reachable
	HealthCheck(ctx context.Context) error

	// Close releases the connection
	Close(ctx context.Context) error
}

// Tx is the write surface available inside a transaction. Every call is one
// statement; a failing call leaves the transaction unusable.
type Tx interface {
	// MergeNode matches the node by label and identity key, creating it when
	// absent, then sets props on it.
	MergeNode(ctx context.Context, node NodeRef, props map[string]any) error

	// MergeEdge matches both endpoints by identity key and merges a directed
	// relationship of type rel. Both endpoints must already exist.
	MergeEdge(ctx context.Context, from NodeRef, rel string, to NodeRef) error

	// DeleteAll detaches and deletes every node in the graph
	DeleteAll(ctx context.Context) error
}

// Node labels
const (
	LabelClass      = "Class"
	LabelPackage    = "Package"
	LabelFile       = "File"
	LabelAnnotation = "Annotation"
	LabelField      = "Field"
	LabelMethod     = "Method"
	LabelParameter  = "Parameter"
	LabelException  = "Exception"
)

// Relationship types
const (
	RelBelongsToPackage        = "BELONGS_TO_PACKAGE"
	RelDefinesClass            = "DEFINES_CLASS"
	RelHasAnnotation           = "HAS_ANNOTATION"
	RelHasInternalDependencyOn = "HAS_INTERNAL_DEPENDENCY_ON"
	RelHasExternalDependencyOn = "HAS_EXTERNAL_DEPENDENCY_ON"
	RelHasField                = "HAS_FIELD"
	RelHasMethod               = "HAS_METHOD"
	RelHasParameter            = "HAS_PARAMETER"
	RelThrowsException         = "THROWS_EXCEPTION"
	RelHasDependencyOn         = "HAS_DEPENDENCY_ON"
)

// NodeRef addresses a node by label and identity key. Two refs with the same
// label and key values address the same node.
type NodeRef struct {
	Label string
	Key   map[string]any
}

// Node builds a NodeRef from alternating key/value pairs:
//
//	graph.Node("Field", "name", "id", "type", "Long")
func Node(label string, keyValues ...any) NodeRef {
	key := make(map[string]any, len(keyValues)/2)
	for i := 0; i+1 < len(keyValues); i += 2 {
		k, ok := keyValues[i].(string)
		if !ok {
			panic(fmt.Sprintf("graph.Node: key at position %d is %T, want string", i, keyValues[i]))
		}
		key[k] = keyValues[i+1]
	}
	return NodeRef{Label: label, Key: key}
}

// KeyNames returns the identity key property names in sorted order
func (n NodeRef) KeyNames() []string {
	names := make([]string, 0, len(n.Key))
	for k := range n.Key {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ID returns a canonical string for the ref, e.g. `Field{name:"id",type:"Long"}`.
// Values are quoted so separators inside a value cannot alias another key set.
func (n NodeRef) ID() string {
	var sb strings.Builder
	sb.WriteString(n.Label)
	sb.WriteByte('{')
	for i, k := range n.KeyNames() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte(':')
		sb.WriteString(strconv.Quote(fmt.Sprint(n.Key[k])))
	}
	sb.WriteByte('}')
	return sb.String()
}

// String implements fmt.Stringer
func (n NodeRef) String() string {
	return n.ID()
}
