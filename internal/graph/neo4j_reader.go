package graph

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	"github.com/archlens/archlens/internal/errors"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const classDependenciesQuery = `
MATCH (p:Package)-[]-(c:Class)-[r:HAS_INTERNAL_DEPENDENCY_ON]->(other:Class)
RETURN p.name AS package_name, c.name AS class_name, count(r) AS dependency_count
ORDER BY dependency_count DESC, class_name, package_name
LIMIT $limit`

const packageClassCountsQuery = `
MATCH (c:Class)-[:BELONGS_TO_PACKAGE]->(p:Package)
RETURN p.name AS package_name, count(c) AS class_count
ORDER BY class_count DESC, package_name`

const labelCountsQuery = `
MATCH (n)
RETURN labels(n)[0] AS label, count(n) AS count
ORDER BY label`

const classExistsQuery = `
MATCH (c:Class {name: $name})
RETURN count(c) AS total`

// internalDependenciesQuery reports the last edge of every bounded path from
// the root; each edge keeps the shortest path length that ends in it. The
// depth bound is formatted in because Cypher does not parameterize it.
const internalDependenciesQuery = `
MATCH p = (:Class {name: $name})-[:HAS_INTERNAL_DEPENDENCY_ON*1..%d]->(:Class)
WITH length(p) AS len, nodes(p) AS ns
RETURN ns[len-1].name AS from, ns[len].name AS to, min(len) AS depth
ORDER BY depth, from, to`

const totalClassesQuery = `
MATCH (c:Class)
RETURN count(c) AS total`

const classDetailQuery = `
MATCH (c:Class {name: $name})
RETURN c.file_name AS file_name, c.layer AS layer, c.functionalitySummary AS summary,
  [(c)-[:BELONGS_TO_PACKAGE]->(p:Package) | p.name] AS packages,
  [(c)-[:HAS_ANNOTATION]->(a:Annotation) | a.name] AS annotations,
  [(c)-[:HAS_INTERNAL_DEPENDENCY_ON]->(d:Class) | d.name] AS internal_dependencies,
  [(c)-[:HAS_EXTERNAL_DEPENDENCY_ON]->(d:Class) | d.name] AS external_dependencies,
  [(d:Class)-[:HAS_INTERNAL_DEPENDENCY_ON]->(c) | d.name] AS dependents,
  [(c)-[:HAS_FIELD]->(f:Field) | {
    name: f.name, type: f.type,
    isPrimaryKey: f.isPrimaryKey, isPublic: f.isPublic, isStatic: f.isStatic,
    annotations: [(f)-[:HAS_ANNOTATION]->(fa:Annotation) | fa.name]
  }] AS fields,
  [(c)-[:HAS_METHOD]->(m:Method) | {
    name: m.name, returnType: m.returnType, description: m.description, pseudoCode: m.pseudoCode,
    parameters: [(m)-[:HAS_PARAMETER]->(pa:Parameter) | {name: pa.name, type: pa.type}],
    annotations: [(m)-[:HAS_ANNOTATION]->(ma:Annotation) | ma.name],
    exceptions: [(m)-[:THROWS_EXCEPTION]->(e:Exception) | e.name],
    dependencies: [(m)-[:HAS_DEPENDENCY_ON]->(dc:Class) | dc.name]
  }] AS methods`

const packageViewQuery = `
MATCH (p:Package {name: $name})
OPTIONAL MATCH (c:Class)-[:BELONGS_TO_PACKAGE]->(p)
RETURN c.name AS name, c.layer AS layer,
  CASE WHEN c IS NULL THEN [] ELSE
    [(c)-[r:HAS_INTERNAL_DEPENDENCY_ON|HAS_EXTERNAL_DEPENDENCY_ON]->(d:Class) | {
      to: d.name, kind: type(r),
      to_packages: [(d)-[:BELONGS_TO_PACKAGE]->(dp:Package) | dp.name]
    }]
  END AS deps`

const schemaNodePropertiesQuery = `
MATCH (n)
UNWIND labels(n) AS label
UNWIND keys(n) AS key
RETURN label, collect(DISTINCT key) AS keys
ORDER BY label`

const schemaRelationshipsQuery = `
MATCH (a)-[r]->(b)
RETURN DISTINCT labels(a)[0] AS from, type(r) AS rel, labels(b)[0] AS to
ORDER BY from, rel, to`

// readRecords runs a read query against the readers with the operation's timeout
func (n *Neo4jBackend) readRecords(ctx context.Context, operation, query string, params map[string]any) ([]*neo4j.Record, error) {
	queryCtx := ctx
	txConfig := GetConfigForOperation(operation)
	if txConfig.Timeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, txConfig.Timeout)
		defer cancel()
	}

	var records []*neo4j.Record
	err := n.monitor.Observe(operation, txConfig.Timeout, func() error {
		result, err := neo4j.ExecuteQuery(queryCtx, n.driver, query, params,
			neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(n.database),
			neo4j.ExecuteQueryWithReadersRouting())
		if err != nil {
			return err
		}
		records = result.Records
		return nil
	})
	if err != nil {
		return nil, classifyError(err, "%s failed", operation)
	}
	return records, nil
}

// ClassDependencies implements Reader
func (n *Neo4jBackend) ClassDependencies(ctx context.Context, limit int) ([]ClassDependency, error) {
	if limit <= 0 {
		limit = DefaultDependencyLimit
	}

	records, err := n.readRecords(ctx, OpReadQuery, classDependenciesQuery, map[string]any{"limit": int64(limit)})
	if err != nil {
		return nil, err
	}

	rows := make([]ClassDependency, 0, len(records))
	for _, rec := range records {
		rows = append(rows, ClassDependency{
			PackageName:     recordString(rec, "package_name"),
			ClassName:       recordString(rec, "class_name"),
			DependencyCount: recordInt(rec, "dependency_count"),
		})
	}
	return rows, nil
}

// PackageClassCounts implements Reader
func (n *Neo4jBackend) PackageClassCounts(ctx context.Context) ([]PackageClassCount, error) {
	records, err := n.readRecords(ctx, OpReadQuery, packageClassCountsQuery, nil)
	if err != nil {
		return nil, err
	}

	rows := make([]PackageClassCount, 0, len(records))
	for _, rec := range records {
		rows = append(rows, PackageClassCount{
			PackageName: recordString(rec, "package_name"),
			ClassCount:  recordInt(rec, "class_count"),
		})
	}
	return rows, nil
}

// LabelCounts implements Reader
func (n *Neo4jBackend) LabelCounts(ctx context.Context) ([]LabelCount, error) {
	records, err := n.readRecords(ctx, OpReadQuery, labelCountsQuery, nil)
	if err != nil {
		return nil, err
	}

	rows := make([]LabelCount, 0, len(records))
	for _, rec := range records {
		rows = append(rows, LabelCount{
			Label: recordString(rec, "label"),
			Count: recordInt(rec, "count"),
		})
	}
	return rows, nil
}

// TotalClasses implements Reader
func (n *Neo4jBackend) TotalClasses(ctx context.Context) (int, error) {
	records, err := n.readRecords(ctx, OpReadQuery, totalClassesQuery, nil)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	return recordInt(records[0], "total"), nil
}

// ClassDetail implements Reader
func (n *Neo4jBackend) ClassDetail(ctx context.Context, name string) (*ClassDetail, error) {
	records, err := n.readRecords(ctx, OpReadQuery, classDetailQuery, map[string]any{"name": name})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.NotFoundf("class %s not found", name)
	}

	rec := records[0]
	detail := &ClassDetail{
		Name:                 name,
		FileName:             recordString(rec, "file_name"),
		Layer:                recordString(rec, "layer"),
		Summary:              recordString(rec, "summary"),
		Packages:             sortedStrings(recordValue(rec, "packages")),
		Annotations:          sortedStrings(recordValue(rec, "annotations")),
		InternalDependencies: sortedStrings(recordValue(rec, "internal_dependencies")),
		ExternalDependencies: sortedStrings(recordValue(rec, "external_dependencies")),
		Dependents:           sortedStrings(recordValue(rec, "dependents")),
		Fields:               []FieldDetail{},
		Methods:              []MethodDetail{},
	}

	for _, item := range asList(recordValue(rec, "fields")) {
		f, _ := item.(map[string]any)
		detail.Fields = append(detail.Fields, FieldDetail{
			Name:         asString(f["name"]),
			Type:         asString(f["type"]),
			IsPrimaryKey: asBool(f["isPrimaryKey"]),
			IsPublic:     asBool(f["isPublic"]),
			IsStatic:     asBool(f["isStatic"]),
			Annotations:  sortedStrings(f["annotations"]),
		})
	}

	for _, item := range asList(recordValue(rec, "methods")) {
		m, _ := item.(map[string]any)
		method := MethodDetail{
			Name:         asString(m["name"]),
			ReturnType:   asString(m["returnType"]),
			Description:  asString(m["description"]),
			PseudoCode:   asString(m["pseudoCode"]),
			Parameters:   []ParameterDetail{},
			Annotations:  sortedStrings(m["annotations"]),
			Exceptions:   sortedStrings(m["exceptions"]),
			Dependencies: sortedStrings(m["dependencies"]),
		}
		for _, p := range asList(m["parameters"]) {
			param, _ := p.(map[string]any)
			method.Parameters = append(method.Parameters, ParameterDetail{
				Name: asString(param["name"]),
				Type: asString(param["type"]),
			})
		}
		detail.Methods = append(detail.Methods, method)
	}

	sortDetail(detail)
	return detail, nil
}

// PackageView implements Reader
func (n *Neo4jBackend) PackageView(ctx context.Context, name string) (*PackageView, error) {
	records, err := n.readRecords(ctx, OpReadQuery, packageViewQuery, map[string]any{"name": name})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.NotFoundf("package %s not found", name)
	}

	view := &PackageView{Name: name, Classes: []PackageClass{}, Dependencies: []ClassEdge{}}
	for _, rec := range records {
		className := recordString(rec, "name")
		if className == "" {
			continue
		}
		view.Classes = append(view.Classes, PackageClass{Name: className, Layer: recordString(rec, "layer")})

		for _, item := range asList(recordValue(rec, "deps")) {
			dep, _ := item.(map[string]any)
			edge := ClassEdge{From: className, To: asString(dep["to"]), Kind: asString(dep["kind"])}
			if pkgs := sortedStrings(dep["to_packages"]); len(pkgs) > 0 {
				edge.ToPackage = pkgs[0]
			}
			view.Dependencies = append(view.Dependencies, edge)
		}
	}

	sortPackageView(view)
	return view, nil
}

// InternalDependencies implements Reader
func (n *Neo4jBackend) InternalDependencies(ctx context.Context, name string, depth int) ([]DependencyHop, error) {
	params := map[string]any{"name": name}
	exists, err := n.readRecords(ctx, OpReadQuery, classExistsQuery, params)
	if err != nil {
		return nil, err
	}
	if len(exists) == 0 || recordInt(exists[0], "total") == 0 {
		return nil, errors.NotFoundf("class %s not found", name)
	}

	query := fmt.Sprintf(internalDependenciesQuery, ClampDependencyDepth(depth))
	records, err := n.readRecords(ctx, OpReadQuery, query, params)
	if err != nil {
		return nil, err
	}

	hops := make([]DependencyHop, 0, len(records))
	for _, rec := range records {
		hops = append(hops, DependencyHop{
			From:  recordString(rec, "from"),
			To:    recordString(rec, "to"),
			Depth: recordInt(rec, "depth"),
		})
	}
	sortHops(hops)
	return hops, nil
}

// Schema implements SchemaReader
func (n *Neo4jBackend) Schema(ctx context.Context) (*GraphSchema, error) {
	nodeRecords, err := n.readRecords(ctx, OpSchemaQuery, schemaNodePropertiesQuery, nil)
	if err != nil {
		return nil, err
	}
	relRecords, err := n.readRecords(ctx, OpSchemaQuery, schemaRelationshipsQuery, nil)
	if err != nil {
		return nil, err
	}

	schema := &GraphSchema{
		NodeProperties: make(map[string][]string, len(nodeRecords)),
		Relationships:  make([]RelationshipPattern, 0, len(relRecords)),
	}
	for _, rec := range nodeRecords {
		schema.NodeProperties[recordString(rec, "label")] = sortedStrings(recordValue(rec, "keys"))
	}
	for _, rec := range relRecords {
		schema.Relationships = append(schema.Relationships, RelationshipPattern{
			From: recordString(rec, "from"),
			Type: recordString(rec, "rel"),
			To:   recordString(rec, "to"),
		})
	}
	sortRelationshipPatterns(schema.Relationships)
	return schema, nil
}

// ReadQuery implements QueryRunner. The session is opened in read access
// mode so the server rejects any write clause. At most maxRows rows are
// returned (0 means no cap).
func (n *Neo4jBackend) ReadQuery(ctx context.Context, cypher string, params map[string]any, maxRows int) ([]map[string]any, error) {
	txConfig := GetConfigForOperation(OpToolQuery)
	session := n.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: n.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	var rows any
	err := n.monitor.Observe(OpToolQuery, txConfig.Timeout, func() error {
		var err error
		rows, err = session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			result, err := tx.Run(ctx, cypher, params)
			if err != nil {
				return nil, err
			}

			out := []map[string]any{}
			for result.Next(ctx) {
				if maxRows > 0 && len(out) >= maxRows {
					break
				}
				rec := result.Record()
				row := make(map[string]any, len(rec.Keys))
				for i, key := range rec.Keys {
					row[key] = toPlainValue(rec.Values[i])
				}
				out = append(out, row)
			}
			if err := result.Err(); err != nil {
				return nil, err
			}
			return out, nil
		}, txConfig.AsNeo4jConfig()...)
		return err
	})
	if err != nil {
		return nil, classifyQueryError(err)
	}
	return rows.([]map[string]any), nil
}

// classifyQueryError blames the caller only when the server rejected the
// query itself (Neo.ClientError.*: syntax, write in read mode, bad
// parameters). Transient and server-side failures stay store errors.
func classifyQueryError(err error) error {
	var neoErr *neo4j.Neo4jError
	if stderrors.As(err, &neoErr) && strings.HasPrefix(neoErr.Code, "Neo.ClientError.") {
		return errors.ValidationError(err, "query rejected")
	}
	return classifyError(err, "query failed")
}

// toPlainValue converts driver graph types into maps and slices that
// encode cleanly as JSON
func toPlainValue(v any) any {
	switch val := v.(type) {
	case neo4j.Node:
		return map[string]any{
			"labels":     val.Labels,
			"properties": toPlainValue(val.Props),
		}
	case neo4j.Relationship:
		return map[string]any{
			"type":       val.Type,
			"properties": toPlainValue(val.Props),
		}
	case neo4j.Path:
		nodes := make([]any, len(val.Nodes))
		for i, node := range val.Nodes {
			nodes[i] = toPlainValue(node)
		}
		rels := make([]any, len(val.Relationships))
		for i, rel := range val.Relationships {
			rels[i] = toPlainValue(rel)
		}
		return map[string]any{"nodes": nodes, "relationships": rels}
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = toPlainValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = toPlainValue(item)
		}
		return out
	case fmt.Stringer:
		return val.String()
	default:
		return v
	}
}

func recordValue(rec *neo4j.Record, key string) any {
	v, _ := rec.Get(key)
	return v
}

func recordString(rec *neo4j.Record, key string) string {
	return asString(recordValue(rec, key))
}

func recordInt(rec *neo4j.Record, key string) int {
	v, _ := recordValue(rec, key).(int64)
	return int(v)
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asList(v any) []any {
	list, _ := v.([]any)
	return list
}

func sortedStrings(v any) []string {
	list := asList(v)
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, asString(item))
	}
	sort.Strings(out)
	return out
}
