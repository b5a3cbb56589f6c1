package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/archlens/archlens/internal/errors"
	"github.com/archlens/archlens/internal/graph"
	"github.com/archlens/archlens/internal/models"
)

// IdentityScope selects the identity keys of Field, Method and Parameter nodes
type IdentityScope string

const (
	// ScopeGlobal keys members by name (and type) only, so same-named
	// members of different classes share one node
	ScopeGlobal IdentityScope = "global"

	// ScopeClass adds the owning class (and method, for parameters) to the key
	ScopeClass IdentityScope = "class"
)

// ParseIdentityScope parses a config value; "" means ScopeGlobal
func ParseIdentityScope(s string) (IdentityScope, error) {
	switch IdentityScope(s) {
	case "", ScopeGlobal:
		return ScopeGlobal, nil
	case ScopeClass:
		return ScopeClass, nil
	default:
		return "", errors.ConfigErrorf("invalid identity scope %q (must be global or class)", s)
	}
}

// ApplyStats counts the work done for one record
type ApplyStats struct {
	Statements int // MERGE statements issued

	// SkippedMethodDependencies counts method-level dependencies dropped
	// because the class does not declare them as internal dependencies
	SkippedMethodDependencies int

	// SkippedEmptyDependencies counts blank dependency strings
	SkippedEmptyDependencies int
}

// Engine writes one metadata record into the graph as a fixed sequence of
// idempotent MERGE statements
type Engine struct {
	scope  IdentityScope
	logger *slog.Logger
}

// NewEngine creates an engine with the given identity scope
func NewEngine(scope IdentityScope) *Engine {
	if scope == "" {
		scope = ScopeGlobal
	}
	return &Engine{
		scope:  scope,
		logger: slog.Default().With("component", "engine"),
	}
}

// Scope returns the configured identity scope
func (e *Engine) Scope() IdentityScope {
	return e.scope
}

// Apply merges md into the graph through tx. Steps run in order:
//
//  1. class node and attributes
//  2. owning package
//  3. defining file
//  4. class annotations
//  5. internal dependencies (builds the working set)
//  6. external dependencies
//  7. fields
//  8. methods with parameters, annotations, exceptions and dependencies
//
// The first failing statement aborts the remaining steps. The returned error
// names the step and keeps the store's error kind. md is assumed valid.
func (e *Engine) Apply(ctx context.Context, tx graph.Tx, md *models.CodeMetadata) (*ApplyStats, error) {
	a := &applier{
		engine:   e,
		ctx:      ctx,
		tx:       tx,
		md:       md,
		class:    graph.Node(graph.LabelClass, "name", md.ClassName),
		internal: make(map[string]struct{}),
		stats:    &ApplyStats{},
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"class", a.mergeClass},
		{"package", a.mergePackage},
		{"file", a.mergeFile},
		{"class annotations", a.mergeClassAnnotations},
		{"internal dependencies", a.mergeInternalDependencies},
		{"external dependencies", a.mergeExternalDependencies},
		{"fields", a.mergeFields},
		{"methods", a.mergeMethods},
	}

	for i, step := range steps {
		if err := step.run(); err != nil {
			errors.AddContext(err, "class", md.ClassName)
			errors.AddContext(err, "step", step.name)
			return a.stats, fmt.Errorf("apply %s: step %d (%s): %w", md.ClassName, i+1, step.name, err)
		}
	}

	e.logger.Debug("record applied",
		"class", md.ClassName,
		"statements", a.stats.Statements,
		"skipped_method_dependencies", a.stats.SkippedMethodDependencies)
	return a.stats, nil
}

// applier carries the state of one Apply call
type applier struct {
	engine *Engine
	ctx    context.Context
	tx     graph.Tx
	md     *models.CodeMetadata
	class  graph.NodeRef

	// internal holds bare class names of the record's internal dependencies
	internal map[string]struct{}
	stats    *ApplyStats
}

func (a *applier) node(ref graph.NodeRef, props map[string]any) error {
	a.stats.Statements++
	return a.tx.MergeNode(a.ctx, ref, props)
}

func (a *applier) edge(from graph.NodeRef, rel string, to graph.NodeRef) error {
	a.stats.Statements++
	return a.tx.MergeEdge(a.ctx, from, rel, to)
}

// link merges target and the edge from -[rel]-> target
func (a *applier) link(from graph.NodeRef, rel string, target graph.NodeRef) error {
	if err := a.node(target, nil); err != nil {
		return err
	}
	return a.edge(from, rel, target)
}

func (a *applier) mergeClass() error {
	return a.node(a.class, map[string]any{
		"file_name":            a.md.FileName,
		"type":                 "Class",
		"functionalitySummary": a.md.FunctionalitySummary,
		"layer":                string(a.md.ArchitectureLayer),
	})
}

func (a *applier) mergePackage() error {
	return a.link(a.class, graph.RelBelongsToPackage, graph.Node(graph.LabelPackage, "name", a.md.Package))
}

func (a *applier) mergeFile() error {
	file := graph.Node(graph.LabelFile, "name", a.md.FileName)
	if err := a.node(file, nil); err != nil {
		return err
	}
	return a.edge(file, graph.RelDefinesClass, a.class)
}

func (a *applier) mergeClassAnnotations() error {
	return a.mergeAnnotations(a.class, a.md.ClassAnnotations)
}

func (a *applier) mergeAnnotations(owner graph.NodeRef, names []string) error {
	for _, name := range names {
		if err := a.link(owner, graph.RelHasAnnotation, graph.Node(graph.LabelAnnotation, "name", name)); err != nil {
			return err
		}
	}
	return nil
}

func (a *applier) mergeInternalDependencies() error {
	return a.mergeDependencies(a.md.InternalDependencies, graph.RelHasInternalDependencyOn, true)
}

func (a *applier) mergeExternalDependencies() error {
	return a.mergeDependencies(a.md.ExternalDependencies, graph.RelHasExternalDependencyOn, false)
}

func (a *applier) mergeDependencies(deps []string, rel string, track bool) error {
	for _, raw := range deps {
		dep := ParseDependency(raw)
		if dep.Class == "" {
			a.stats.SkippedEmptyDependencies++
			a.engine.logger.Debug("skipping empty dependency", "class", a.md.ClassName, "dependency", raw)
			continue
		}

		target := graph.Node(graph.LabelClass, "name", dep.Class)
		if err := a.link(a.class, rel, target); err != nil {
			return err
		}
		if dep.HasPackage() {
			pkg := graph.Node(graph.LabelPackage, "name", dep.Package)
			if err := a.link(target, graph.RelBelongsToPackage, pkg); err != nil {
				return err
			}
		}
		if track {
			a.internal[dep.Class] = struct{}{}
		}
	}
	return nil
}

func (a *applier) mergeFields() error {
	for _, f := range a.md.Fields {
		field := a.fieldRef(f)
		if err := a.node(field, map[string]any{
			"isPrimaryKey": f.IsPrimary,
			"isPublic":     f.IsPublic,
			"isStatic":     f.IsStatic,
		}); err != nil {
			return err
		}
		if err := a.edge(a.class, graph.RelHasField, field); err != nil {
			return err
		}
		if err := a.mergeAnnotations(field, f.Annotations); err != nil {
			return err
		}
	}
	return nil
}

func (a *applier) mergeMethods() error {
	for i := range a.md.Methods {
		m := &a.md.Methods[i]
		method := a.methodRef(m)

		if err := a.node(method, map[string]any{
			"returnType":  m.ReturnType,
			"description": m.DescriptionOrNA(),
			"pseudoCode":  m.PseudoCodeOrNA(),
		}); err != nil {
			return err
		}
		if err := a.edge(a.class, graph.RelHasMethod, method); err != nil {
			return err
		}

		for _, p := range m.Parameters {
			if err := a.link(method, graph.RelHasParameter, a.parameterRef(m, p)); err != nil {
				return err
			}
		}
		if err := a.mergeAnnotations(method, m.Annotations); err != nil {
			return err
		}
		for _, exc := range m.ThrowsExceptions {
			if err := a.link(method, graph.RelThrowsException, graph.Node(graph.LabelException, "name", exc)); err != nil {
				return err
			}
		}

		for _, dep := range m.InternalDependencies {
			if _, ok := a.internal[dep]; !ok {
				a.stats.SkippedMethodDependencies++
				continue
			}
			if err := a.link(method, graph.RelHasDependencyOn, graph.Node(graph.LabelClass, "name", dep)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *applier) fieldRef(f models.FieldMetadata) graph.NodeRef {
	if a.engine.scope == ScopeClass {
		return graph.Node(graph.LabelField, "name", f.Name, "type", f.Type, "owner", a.md.ClassName)
	}
	return graph.Node(graph.LabelField, "name", f.Name, "type", f.Type)
}

func (a *applier) methodRef(m *models.MethodMetadata) graph.NodeRef {
	if a.engine.scope == ScopeClass {
		return graph.Node(graph.LabelMethod, "name", m.Name, "owner", a.md.ClassName)
	}
	return graph.Node(graph.LabelMethod, "name", m.Name)
}

func (a *applier) parameterRef(m *models.MethodMetadata, p models.ParameterMetadata) graph.NodeRef {
	if a.engine.scope == ScopeClass {
		return graph.Node(graph.LabelParameter,
			"name", p.Name, "type", p.Type, "owner", a.md.ClassName, "method", m.Name)
	}
	return graph.Node(graph.LabelParameter, "name", p.Name, "type", p.Type)
}
