package graph

import (
	"context"
)

// DefaultDependencyLimit bounds ClassDependencies results
const DefaultDependencyLimit = 20

// Depth bounds for InternalDependencies
const (
	DefaultDependencyDepth = 4
	MaxDependencyDepth     = 10
)

// Reader is the read-only query façade over the populated graph
type Reader interface {
	// ClassDependencies returns classes with their package and the number of
	// outgoing HAS_INTERNAL_DEPENDENCY_ON edges, most dependent first
	ClassDependencies(ctx context.Context, limit int) ([]ClassDependency, error)

	// PackageClassCounts returns the number of classes per package
	PackageClassCounts(ctx context.Context) ([]PackageClassCount, error)

	// LabelCounts returns node counts grouped by primary label
	LabelCounts(ctx context.Context) ([]LabelCount, error)

	// TotalClasses returns the number of Class nodes
	TotalClasses(ctx context.Context) (int, error)

	// ClassDetail returns one class with its members and dependencies.
	// Returns a NotFound error when the class does not exist.
	ClassDetail(ctx context.Context, name string) (*ClassDetail, error)

	// PackageView returns the classes of a package and their dependency edges.
	// Returns a NotFound error when the package does not exist.
	PackageView(ctx context.Context, name string) (*PackageView, error)

	// InternalDependencies walks outgoing HAS_INTERNAL_DEPENDENCY_ON edges
	// from a class up to depth hops. Each edge is reported once, at the hop
	// where it is first reached. Returns a NotFound error when the class does
	// not exist.
	InternalDependencies(ctx context.Context, name string, depth int) ([]DependencyHop, error)
}

// DependencyHop is one internal dependency edge reached from a root class.
// Depth is 1 for the root's direct dependencies.
type DependencyHop struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Depth int    `json:"depth"`
}

// ClampDependencyDepth maps a requested depth into [1, MaxDependencyDepth];
// zero or negative selects DefaultDependencyDepth
func ClampDependencyDepth(depth int) int {
	switch {
	case depth <= 0:
		return DefaultDependencyDepth
	case depth > MaxDependencyDepth:
		return MaxDependencyDepth
	default:
		return depth
	}
}

// ClassDependency is one row of the dependency-count report
type ClassDependency struct {
	PackageName     string `json:"package_name"`
	ClassName       string `json:"class_name"`
	DependencyCount int    `json:"dependency_count"`
}

// PackageClassCount is one row of the classes-per-package report
type PackageClassCount struct {
	PackageName string `json:"package_name"`
	ClassCount  int    `json:"class_count"`
}

// LabelCount is one row of the nodes-per-label report
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ClassDetail is a class with everything attached to it
type ClassDetail struct {
	Name                 string         `json:"name"`
	FileName             string         `json:"file_name,omitempty"`
	Layer                string         `json:"layer,omitempty"`
	Summary              string         `json:"functionality_summary,omitempty"`
	Packages             []string       `json:"packages"`
	Annotations          []string       `json:"annotations"`
	Fields               []FieldDetail  `json:"fields"`
	Methods              []MethodDetail `json:"methods"`
	InternalDependencies []string       `json:"internal_dependencies"`
	ExternalDependencies []string       `json:"external_dependencies"`
	Dependents           []string       `json:"dependents"`
}

// FieldDetail is a Field node attached to a class
type FieldDetail struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	IsPrimaryKey bool     `json:"is_primary_key"`
	IsPublic     bool     `json:"is_public"`
	IsStatic     bool     `json:"is_static"`
	Annotations  []string `json:"annotations"`
}

// MethodDetail is a Method node attached to a class
type MethodDetail struct {
	Name         string            `json:"name"`
	ReturnType   string            `json:"return_type"`
	Description  string            `json:"description"`
	PseudoCode   string            `json:"pseudo_code"`
	Parameters   []ParameterDetail `json:"parameters"`
	Annotations  []string          `json:"annotations"`
	Exceptions   []string          `json:"exceptions"`
	Dependencies []string          `json:"dependencies"`
}

// ParameterDetail is a Parameter node attached to a method
type ParameterDetail struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// PackageView is a package, its classes and their outgoing class dependencies
type PackageView struct {
	Name         string         `json:"name"`
	Classes      []PackageClass `json:"classes"`
	Dependencies []ClassEdge    `json:"dependencies"`
}

// PackageClass is a class member of a package
type PackageClass struct {
	Name  string `json:"name"`
	Layer string `json:"layer,omitempty"`
}

// ClassEdge is a class-to-class dependency. Kind is RelHasInternalDependencyOn
// or RelHasExternalDependencyOn; ToPackage is empty when the target has no
// package link.
type ClassEdge struct {
	From      string `json:"from"`
	To        string `json:"to"`
	ToPackage string `json:"to_package,omitempty"`
	Kind      string `json:"kind"`
}
