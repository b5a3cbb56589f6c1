package ingestion

import "strings"

// Dependency is a classified dependency string. Package is empty for a bare
// class name.
type Dependency struct {
	Package string
	Class   string
}

// HasPackage reports whether the dependency carried a package prefix
func (d Dependency) HasPackage() bool {
	return d.Package != ""
}

// ParseDependency splits a dependency string at its last '.':
//
//	"com.bar.Baz" -> {Package: "com.bar", Class: "Baz"}
//	"Baz"         -> {Class: "Baz"}
func ParseDependency(s string) Dependency {
	s = strings.TrimSpace(s)
	idx := strings.LastIndex(s, ".")
	if idx < 0 {
		return Dependency{Class: s}
	}
	return Dependency{Package: s[:idx], Class: s[idx+1:]}
}
