package diagram

import (
	"fmt"
	"strings"

	"github.com/archlens/archlens/internal/errors"
	"github.com/archlens/archlens/internal/graph"
)

// ClassDiagram renders one class, its members and its direct dependency
// neighbourhood as a Mermaid classDiagram
func (r *Renderer) ClassDiagram(detail *graph.ClassDetail) (string, error) {
	if detail == nil || detail.Name == "" {
		return "", errors.ValidationErrorf("class detail is empty")
	}

	var sb strings.Builder
	id := sanitizeID(detail.Name)

	sb.WriteString("classDiagram\n")
	fmt.Fprintf(&sb, "    class %s[\"%s\"] {\n", id, escapeLabel(detail.Name))
	if detail.Layer != "" {
		fmt.Fprintf(&sb, "        <<%s>>\n", detail.Layer)
	}
	for _, f := range detail.Fields {
		line := fmt.Sprintf("%s%s %s", visibility(f.IsPublic), mermaidType(f.Type), f.Name)
		if f.IsStatic {
			line += "$"
		}
		fmt.Fprintf(&sb, "        %s\n", line)
	}
	for _, m := range detail.Methods {
		params := make([]string, len(m.Parameters))
		for i, p := range m.Parameters {
			params[i] = fmt.Sprintf("%s %s", mermaidType(p.Type), p.Name)
		}
		line := fmt.Sprintf("+%s(%s)", m.Name, strings.Join(params, ", "))
		if m.ReturnType != "" {
			line += " " + mermaidType(m.ReturnType)
		}
		fmt.Fprintf(&sb, "        %s\n", line)
	}
	sb.WriteString("    }\n")

	var edges []string
	for _, dep := range detail.InternalDependencies {
		edges = append(edges, fmt.Sprintf("    %s ..> %s : internal\n", id, sanitizeID(dep)))
	}
	for _, dep := range detail.ExternalDependencies {
		edges = append(edges, fmt.Sprintf("    %s ..> %s : external\n", id, sanitizeID(dep)))
	}
	for _, dep := range detail.Dependents {
		edges = append(edges, fmt.Sprintf("    %s ..> %s\n", sanitizeID(dep), id))
	}

	shown := len(edges)
	if shown > r.maxEdges {
		shown = r.maxEdges
	}
	writeTruncationNote(&sb, shown, len(edges))
	for _, e := range edges[:shown] {
		sb.WriteString(e)
	}
	return sb.String(), nil
}

func visibility(public bool) string {
	if public {
		return "+"
	}
	return "-"
}
