package diagram

import (
	"fmt"
	"strings"

	"github.com/archlens/archlens/internal/errors"
	"github.com/archlens/archlens/internal/graph"
)

// PackageDiagram renders a package's classes as a subgraph with their
// outgoing dependencies. Internal dependencies are solid arrows, external ones
// dotted. Targets outside the package are drawn outside the subgraph.
func (r *Renderer) PackageDiagram(view *graph.PackageView) (string, error) {
	if view == nil || view.Name == "" {
		return "", errors.ValidationErrorf("package view is empty")
	}

	members := make(map[string]bool, len(view.Classes))
	for _, c := range view.Classes {
		members[c.Name] = true
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "flowchart %s\n", r.direction)
	fmt.Fprintf(&sb, "    subgraph pkg_%s[\"%s\"]\n", sanitizeID(view.Name), escapeLabel(view.Name))
	for _, c := range view.Classes {
		label := c.Name
		if c.Layer != "" {
			label = fmt.Sprintf("%s (%s)", c.Name, c.Layer)
		}
		fmt.Fprintf(&sb, "        %s[\"%s\"]\n", sanitizeID(c.Name), escapeLabel(label))
	}
	sb.WriteString("    end\n")

	deps := view.Dependencies
	if len(deps) > r.maxEdges {
		deps = deps[:r.maxEdges]
	}
	writeTruncationNote(&sb, len(deps), len(view.Dependencies))

	declared := make(map[string]bool)
	for _, d := range deps {
		toID := sanitizeID(d.To)
		if !(members[d.To] && (d.ToPackage == "" || d.ToPackage == view.Name)) {
			toID = "ext_" + sanitizeID(d.ToPackage+"."+d.To)
			if !declared[toID] {
				declared[toID] = true
				label := d.To
				if d.ToPackage != "" {
					label = d.ToPackage + "." + d.To
				}
				fmt.Fprintf(&sb, "    %s([\"%s\"])\n", toID, escapeLabel(label))
			}
		}

		arrow := "-->"
		if d.Kind == graph.RelHasExternalDependencyOn {
			arrow = "-.->"
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeID(d.From), arrow, toID)
	}
	return sb.String(), nil
}
