// Package diagram renders graph query results as Mermaid diagram text.
package diagram

import (
	"fmt"
	"io"
	"strings"

	"github.com/archlens/archlens/internal/errors"
)

// DefaultMaxEdges bounds the dependency edges drawn in one diagram
const DefaultMaxEdges = 100

// Renderer produces Mermaid source. It holds no state besides its limits and
// is safe for concurrent use.
type Renderer struct {
	maxEdges  int
	direction string // LR or TD, package flowcharts only
}

// NewRenderer creates a renderer. maxEdges <= 0 selects DefaultMaxEdges.
func NewRenderer(maxEdges int) *Renderer {
	if maxEdges <= 0 {
		maxEdges = DefaultMaxEdges
	}
	return &Renderer{maxEdges: maxEdges, direction: "LR"}
}

// WithDirection returns a copy of r drawing package flowcharts in dir
// (LR or TD). An empty dir keeps the current direction.
func (r *Renderer) WithDirection(dir string) (*Renderer, error) {
	switch dir {
	case "":
		return r, nil
	case "LR", "TD":
		c := *r
		c.direction = dir
		return &c, nil
	default:
		return nil, errors.ValidationErrorf("unsupported direction %q (want LR or TD)", dir)
	}
}

// sanitizeID maps a name to a Mermaid-safe identifier
func sanitizeID(name string) string {
	var sb strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			sb.WriteRune(c)
		default:
			sb.WriteRune('_')
		}
	}
	if sb.Len() == 0 {
		return "_"
	}
	return sb.String()
}

// mermaidType rewrites Java generics to Mermaid's tilde notation
func mermaidType(t string) string {
	return strings.NewReplacer("<", "~", ">", "~", " ", "").Replace(t)
}

// escapeLabel makes text safe inside a quoted node label
func escapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}

func writeTruncationNote(w io.Writer, shown, total int) {
	if total > shown {
		fmt.Fprintf(w, "    %%%% showing %d of %d dependencies\n", shown, total)
	}
}
