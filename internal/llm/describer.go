package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/archlens/archlens/internal/errors"
	"github.com/archlens/archlens/internal/graph"
	"github.com/archlens/archlens/internal/llm/prompts"
)

// DefaultLanguage for class descriptions
const DefaultLanguage = "english"

// ClassDescriber writes business-facing descriptions of classes from their
// graph detail
type ClassDescriber struct {
	completer Completer
}

// NewClassDescriber creates a describer backed by completer
func NewClassDescriber(completer Completer) *ClassDescriber {
	return &ClassDescriber{completer: completer}
}

// Describe returns a natural language description of detail in language
func (d *ClassDescriber) Describe(ctx context.Context, detail *graph.ClassDetail, language string) (string, error) {
	if strings.TrimSpace(language) == "" {
		language = DefaultLanguage
	}

	raw, err := json.MarshalIndent(detail, "", "  ")
	if err != nil {
		return "", errors.InternalErrorf("failed to encode class %s: %v", detail.Name, err)
	}

	text, err := d.completer.Complete(ctx,
		prompts.ClassDescriptionSystem(language),
		prompts.BuildClassDescriptionPrompt(detail.Name, string(raw), language))
	if err != nil {
		return "", errors.ExternalErrorf(err, "description failed for class %s", detail.Name)
	}
	return strings.TrimSpace(text), nil
}
