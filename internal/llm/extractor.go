package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/archlens/archlens/internal/errors"
	"github.com/archlens/archlens/internal/llm/prompts"
	"github.com/archlens/archlens/internal/models"
)

// JavaExtractor extracts metadata records from Java source with an LLM
type JavaExtractor struct {
	completer Completer
	logger    *slog.Logger
}

// NewJavaExtractor creates an extractor backed by completer
func NewJavaExtractor(completer Completer) *JavaExtractor {
	return &JavaExtractor{
		completer: completer,
		logger:    slog.Default().With("component", "extractor"),
	}
}

// Extract sends source to the LLM and returns the decoded, validated record.
// LLM failures are External errors; malformed or invalid output is a
// Validation error. Fatal completer errors (no provider configured) are
// returned unchanged so the caller stops instead of skipping the file.
func (e *JavaExtractor) Extract(ctx context.Context, fileName, source string) (*models.CodeMetadata, error) {
	raw, err := e.completer.CompleteJSON(ctx,
		prompts.JavaExtractionSystem,
		prompts.BuildJavaExtractionPrompt(fileName, source),
		CodeMetadataSchema())
	if err != nil {
		if errors.IsFatal(err) {
			return nil, err
		}
		return nil, errors.ExternalErrorf(err, "extraction failed for %s", fileName)
	}

	md, err := DecodeMetadata(raw)
	if err != nil {
		return nil, errors.ValidationError(err, fmt.Sprintf("unusable extraction for %s", fileName))
	}
	if md.FileName == "" {
		md.FileName = fileName
	}
	if err := md.Validate(); err != nil {
		return nil, errors.ValidationError(err, fmt.Sprintf("invalid extraction for %s", fileName))
	}

	e.logger.Debug("extracted metadata",
		"file", fileName,
		"class", md.ClassName,
		"methods", len(md.Methods),
		"fields", len(md.Fields))
	return md, nil
}

// DecodeMetadata parses one JSON record from an LLM response, tolerating a
// surrounding markdown code fence
func DecodeMetadata(raw string) (*models.CodeMetadata, error) {
	body := stripCodeFence(raw)
	if body == "" {
		return nil, fmt.Errorf("empty response")
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	var md models.CodeMetadata
	if err := dec.Decode(&md); err != nil {
		return nil, fmt.Errorf("response is not a metadata object: %w", err)
	}
	return &md, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // language tag line
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
