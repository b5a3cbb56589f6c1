package models

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NotAvailable is written to the graph in place of an absent description or
// pseudo-code so those properties are never null or empty.
const NotAvailable = "NA"

// ArchitectureLayer classifies a class by its structural role
type ArchitectureLayer string

const (
	LayerController ArchitectureLayer = "Controller"
	LayerService    ArchitectureLayer = "Service"
	LayerRepository ArchitectureLayer = "Repository"
	LayerEntity     ArchitectureLayer = "Entity"
	LayerDto        ArchitectureLayer = "Dto"
)

// ArchitectureLayers lists the closed set of valid layers in declaration order
var ArchitectureLayers = []ArchitectureLayer{
	LayerController,
	LayerService,
	LayerRepository,
	LayerEntity,
	LayerDto,
}

// IsValid reports whether l is one of the known layers (case-sensitive)
func (l ArchitectureLayer) IsValid() bool {
	for _, known := range ArchitectureLayers {
		if l == known {
			return true
		}
	}
	return false
}

// ParameterMetadata is one formal parameter of a method
type ParameterMetadata struct {
	Name string `json:"name" yaml:"name" validate:"required"`
	Type string `json:"type" yaml:"type" validate:"required"`
}

// MethodMetadata describes one method as extracted from source
type MethodMetadata struct {
	Name                 string              `json:"name" yaml:"name" validate:"required"`
	Annotations          []string            `json:"annotations" yaml:"annotations"`
	Parameters           []ParameterMetadata `json:"parameters" yaml:"parameters" validate:"dive"`
	ReturnType           string              `json:"return_type" yaml:"return_type"`
	Description          *string             `json:"description" yaml:"description"`
	PseudoCode           *string             `json:"pseudo_code" yaml:"pseudo_code"`
	ThrowsExceptions     []string            `json:"throws_exceptions" yaml:"throws_exceptions"`
	InternalDependencies []string            `json:"internal_dependencies" yaml:"internal_dependencies"`
	IsPublic             bool                `json:"is_public" yaml:"is_public"`
	IsStatic             bool                `json:"is_static" yaml:"is_static"`
}

// DescriptionOrNA returns the description, or NotAvailable when absent or blank
func (m *MethodMetadata) DescriptionOrNA() string {
	return orNotAvailable(m.Description)
}

// PseudoCodeOrNA returns the pseudo-code, or NotAvailable when absent or blank
func (m *MethodMetadata) PseudoCodeOrNA() string {
	return orNotAvailable(m.PseudoCode)
}

// FieldMetadata describes one field/attribute of a class
type FieldMetadata struct {
	Name        string   `json:"name" yaml:"name" validate:"required"`
	Type        string   `json:"type" yaml:"type" validate:"required"`
	Annotations []string `json:"annotations" yaml:"annotations"`
	Value       *string  `json:"value,omitempty" yaml:"value,omitempty"`
	Description *string  `json:"description" yaml:"description"`
	IsPublic    bool     `json:"is_public" yaml:"is_public"`
	IsStatic    bool     `json:"is_static" yaml:"is_static"`
	IsPrimary   bool     `json:"is_primary" yaml:"is_primary"`
}

// CodeMetadata is the analyzed form of one Java source file's top-level class.
// It is the only input the graph upsert engine consumes.
type CodeMetadata struct {
	FileName             string            `json:"file_name" yaml:"file_name" validate:"required"`
	Package              string            `json:"package" yaml:"package" validate:"required"`
	ClassName            string            `json:"class_name" yaml:"class_name" validate:"required"`
	ClassAnnotations     []string          `json:"class_annotations" yaml:"class_annotations"`
	InternalDependencies []string          `json:"internal_dependencies" yaml:"internal_dependencies"`
	ExternalDependencies []string          `json:"external_dependencies" yaml:"external_dependencies"`
	Interfaces           []string          `json:"interfaces" yaml:"interfaces"`
	Methods              []MethodMetadata  `json:"methods" yaml:"methods" validate:"dive"`
	Fields               []FieldMetadata   `json:"fields" yaml:"fields" validate:"dive"`
	FunctionalitySummary string            `json:"functionality_summary" yaml:"functionality_summary"`
	ArchitectureLayer    ArchitectureLayer `json:"architecture_layer" yaml:"architecture_layer" validate:"required,archlayer"`
}

var metadataValidate *validator.Validate

func init() {
	metadataValidate = validator.New()
	_ = metadataValidate.RegisterValidation("archlayer", validateArchitectureLayer)
}

func validateArchitectureLayer(fl validator.FieldLevel) bool {
	return ArchitectureLayer(fl.Field().String()).IsValid()
}

// Validate checks required fields and the architecture layer. The first
// failing rule is reported with its field path.
func (m *CodeMetadata) Validate() error {
	if m == nil {
		return fmt.Errorf("metadata record is nil")
	}
	if err := metadataValidate.Struct(m); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			return describeValidationError(verrs[0], m)
		}
		return fmt.Errorf("invalid metadata: %w", err)
	}
	return nil
}

// Identifier returns a human label for reports: the class name when present,
// the file name otherwise.
func (m *CodeMetadata) Identifier() string {
	if m.ClassName != "" {
		return m.ClassName
	}
	return m.FileName
}

func describeValidationError(fe validator.FieldError, m *CodeMetadata) error {
	switch fe.Tag() {
	case "archlayer":
		return fmt.Errorf("invalid metadata for %s: %s must be one of %s, got %q",
			m.Identifier(), fe.Namespace(), layerList(), fe.Value())
	case "required":
		return fmt.Errorf("invalid metadata for %s: %s is required", m.Identifier(), fe.Namespace())
	default:
		return fmt.Errorf("invalid metadata for %s: %s failed %q", m.Identifier(), fe.Namespace(), fe.Tag())
	}
}

func layerList() string {
	names := make([]string, len(ArchitectureLayers))
	for i, l := range ArchitectureLayers {
		names[i] = string(l)
	}
	return strings.Join(names, "/")
}

func orNotAvailable(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return NotAvailable
	}
	return *s
}
