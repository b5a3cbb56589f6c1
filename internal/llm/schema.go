package llm

import (
	"github.com/archlens/archlens/internal/models"
	"google.golang.org/genai"
)

// CodeMetadataSchema returns the Gemini response schema for one
// models.CodeMetadata record. Property names match the record's JSON tags.
func CodeMetadataSchema() *genai.Schema {
	layers := make([]string, len(models.ArchitectureLayers))
	for i, l := range models.ArchitectureLayers {
		layers[i] = string(l)
	}

	parameter := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name": stringSchema("Parameter name"),
			"type": stringSchema("Declared parameter type"),
		},
		Required: []string{"name", "type"},
	}

	method := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":                  stringSchema("Method name"),
			"annotations":           stringList("Annotation names without '@'"),
			"parameters":            {Type: genai.TypeArray, Items: parameter},
			"return_type":           stringSchema("Declared return type, 'void' when none"),
			"description":           nullableString("One-sentence summary of what the method does"),
			"pseudo_code":           nullableString("Short pseudo-code narrative of the method body"),
			"throws_exceptions":     stringList("Exception class names from the throws clause"),
			"internal_dependencies": stringList("Simple names of project classes used in the body"),
			"is_public":             {Type: genai.TypeBoolean},
			"is_static":             {Type: genai.TypeBoolean},
		},
		Required: []string{"name", "parameters", "return_type"},
	}

	field := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":        stringSchema("Field name"),
			"type":        stringSchema("Declared field type"),
			"annotations": stringList("Annotation names without '@'"),
			"value":       nullableString("Initializer literal, if any"),
			"description": nullableString("What the field holds"),
			"is_public":   {Type: genai.TypeBoolean},
			"is_static":   {Type: genai.TypeBoolean},
			"is_primary":  {Type: genai.TypeBoolean, Description: "True for the entity's primary key"},
		},
		Required: []string{"name", "type"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"file_name":             stringSchema("Source file name, e.g. UserService.java"),
			"package":               stringSchema("Declared package"),
			"class_name":            stringSchema("Top-level class, interface or enum name"),
			"class_annotations":     stringList("Class-level annotation names without '@'"),
			"internal_dependencies": stringList("Fully qualified names of imported classes inside the code base"),
			"external_dependencies": stringList("Fully qualified names of imported library and JDK classes"),
			"interfaces":            stringList("Implemented or extended interfaces"),
			"methods":               {Type: genai.TypeArray, Items: method},
			"fields":                {Type: genai.TypeArray, Items: field},
			"functionality_summary": stringSchema("Two or three sentences on the class's responsibility"),
			"architecture_layer": {
				Type:        genai.TypeString,
				Enum:        layers,
				Description: "Structural role of the class",
			},
		},
		Required: []string{"file_name", "package", "class_name", "architecture_layer"},
	}
}

func stringSchema(description string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: description}
}

func nullableString(description string) *genai.Schema {
	nullable := true
	return &genai.Schema{Type: genai.TypeString, Description: description, Nullable: &nullable}
}

func stringList(description string) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeArray,
		Items:       &genai.Schema{Type: genai.TypeString},
		Description: description,
	}
}
