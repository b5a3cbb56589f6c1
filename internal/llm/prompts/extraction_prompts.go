package prompts

import (
	"fmt"
	"strings"
)

// JavaExtractionSystem is the system prompt for per-file metadata extraction
const JavaExtractionSystem = `You are a highly skilled Java code analysis and data extraction assistant.
Analyze the provided Java source file and extract its structural metadata.

OUTPUT: a single JSON object, nothing else. No markdown fences, no commentary.

JSON FORMAT:
{
  "file_name": "UserService.java",
  "package": "com.acme.user",
  "class_name": "UserService",
  "class_annotations": ["Service"],
  "internal_dependencies": ["com.acme.user.UserRepository"],
  "external_dependencies": ["org.springframework.stereotype.Service"],
  "interfaces": [],
  "methods": [
    {
      "name": "save",
      "annotations": ["Transactional"],
      "parameters": [{"name": "user", "type": "User"}],
      "return_type": "User",
      "description": "Persists a user",
      "pseudo_code": "validate user; repository.save(user); return saved",
      "throws_exceptions": [],
      "internal_dependencies": ["UserRepository"],
      "is_public": true,
      "is_static": false
    }
  ],
  "fields": [
    {
      "name": "repository",
      "type": "UserRepository",
      "annotations": ["Autowired"],
      "value": null,
      "description": null,
      "is_public": false,
      "is_static": false,
      "is_primary": false
    }
  ],
  "functionality_summary": "Application service managing users.",
  "architecture_layer": "Service"
}

RULES:
1. architecture_layer MUST be exactly one of: Controller, Service, Repository, Entity, Dto.
2. internal_dependencies at class level are fully qualified names of classes that belong to
   the analyzed code base; external_dependencies are library and JDK classes.
3. Method-level internal_dependencies are SIMPLE class names (no package) of code-base classes
   used inside the method body.
4. Annotation names are written without the leading '@'.
5. When a value is not present in the code use null for optional text and [] for lists.
   Never invent members that are not in the source.`

// BuildJavaExtractionPrompt builds the user prompt for one source file
func BuildJavaExtractionPrompt(fileName, source string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Java File: %s\n", fileName)
	sb.WriteString("---\n")
	sb.WriteString(source)
	if !strings.HasSuffix(source, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("---\n")
	return sb.String()
}

// ClassDescriptionSystem returns the system prompt for business-facing class
// descriptions in language
func ClassDescriptionSystem(language string) string {
	return fmt.Sprintf(`You are an expert documentation assistant. Analyze the provided raw graph data
describing a class and rewrite it as a clear, concise, natural language description
for a business analyst, written in %s.
Focus on the functional description and business rules. Avoid technical jargon.`, language)
}

// BuildClassDescriptionPrompt builds the user prompt for a class description
func BuildClassDescriptionPrompt(className, rawData, language string) string {
	return fmt.Sprintf("Class Name: %s\n\nRaw Graph Data:\n---\n%s\n---\n\n"+
		"Based on the data above, generate the final, detailed description in %s.",
		className, rawData, language)
}
