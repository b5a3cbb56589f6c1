package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/archlens/archlens/internal/errors"
)

// ValidationContext specifies what configuration is required
type ValidationContext string

const (
	// ValidationContextIngest - ingest needs the store, an LLM key and a code base
	ValidationContextIngest ValidationContext = "ingest"
	// ValidationContextExtract - ingest --extract-only needs an LLM key and a code base
	ValidationContextExtract ValidationContext = "extract"
	// ValidationContextLoad - load needs the store
	ValidationContextLoad ValidationContext = "load"
	// ValidationContextServe - serve needs the store; the LLM is optional
	ValidationContextServe ValidationContext = "serve"
	// ValidationContextMCP - the tool server needs the store
	ValidationContextMCP ValidationContext = "mcp"
	// ValidationContextAll - validate all configuration
	ValidationContextAll ValidationContext = "all"
)

var neo4jSchemes = []string{"neo4j", "neo4j+s", "neo4j+ssc", "bolt", "bolt+s", "bolt+ssc"}

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err))
	}
	if len(vr.Warnings) > 0 {
		sb.WriteString("warnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  - %s\n", warn))
		}
	}
	return sb.String()
}

// Err returns the result as a Config error, or nil when valid
func (vr *ValidationResult) Err() error {
	if !vr.HasErrors() {
		return nil
	}
	return errors.ConfigErrorf("%s", strings.TrimRight(vr.Error(), "\n"))
}

// Validate validates configuration for the given context
func (c *Config) Validate(ctx ValidationContext) *ValidationResult {
	result := &ValidationResult{Valid: true}

	switch ctx {
	case ValidationContextIngest:
		c.validateNeo4j(result)
		c.validateLLM(result, true)
		c.validateIngestion(result, true)
	case ValidationContextExtract:
		c.validateLLM(result, true)
		c.validateIngestion(result, true)
	case ValidationContextLoad:
		c.validateNeo4j(result)
		c.validateIngestion(result, false)
	case ValidationContextServe:
		c.validateNeo4j(result)
		c.validateLLM(result, false)
		c.validateAPI(result)
	case ValidationContextMCP:
		c.validateNeo4j(result)
	case ValidationContextAll:
		c.validateNeo4j(result)
		c.validateLLM(result, false)
		c.validateIngestion(result, false)
		c.validateAPI(result)
	}
	c.validateLogging(result)

	return result
}

func (c *Config) validateNeo4j(result *ValidationResult) {
	if c.Neo4j.URI == "" {
		result.AddError("DB_URI is required but not set")
	} else if u, err := url.Parse(c.Neo4j.URI); err != nil {
		result.AddError("DB_URI is invalid: %v", err)
	} else if !contains(neo4jSchemes, u.Scheme) {
		result.AddError("DB_URI scheme %q is not supported (use one of %s)", u.Scheme, strings.Join(neo4jSchemes, ", "))
	}

	if c.Neo4j.User == "" {
		result.AddError("DB_USER is required but not set")
	}
	if c.Neo4j.Password == "" {
		result.AddError("DB_PASSWORD is required but not set. Set it via environment variable, .env file or 'archlens configure'.")
	}
	if c.Neo4j.Database == "" {
		result.AddWarning("neo4j.database is not set, the server default database will be used")
	}
}

func (c *Config) validateLLM(result *ValidationResult, required bool) {
	var key, name string
	switch c.LLM.Provider {
	case "gemini", "":
		key, name = c.LLM.GeminiAPIKey, "GOOGLE_API_KEY"
	case "openai":
		key, name = c.LLM.OpenAIAPIKey, "OPENAI_API_KEY"
	default:
		result.AddError("llm.provider %q is not supported (use gemini or openai)", c.LLM.Provider)
		return
	}

	if key == "" {
		if required {
			result.AddError("%s is required for provider %s but not set", name, providerName(c.LLM.Provider))
		} else {
			result.AddWarning("%s is not set; LLM features are disabled", name)
		}
	}
}

func (c *Config) validateIngestion(result *ValidationResult, needCodeBase bool) {
	in := c.Ingestion

	if needCodeBase {
		if in.CodeBasePath == "" {
			result.AddError("CODE_BASE_PATH is required but not set")
		} else if info, err := os.Stat(in.CodeBasePath); err != nil {
			result.AddError("CODE_BASE_PATH %s is not accessible: %v", in.CodeBasePath, err)
		} else if !info.IsDir() {
			result.AddError("CODE_BASE_PATH %s is not a directory", in.CodeBasePath)
		}
	}

	if in.RequestsPerSecond < 0 {
		result.AddError("ingestion.requests_per_second must be >= 0, got %g", in.RequestsPerSecond)
	} else if in.RequestsPerSecond == 0 {
		result.AddWarning("ingestion.requests_per_second is 0; extraction calls are not paced")
	}
	if in.MaxFiles < 0 {
		result.AddError("ingestion.max_files must be >= 0, got %d", in.MaxFiles)
	}
	if !contains([]string{"best-effort", "all-or-nothing", ""}, in.LoadMode) {
		result.AddError("ingestion.load_mode %q is not supported (use best-effort or all-or-nothing)", in.LoadMode)
	}
	if !contains([]string{"global", "class", ""}, in.IdentityScope) {
		result.AddError("ingestion.identity_scope %q is not supported (use global or class)", in.IdentityScope)
	}
}

func (c *Config) validateAPI(result *ValidationResult) {
	if c.API.Addr == "" {
		result.AddError("api.addr is required but not set")
	} else if !strings.Contains(c.API.Addr, ":") {
		result.AddError("api.addr %q must be host:port or :port", c.API.Addr)
	}
}

func (c *Config) validateLogging(result *ValidationResult) {
	if !contains([]string{"", "auto", "text", "json"}, c.Logging.Format) {
		result.AddError("logging.format %q is not supported (use auto, text or json)", c.Logging.Format)
	}
	if !contains([]string{"", "debug", "info", "warn", "error"}, strings.ToLower(c.Logging.Level)) {
		result.AddError("logging.level %q is not supported", c.Logging.Level)
	}
}

func providerName(p string) string {
	if p == "" {
		return "gemini"
	}
	return p
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
