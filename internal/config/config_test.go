package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/archlens/archlens/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

// isolate points HOME at a temp dir and clears the variables Load reads
func isolate(t *testing.T) string {
	t.Helper()
	keyring.MockInit()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, name := range []string{
		"DB_URI", "DB_USER", "DB_PASSWORD", "DB_NAME",
		"GOOGLE_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY", "LLM_PROVIDER",
		"CODE_BASE_PATH", "EXTRACTION_RPS",
	} {
		t.Setenv(name, "")
	}
	return home
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archlens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4j.URI)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 4.0, cfg.Ingestion.RequestsPerSecond)
	assert.Equal(t, "best-effort", cfg.Ingestion.LoadMode)
	assert.Equal(t, "global", cfg.Ingestion.IdentityScope)
	assert.Equal(t, "127.0.0.1:8000", cfg.API.Addr)
}

func TestLoad_Precedence(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
neo4j:
  uri: bolt://file-host:7687
  user: file-user
ingestion:
  load_mode: all-or-nothing
  requests_per_second: 2
`)
	t.Setenv("DB_URI", "neo4j://env-host:7687")
	t.Setenv("ARCHLENS_INGESTION_MAX_FILES", "5")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "neo4j://env-host:7687", cfg.Neo4j.URI, "env beats file")
	assert.Equal(t, "file-user", cfg.Neo4j.User, "file beats default")
	assert.Equal(t, "all-or-nothing", cfg.Ingestion.LoadMode)
	assert.Equal(t, 2.0, cfg.Ingestion.RequestsPerSecond)
	assert.Equal(t, 5, cfg.Ingestion.MaxFiles)
	assert.Equal(t, "neo4j", cfg.Neo4j.Database, "untouched default")
}

func TestLoad_LegacyVariables(t *testing.T) {
	isolate(t)
	t.Setenv("DB_USER", "admin")
	t.Setenv("DB_PASSWORD", "s3cret")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("OPENAI_API_KEY", "openai-key")
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("CODE_BASE_PATH", "/src/app")
	t.Setenv("EXTRACTION_RPS", "0.5")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "admin", cfg.Neo4j.User)
	assert.Equal(t, "s3cret", cfg.Neo4j.Password)
	assert.Equal(t, "gemini-key", cfg.LLM.GeminiAPIKey)
	assert.Equal(t, "openai-key", cfg.LLM.OpenAIAPIKey)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "/src/app", cfg.Ingestion.CodeBasePath)
	assert.Equal(t, 0.5, cfg.Ingestion.RequestsPerSecond)
}

func TestLoad_GoogleKeyWinsOverGeminiKey(t *testing.T) {
	isolate(t)
	t.Setenv("GOOGLE_API_KEY", "google")
	t.Setenv("GEMINI_API_KEY", "gemini")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "google", cfg.LLM.GeminiAPIKey)
}

func TestLoad_KeychainFallback(t *testing.T) {
	isolate(t)
	require.NoError(t, NewKeyringManager().Set(KeyringNeo4jPasswordItem, "from-keychain"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-keychain", cfg.Neo4j.Password)

	t.Setenv("ARCHLENS_LLM_USE_KEYCHAIN", "false")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Neo4j.Password)
}

func TestLoad_MalformedFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "neo4j: [unclosed")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSave_RoundTripWithoutSecrets(t *testing.T) {
	isolate(t)
	cfg := Default()
	cfg.Neo4j.URI = "neo4j+s://graph.example.com"
	cfg.Neo4j.Password = "never-written"
	cfg.Ingestion.IdentityScope = "class"

	path := filepath.Join(t.TempDir(), "nested", "archlens.yaml")
	require.NoError(t, cfg.Save(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "never-written")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "neo4j+s://graph.example.com", loaded.Neo4j.URI)
	assert.Equal(t, "class", loaded.Ingestion.IdentityScope)
}

func validConfig(t *testing.T) *Config {
	cfg := Default()
	cfg.Neo4j.Password = "pw"
	cfg.LLM.GeminiAPIKey = "key"
	cfg.Ingestion.CodeBasePath = t.TempDir()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		ctx       ValidationContext
		mutate    func(*Config)
		wantValid bool
	}{
		{"ingest ok", ValidationContextIngest, func(c *Config) {}, true},
		{"ingest needs llm key", ValidationContextIngest, func(c *Config) { c.LLM.GeminiAPIKey = "" }, false},
		{"ingest openai key", ValidationContextIngest, func(c *Config) {
			c.LLM.Provider, c.LLM.GeminiAPIKey, c.LLM.OpenAIAPIKey = "openai", "", "sk"
		}, true},
		{"ingest needs code base", ValidationContextIngest, func(c *Config) { c.Ingestion.CodeBasePath = "" }, false},
		{"ingest missing code base", ValidationContextIngest, func(c *Config) { c.Ingestion.CodeBasePath = "/does/not/exist" }, false},
		{"extract without neo4j password", ValidationContextExtract, func(c *Config) { c.Neo4j.Password = "" }, true},
		{"extract needs llm key", ValidationContextExtract, func(c *Config) { c.LLM.GeminiAPIKey = "" }, false},
		{"mcp needs uri", ValidationContextMCP, func(c *Config) { c.Neo4j.URI = "" }, false},
		{"serve without llm key", ValidationContextServe, func(c *Config) { c.LLM.GeminiAPIKey = "" }, true},
		{"serve bad addr", ValidationContextServe, func(c *Config) { c.API.Addr = "8000" }, false},
		{"load needs password", ValidationContextLoad, func(c *Config) { c.Neo4j.Password = "" }, false},
		{"load bad mode", ValidationContextLoad, func(c *Config) { c.Ingestion.LoadMode = "sometimes" }, false},
		{"load bad scope", ValidationContextLoad, func(c *Config) { c.Ingestion.IdentityScope = "file" }, false},
		{"mcp bad scheme", ValidationContextMCP, func(c *Config) { c.Neo4j.URI = "http://localhost:7474" }, false},
		{"mcp neo4j+s", ValidationContextMCP, func(c *Config) { c.Neo4j.URI = "neo4j+s://x.databases.neo4j.io" }, true},
		{"all unknown provider", ValidationContextAll, func(c *Config) { c.LLM.Provider = "claude" }, false},
		{"bad log format", ValidationContextMCP, func(c *Config) { c.Logging.Format = "xml" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			result := cfg.Validate(tt.ctx)
			assert.Equal(t, tt.wantValid, !result.HasErrors(), result.Error())
			if tt.wantValid {
				assert.NoError(t, result.Err())
			} else {
				assert.True(t, errors.IsType(result.Err(), errors.ErrorTypeConfig))
			}
		})
	}
}

func TestValidate_WarnsWhenLLMDisabled(t *testing.T) {
	cfg := validConfig(t)
	cfg.LLM.GeminiAPIKey = ""

	result := cfg.Validate(ValidationContextServe)
	assert.False(t, result.HasErrors())
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "GOOGLE_API_KEY")
}
