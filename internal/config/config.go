package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings
type Config struct {
	// Graph store connection
	Neo4j Neo4jConfig `yaml:"neo4j" mapstructure:"neo4j"`

	// LLM provider and credentials
	LLM LLMConfig `yaml:"llm" mapstructure:"llm"`

	// Extraction and load pipeline
	Ingestion IngestionConfig `yaml:"ingestion" mapstructure:"ingestion"`

	// HTTP read API
	API APIConfig `yaml:"api" mapstructure:"api"`

	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

type Neo4jConfig struct {
	URI      string `yaml:"uri" mapstructure:"uri"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
}

type LLMConfig struct {
	Provider     string `yaml:"provider" mapstructure:"provider"` // "gemini" or "openai"
	GeminiAPIKey string `yaml:"gemini_api_key" mapstructure:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model" mapstructure:"gemini_model"`
	OpenAIAPIKey string `yaml:"openai_api_key" mapstructure:"openai_api_key"`
	OpenAIModel  string `yaml:"openai_model" mapstructure:"openai_model"`
	UseKeychain  bool   `yaml:"use_keychain" mapstructure:"use_keychain"` // fall back to the OS keychain for missing keys
}

type IngestionConfig struct {
	CodeBasePath      string  `yaml:"code_base_path" mapstructure:"code_base_path"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	LoadMode          string  `yaml:"load_mode" mapstructure:"load_mode"`           // "best-effort" or "all-or-nothing"
	IdentityScope     string  `yaml:"identity_scope" mapstructure:"identity_scope"` // "global" or "class"
	CacheDir          string  `yaml:"cache_dir" mapstructure:"cache_dir"`
	MaxFiles          int     `yaml:"max_files" mapstructure:"max_files"` // 0 = unlimited
}

type APIConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // "auto", "text" or "json"
	File   string `yaml:"file" mapstructure:"file"`
}

// Default returns default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Neo4j: Neo4jConfig{
			URI:      "bolt://localhost:7687",
			User:     "neo4j",
			Database: "neo4j",
		},
		LLM: LLMConfig{
			Provider:    "gemini",
			GeminiModel: "gemini-2.5-flash",
			OpenAIModel: "gpt-4o-mini",
			UseKeychain: true,
		},
		Ingestion: IngestionConfig{
			RequestsPerSecond: 4,
			LoadMode:          "best-effort",
			IdentityScope:     "global",
			CacheDir:          filepath.Join(homeDir, ".archlens", "cache"),
		},
		API: APIConfig{
			Addr: "127.0.0.1:8000",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load loads configuration. Precedence, highest first: environment
// variables, config file, defaults. An empty path searches .archlens/, the
// working directory and ~/.archlens/ for archlens.yaml.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	setDefaults(v, cfg)

	// ARCHLENS_NEO4J_URI, ARCHLENS_INGESTION_LOAD_MODE, ...
	v.SetEnvPrefix("ARCHLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("archlens")
		v.AddConfigPath(".archlens")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".archlens"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)
	if cfg.LLM.UseKeychain {
		applyKeychain(cfg, NewKeyringManager())
	}

	cfg.Ingestion.CodeBasePath = expandPath(cfg.Ingestion.CodeBasePath)
	cfg.Ingestion.CacheDir = expandPath(cfg.Ingestion.CacheDir)
	cfg.Logging.File = expandPath(cfg.Logging.File)
	return cfg, nil
}

// setDefaults registers every leaf key so AutomaticEnv can bind it
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("neo4j.uri", cfg.Neo4j.URI)
	v.SetDefault("neo4j.user", cfg.Neo4j.User)
	v.SetDefault("neo4j.password", cfg.Neo4j.Password)
	v.SetDefault("neo4j.database", cfg.Neo4j.Database)

	v.SetDefault("llm.provider", cfg.LLM.Provider)
	v.SetDefault("llm.gemini_api_key", cfg.LLM.GeminiAPIKey)
	v.SetDefault("llm.gemini_model", cfg.LLM.GeminiModel)
	v.SetDefault("llm.openai_api_key", cfg.LLM.OpenAIAPIKey)
	v.SetDefault("llm.openai_model", cfg.LLM.OpenAIModel)
	v.SetDefault("llm.use_keychain", cfg.LLM.UseKeychain)

	v.SetDefault("ingestion.code_base_path", cfg.Ingestion.CodeBasePath)
	v.SetDefault("ingestion.requests_per_second", cfg.Ingestion.RequestsPerSecond)
	v.SetDefault("ingestion.load_mode", cfg.Ingestion.LoadMode)
	v.SetDefault("ingestion.identity_scope", cfg.Ingestion.IdentityScope)
	v.SetDefault("ingestion.cache_dir", cfg.Ingestion.CacheDir)
	v.SetDefault("ingestion.max_files", cfg.Ingestion.MaxFiles)

	v.SetDefault("api.addr", cfg.API.Addr)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.file", cfg.Logging.File)
}

// loadEnvFiles loads .env files in order of precedence. Variables already in
// the environment are never overwritten.
func loadEnvFiles() {
	envFiles := []string{
		".env.local",
		".env",
	}
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".archlens", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		_ = godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies the unprefixed variable names used by existing
// deployments (DB_URI, GOOGLE_API_KEY, ...)
func applyEnvOverrides(cfg *Config) {
	if uri := os.Getenv("DB_URI"); uri != "" {
		cfg.Neo4j.URI = uri
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Neo4j.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Neo4j.Password = password
	}
	if db := os.Getenv("DB_NAME"); db != "" {
		cfg.Neo4j.Database = db
	}

	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		cfg.LLM.GeminiAPIKey = key
	} else if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.LLM.GeminiAPIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.LLM.OpenAIAPIKey = key
	}
	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		cfg.LLM.Provider = strings.ToLower(provider)
	}

	if path := os.Getenv("CODE_BASE_PATH"); path != "" {
		cfg.Ingestion.CodeBasePath = path
	}
	if rps := os.Getenv("EXTRACTION_RPS"); rps != "" {
		if rate, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.Ingestion.RequestsPerSecond = rate
		}
	}
}

// applyKeychain fills credentials still missing after file and environment
// from the OS keychain
func applyKeychain(cfg *Config, km *KeyringManager) {
	missing := cfg.LLM.GeminiAPIKey == "" || cfg.LLM.OpenAIAPIKey == "" || cfg.Neo4j.Password == ""
	if !missing || !km.IsAvailable() {
		return
	}

	fill := func(dst *string, item string) {
		if *dst != "" {
			return
		}
		if secret, err := km.Get(item); err == nil && secret != "" {
			*dst = secret
		}
	}
	fill(&cfg.LLM.GeminiAPIKey, KeyringGeminiKeyItem)
	fill(&cfg.LLM.OpenAIAPIKey, KeyringOpenAIKeyItem)
	fill(&cfg.Neo4j.Password, KeyringNeo4jPasswordItem)
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Save writes non-secret settings to path. Credentials belong in the
// keychain or the environment and are never written.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("neo4j.uri", c.Neo4j.URI)
	v.Set("neo4j.user", c.Neo4j.User)
	v.Set("neo4j.database", c.Neo4j.Database)
	v.Set("llm.provider", c.LLM.Provider)
	v.Set("llm.gemini_model", c.LLM.GeminiModel)
	v.Set("llm.openai_model", c.LLM.OpenAIModel)
	v.Set("llm.use_keychain", c.LLM.UseKeychain)
	v.Set("ingestion", map[string]any{
		"code_base_path":      c.Ingestion.CodeBasePath,
		"requests_per_second": c.Ingestion.RequestsPerSecond,
		"load_mode":           c.Ingestion.LoadMode,
		"identity_scope":      c.Ingestion.IdentityScope,
		"cache_dir":           c.Ingestion.CacheDir,
		"max_files":           c.Ingestion.MaxFiles,
	})
	v.Set("api.addr", c.API.Addr)
	v.Set("logging", map[string]any{
		"level":  c.Logging.Level,
		"format": c.Logging.Format,
		"file":   c.Logging.File,
	})

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// DefaultPath is where configure writes the config file
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".archlens", "archlens.yaml")
}
