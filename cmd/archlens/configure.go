package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/archlens/archlens/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactive setup for Neo4j, the LLM provider and the code base",
	Long: `Walk through archlens configuration step by step.

Secrets (LLM API keys, the Neo4j password) are stored in the OS keychain when
one is available. Otherwise they are written to ~/.archlens/.env, which is
loaded on every run. The config file itself never holds secrets.`,
	RunE: runConfigure,
}

// prompter reads answers from an interactive terminal
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

func (p *prompter) ask(question, current string) string {
	if current != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", question, current)
	} else {
		fmt.Fprintf(p.out, "%s: ", question)
	}
	line, _ := p.in.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	return line
}

// secret reads without echo when stdin is a terminal
func (p *prompter) secret(question string) string {
	fmt.Fprintf(p.out, "%s (leave empty to keep): ", question)
	if term.IsTerminal(p.fd) {
		b, err := term.ReadPassword(p.fd)
		fmt.Fprintln(p.out)
		if err == nil {
			return strings.TrimSpace(string(b))
		}
	}
	line, _ := p.in.ReadString('\n')
	return strings.TrimSpace(line)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	p := &prompter{in: bufio.NewReader(os.Stdin), out: out, fd: int(os.Stdin.Fd())}

	fmt.Fprintln(out, "archlens configuration")
	fmt.Fprintln(out)

	km := config.NewKeyringManager()
	keychain := km.IsAvailable()
	if !keychain {
		fmt.Fprintln(out, "OS keychain not available; secrets will be written to ~/.archlens/.env")
		fmt.Fprintln(out)
	}
	secrets := map[string]string{}

	fmt.Fprintln(out, "Step 1/3: Neo4j")
	cfg.Neo4j.URI = p.ask("  URI", cfg.Neo4j.URI)
	cfg.Neo4j.User = p.ask("  User", cfg.Neo4j.User)
	cfg.Neo4j.Database = p.ask("  Database", cfg.Neo4j.Database)
	if pw := p.secret("  Password"); pw != "" {
		secrets[config.KeyringNeo4jPasswordItem] = pw
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Step 2/3: LLM")
	cfg.LLM.Provider = strings.ToLower(p.ask("  Provider (gemini or openai)", cfg.LLM.Provider))
	switch cfg.LLM.Provider {
	case "openai":
		cfg.LLM.OpenAIModel = p.ask("  Model", cfg.LLM.OpenAIModel)
		if key := p.secret("  OpenAI API key"); key != "" {
			secrets[config.KeyringOpenAIKeyItem] = key
		}
	default:
		cfg.LLM.Provider = "gemini"
		cfg.LLM.GeminiModel = p.ask("  Model", cfg.LLM.GeminiModel)
		if key := p.secret("  Gemini API key"); key != "" {
			secrets[config.KeyringGeminiKeyItem] = key
		}
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Step 3/3: Code base")
	cfg.Ingestion.CodeBasePath = p.ask("  Path to Java sources", cfg.Ingestion.CodeBasePath)
	fmt.Fprintln(out)

	cfg.LLM.UseKeychain = keychain
	if err := storeSecrets(out, km, keychain, secrets); err != nil {
		return err
	}

	path := cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(out, "Configuration saved to %s\n", path)

	result := cfg.Validate(config.ValidationContextIngest)
	for _, w := range result.Warnings {
		fmt.Fprintf(out, "  warning: %s\n", w)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(out, "  missing: %s\n", e)
	}
	return nil
}

// secretEnv maps keychain items to the environment variables Load reads
var secretEnv = map[string]string{
	config.KeyringGeminiKeyItem:     "GOOGLE_API_KEY",
	config.KeyringOpenAIKeyItem:     "OPENAI_API_KEY",
	config.KeyringNeo4jPasswordItem: "DB_PASSWORD",
}

func storeSecrets(out io.Writer, km *config.KeyringManager, keychain bool, secrets map[string]string) error {
	if len(secrets) == 0 {
		return nil
	}

	fallback := map[string]string{}
	for item, value := range secrets {
		if keychain {
			err := km.Set(item, value)
			if err == nil {
				fmt.Fprintf(out, "Stored %s in OS keychain (%s)\n", item, config.MaskSecret(value))
				continue
			}
			logger.WithError(err).Warnf("keychain write failed for %s", item)
		}
		fallback[secretEnv[item]] = value
	}
	if len(fallback) == 0 {
		return nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to locate home directory: %w", err)
	}
	envPath := filepath.Join(homeDir, ".archlens", ".env")
	existing, err := godotenv.Read(envPath)
	if err != nil {
		existing = map[string]string{}
	}
	for k, v := range fallback {
		existing[k] = v
	}
	if err := os.MkdirAll(filepath.Dir(envPath), 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(envPath), err)
	}
	if err := godotenv.Write(existing, envPath); err != nil {
		return fmt.Errorf("failed to write %s: %w", envPath, err)
	}
	if err := os.Chmod(envPath, 0600); err != nil {
		return fmt.Errorf("failed to restrict %s: %w", envPath, err)
	}
	fmt.Fprintf(out, "Stored %d secret(s) in %s\n", len(fallback), envPath)
	return nil
}
