package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/archlens/archlens/internal/config"
	"github.com/archlens/archlens/internal/errors"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// Provider represents the LLM provider
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
	ProviderNone   Provider = "none" // no key configured
)

// Default models per provider
const (
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultOpenAIModel = "gpt-4o-mini"
)

// Completer is the LLM surface used by the extractor and the describer
type Completer interface {
	// Complete returns free text
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// CompleteJSON returns a JSON document. schema constrains the output
	// where the provider supports it and is ignored otherwise.
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string, schema *genai.Schema) (string, error)
}

// Client provides a multi-provider LLM interface (Gemini or OpenAI)
type Client struct {
	provider     Provider
	model        string
	openaiClient *openai.Client
	geminiClient *GeminiClient
	logger       *slog.Logger
}

// NewClient creates a client for the configured provider. A missing API key
// yields a disabled client rather than an error so read-only commands keep
// working; check IsEnabled before use.
func NewClient(ctx context.Context, cfg config.LLMConfig) (*Client, error) {
	logger := slog.Default().With("component", "llm")

	provider := Provider(cfg.Provider)
	if provider == "" {
		provider = ProviderGemini
	}

	switch provider {
	case ProviderGemini:
		return newGeminiProvider(ctx, cfg, logger)
	case ProviderOpenAI:
		return newOpenAIProvider(cfg, logger), nil
	default:
		return nil, errors.ConfigErrorf("unknown llm provider %q (must be gemini or openai)", cfg.Provider)
	}
}

// newGeminiProvider initializes a Gemini provider client
func newGeminiProvider(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*Client, error) {
	model := cfg.GeminiModel
	if model == "" {
		model = DefaultGeminiModel
	}

	if cfg.GeminiAPIKey == "" {
		logger.Warn("no Gemini API key configured; set GOOGLE_API_KEY or run 'archlens configure'")
		return &Client{provider: ProviderNone, model: model, logger: logger}, nil
	}

	geminiClient, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, model)
	if err != nil {
		return nil, errors.ExternalErrorf(err, "failed to create gemini client")
	}

	logger.Info("llm client initialized", "provider", ProviderGemini, "model", model)
	return &Client{
		provider:     ProviderGemini,
		model:        model,
		geminiClient: geminiClient,
		logger:       logger,
	}, nil
}

// newOpenAIProvider initializes an OpenAI provider client
func newOpenAIProvider(cfg config.LLMConfig, logger *slog.Logger) *Client {
	model := cfg.OpenAIModel
	if model == "" {
		model = DefaultOpenAIModel
	}

	if cfg.OpenAIAPIKey == "" {
		logger.Warn("no OpenAI API key configured; set OPENAI_API_KEY or run 'archlens configure'")
		return &Client{provider: ProviderNone, model: model, logger: logger}
	}

	logger.Info("llm client initialized", "provider", ProviderOpenAI, "model", model)
	return &Client{
		provider:     ProviderOpenAI,
		model:        model,
		openaiClient: openai.NewClient(cfg.OpenAIAPIKey),
		logger:       logger,
	}
}

// IsEnabled returns true if an LLM client is configured and ready
func (c *Client) IsEnabled() bool {
	return c.provider != ProviderNone
}

// Provider returns the active LLM provider
func (c *Client) Provider() Provider {
	return c.provider
}

// Model returns the model name
func (c *Client) Model() string {
	return c.model
}

// Namespace identifies provider and model, e.g. "gemini/gemini-2.5-flash"
func (c *Client) Namespace() string {
	return fmt.Sprintf("%s/%s", c.provider, c.model)
}

// Complete implements Completer
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	switch c.provider {
	case ProviderGemini:
		return c.geminiClient.Complete(ctx, systemPrompt, userPrompt)
	case ProviderOpenAI:
		return c.completeOpenAI(ctx, systemPrompt, userPrompt, false)
	default:
		return "", errors.ConfigErrorf("llm client not enabled (no API key)")
	}
}

// CompleteJSON implements Completer. Gemini receives schema as its response
// schema; OpenAI uses JSON-object mode and relies on the prompt.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string, schema *genai.Schema) (string, error) {
	switch c.provider {
	case ProviderGemini:
		return c.geminiClient.CompleteJSON(ctx, systemPrompt, userPrompt, schema)
	case ProviderOpenAI:
		return c.completeOpenAI(ctx, systemPrompt, userPrompt, true)
	default:
		return "", errors.ConfigErrorf("llm client not enabled (no API key)")
	}
}

// completeOpenAI handles OpenAI chat completion, optionally in JSON mode
func (c *Client) completeOpenAI(ctx context.Context, systemPrompt, userPrompt string, jsonMode bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
		Temperature: 0.1,
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.openaiClient.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", errors.ExternalErrorf(err, "openai completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.ExternalErrorf(fmt.Errorf("no choices"), "openai returned no choices")
	}

	response := resp.Choices[0].Message.Content
	c.logger.Debug("openai completion",
		"model", c.model,
		"json", jsonMode,
		"prompt_length", len(userPrompt),
		"response_length", len(response),
		"tokens_used", resp.Usage.TotalTokens,
	)

	return response, nil
}
