package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/archlens/archlens/internal/errors"
	"google.golang.org/genai"
)

// GeminiClient wraps Google's Generative AI SDK
type GeminiClient struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGeminiClient creates a new Gemini API client
// model: Model name (e.g., "gemini-2.5-flash", "gemini-2.5-pro")
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	if model == "" {
		model = DefaultGeminiModel
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	logger := slog.Default().With("component", "gemini", "model", model)
	logger.Info("gemini client initialized")

	return &GeminiClient{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// Complete sends a prompt to Gemini and returns the text response
func (c *GeminiClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction(systemPrompt),
		Temperature:       ptrFloat32(0.2),
	}

	text, err := c.generate(ctx, userPrompt, genConfig)
	if err != nil {
		return "", err
	}

	c.logger.Debug("gemini completion",
		"prompt_length", len(userPrompt),
		"response_length", len(text),
	)
	return text, nil
}

// CompleteJSON requests a JSON response. A non-nil schema is sent as the
// response schema so the model output is constrained to that shape.
func (c *GeminiClient) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string, schema *genai.Schema) (string, error) {
	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction(systemPrompt),
		Temperature:       ptrFloat32(0.1),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    schema,
	}

	jsonText, err := c.generate(ctx, userPrompt, genConfig)
	if err != nil {
		return "", err
	}

	c.logger.Debug("gemini json completion",
		"prompt_length", len(userPrompt),
		"response_length", len(jsonText),
		"schema", schema != nil,
	)
	return jsonText, nil
}

func (c *GeminiClient) generate(ctx context.Context, userPrompt string, genConfig *genai.GenerateContentConfig) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), genConfig)
	if err != nil {
		return "", errors.ExternalErrorf(err, "gemini completion failed")
	}

	if len(resp.Candidates) == 0 {
		return "", errors.ExternalErrorf(fmt.Errorf("no candidates"), "gemini returned no candidates")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.ExternalErrorf(fmt.Errorf("no content parts"), "gemini returned no content (finish reason %s)", candidate.FinishReason)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

func systemInstruction(prompt string) *genai.Content {
	if prompt == "" {
		return nil
	}
	return genai.Text(prompt)[0]
}

func ptrFloat32(f float64) *float32 {
	f32 := float32(f)
	return &f32
}
