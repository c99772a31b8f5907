package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/MikeSquared-Agency/stackoverfix/internal/llm"
)

// Client completes prompts with the Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

// Option adjusts the genai client configuration.
type Option func(*genai.ClientConfig)

// WithBaseURL sends requests to url instead of the public endpoint.
func WithBaseURL(url string) Option {
	return func(cfg *genai.ClientConfig) {
		cfg.HTTPOptions.BaseURL = url
	}
}

func NewClient(ctx context.Context, apiKey, model string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

// Complete returns a plain-text reply.
func (c *Client) Complete(ctx context.Context, system string, messages []llm.Message, maxTokens int) (string, error) {
	cfg := baseConfig(system, maxTokens)
	cfg.ResponseMIMEType = "text/plain"
	return c.generate(ctx, messages, cfg)
}

// CompleteJSON returns a reply constrained to schema.
func (c *Client) CompleteJSON(ctx context.Context, system string, messages []llm.Message, maxTokens int, schema *llm.Schema) (string, error) {
	cfg := baseConfig(system, maxTokens)
	cfg.ResponseMIMEType = "application/json"
	cfg.ResponseSchema = toGenAISchema(schema)
	return c.generate(ctx, messages, cfg)
}

func (c *Client) generate(ctx context.Context, messages []llm.Message, cfg *genai.GenerateContentConfig) (string, error) {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == "assistant" || m.Role == "model" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response content")
	}
	return text, nil
}

func baseConfig(system string, maxTokens int) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](1),
		TopP:            genai.Ptr[float32](0.95),
		TopK:            genai.Ptr[float32](40),
		MaxOutputTokens: int32(maxTokens),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	return cfg
}

func toGenAISchema(s *llm.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:     schemaType(s.Type),
		Required: s.Required,
		Enum:     s.Enum,
	}
	if s.Nullable {
		out.Nullable = genai.Ptr(true)
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = toGenAISchema(p)
		}
	}
	return out
}

func schemaType(t string) genai.Type {
	switch t {
	case "object":
		return genai.TypeObject
	case "boolean":
		return genai.TypeBoolean
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeString
	}
}
