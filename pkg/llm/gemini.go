package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiConfig configures a Gemini provider.
type GeminiConfig struct {
	// APIKey is the Google AI API key (required).
	APIKey string

	// Model name (e.g. "gemini-2.0-flash", "gemini-2.5-pro").
	Model string

	// Temperature controls randomness (0-2).
	Temperature float64

	// MaxTokens limits the response length.
	MaxTokens int
}

// GeminiProvider implements Provider over the official genai SDK.
type GeminiProvider struct {
	client *genai.Client
	name   string
	config GeminiConfig
}

// NewGeminiProvider creates a Gemini provider.
func NewGeminiProvider(cfg GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}

	// Constructors shouldn't require context; calls carry their own.
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		name:   cfg.Model,
		config: cfg,
	}, nil
}

// ModelName returns the model identifier.
func (p *GeminiProvider) ModelName() string {
	return p.name
}

// Generate produces a completion for the given messages.
func (p *GeminiProvider) Generate(ctx context.Context, messages []Message) (string, error) {
	contents, system := p.buildContents(messages)
	cfg := p.buildConfig(system, nil)

	resp, err := p.client.Models.GenerateContent(ctx, p.name, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("Gemini generation failed: %w", err)
	}
	return parseText(resp)
}

// GenerateStructured produces a completion constrained to a JSON schema.
func (p *GeminiProvider) GenerateStructured(ctx context.Context, messages []Message, structCfg *StructuredOutputConfig) (string, error) {
	contents, system := p.buildContents(messages)
	cfg := p.buildConfig(system, structCfg)

	resp, err := p.client.Models.GenerateContent(ctx, p.name, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("Gemini structured generation failed: %w", err)
	}
	return parseText(resp)
}

// Close releases client resources.
func (p *GeminiProvider) Close() error {
	return nil
}

// buildContents converts messages to genai contents, pulling system messages
// out into a system instruction.
func (p *GeminiProvider) buildContents(messages []Message) ([]*genai.Content, *genai.Content) {
	var contents []*genai.Content
	var systemParts []string

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		}
	}

	var system *genai.Content
	if len(systemParts) > 0 {
		system = &genai.Content{
			Parts: []*genai.Part{{Text: strings.Join(systemParts, "\n\n")}},
		}
	}
	return contents, system
}

// buildConfig creates the generation config, enabling structured output when
// a schema is supplied.
func (p *GeminiProvider) buildConfig(system *genai.Content, structCfg *StructuredOutputConfig) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: system,
	}

	if p.config.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(p.config.Temperature))
	}
	if p.config.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(p.config.MaxTokens)
	}

	if structCfg != nil && structCfg.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = toGenaiSchema(structCfg.Schema)
	}

	return cfg
}

// parseText extracts the text of the first candidate.
func parseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("Gemini returned no candidates")
	}

	var sb strings.Builder
	candidate := resp.Candidates[0]
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part != nil && part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
	}

	text := sb.String()
	if text == "" {
		return "", fmt.Errorf("Gemini returned an empty response (finish reason: %s)", candidate.FinishReason)
	}
	return text, nil
}

// toGenaiSchema converts a JSON schema map to the genai schema type.
func toGenaiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}

	s := &genai.Schema{}

	if t, ok := schema["type"].(string); ok {
		s.Type = genai.Type(t)
	}
	if desc, ok := schema["description"].(string); ok {
		s.Description = desc
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if pm, ok := prop.(map[string]any); ok {
				s.Properties[name] = toGenaiSchema(pm)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		s.Items = toGenaiSchema(items)
	}
	switch req := schema["required"].(type) {
	case []string:
		s.Required = req
	case []any:
		for _, r := range req {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}
	switch enum := schema["enum"].(type) {
	case []string:
		s.Enum = enum
	case []any:
		for _, e := range enum {
			if v, ok := e.(string); ok {
				s.Enum = append(s.Enum, v)
			}
		}
	}

	return s
}

// GeminiEmbedderConfig configures a Gemini embedder.
type GeminiEmbedderConfig struct {
	// APIKey is the Google AI API key (required).
	APIKey string

	// Model name (default: text-embedding-004).
	Model string
}

// GeminiEmbedder implements Embedder over the genai SDK.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

// NewGeminiEmbedder creates a Gemini embedder.
func NewGeminiEmbedder(cfg GeminiEmbedderConfig) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-004"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiEmbedder{client: client, model: cfg.Model}, nil
}

// Embed returns one vector per input text, in order.
func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType: "RETRIEVAL_QUERY",
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini embedding failed: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("Gemini returned %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		vectors[i] = emb.Values
	}
	return vectors, nil
}
