// Package llm defines the model interfaces the tutor depends on and their
// Gemini implementations.
//
// The orchestrator never talks to a model SDK directly; it holds a Provider
// and an Embedder constructed once at startup and passed in by the caller.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one conversation entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StructuredOutputConfig constrains a generation to a JSON schema.
type StructuredOutputConfig struct {
	// Schema is a JSON Schema (type/properties/required) the response must
	// satisfy.
	Schema map[string]any
}

// Provider is a text generation model.
type Provider interface {
	// Generate produces a completion for the given messages.
	Generate(ctx context.Context, messages []Message) (string, error)

	// GenerateStructured produces a completion constrained to the given
	// JSON schema.
	GenerateStructured(ctx context.Context, messages []Message, cfg *StructuredOutputConfig) (string, error)

	// ModelName reports the underlying model identifier.
	ModelName() string

	// Close releases client resources.
	Close() error
}

// Embedder converts texts to vectors.
type Embedder interface {
	// Embed returns one vector per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ParseJSON unmarshals a model response into v, tolerating markdown code
// fences around the JSON body. Anything else malformed is an error; callers
// that treat malformed classifier output as fatal rely on that.
func ParseJSON(text string, v any) error {
	cleaned := strings.TrimSpace(text)

	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}

	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("failed to unmarshal model response: %w", err)
	}
	return nil
}
