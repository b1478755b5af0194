package llm

import (
	"context"
)

// LLMClient is the generation capability consumed by agents. Implementations
// may talk to a local runtime (Ollama) or a remote OpenAI-compatible endpoint.
type LLMClient interface {
	GenerateInference(
		ctx context.Context,
		messages []Message,
		callback func(chunk string) error,
		opts ...LLMOption,
	) error

	GetModel() string
}

// Embedder converts free text into a dense vector.
type Embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}

type LLMSettings struct {
	model       string  // model name
	temperature float64 // randomness (0.0 to 1.0)
	maxTokens   int     // maximum tokens to generate
	system      string  // system prompt
}

type LLMOption func(*LLMSettings)

func WithTemperature(temp float64) LLMOption {
	return func(s *LLMSettings) { s.temperature = temp }
}

func WithMaxTokens(tokens int) LLMOption {
	return func(s *LLMSettings) { s.maxTokens = tokens }
}

func WithSystemPrompt(prompt string) LLMOption {
	return func(s *LLMSettings) { s.system = prompt }
}

func WithModel(model string) LLMOption {
	return func(s *LLMSettings) { s.model = model }
}

type Message struct {
	Role    string `json:"role"`    // "user", "assistant", "system"
	Content string `json:"content"` // the message content
}

// GenerateText runs a single non-streaming inference and returns the full answer.
func GenerateText(ctx context.Context, client LLMClient, messages []Message, opts ...LLMOption) (string, error) {
	var out string
	err := client.GenerateInference(ctx, messages, func(chunk string) error {
		out += chunk
		return nil
	}, opts...)
	return out, err
}
