// Package llm talks to text-generation backends: OpenAI-compatible APIs
// (Groq, Ollama, Hugging Face router, OpenAI), Gemini and Anthropic, with
// retries and a provider fallback chain.
package llm

import "context"

// Provider generates text from a prompt.
type Provider interface {
	// Generate sends one prompt and returns the model's text. Request.Model
	// overrides the provider's default model when set.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the provider's default model.
	ModelID() string
}

// Request describes a single-turn generation.
type Request struct {
	System string
	Prompt string

	// Model is the provider-specific model ID. Empty means ModelID().
	Model string

	MaxTokens   int
	Temperature float64
}

// Response holds the generated text.
type Response struct {
	Text     string
	Model    string
	Provider string
	Usage    Usage
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

func (r Request) modelOr(def string) string {
	if r.Model != "" {
		return r.Model
	}
	return def
}
