package llm

import "time"

// Provider names.
const (
	ProviderGemini      = "gemini"
	ProviderGroq        = "groq"
	ProviderOllama      = "ollama"
	ProviderHuggingFace = "huggingface"
	ProviderOpenAI      = "openai"
	ProviderAnthropic   = "anthropic"
	ProviderMock        = "mock"
)

const (
	groqBaseURL        = "https://api.groq.com/openai/v1"
	huggingFaceBaseURL = "https://router.huggingface.co/v1"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Default is the provider used when a request names none.
	Default string
	// Model, when set, replaces the default model of the Default provider.
	Model string

	GeminiKey    string
	GroqKey      string
	AnthropicKey string
	OpenAIKey    string
	OpenAIURL    string
	HFKey        string
	OllamaURL    string

	Retry RetryConfig

	// Timeout bounds one provider attempt, retries included.
	Timeout time.Duration
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Default:   ProviderGroq,
		OllamaURL: "http://localhost:11434",
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 90 * time.Second,
	}
}

// defaultModels are used when a provider serves as a fallback or the
// request names no model.
var defaultModels = map[string]string{
	ProviderGemini:      "gemini-2.0-flash",
	ProviderGroq:        "llama-3.3-70b-versatile",
	ProviderOllama:      "llama3.2",
	ProviderHuggingFace: "zai-org/GLM-4.7-Flash:novita",
	ProviderOpenAI:      "gpt-4o-mini",
	ProviderAnthropic:   "claude-haiku-4-5-20251001",
	ProviderMock:        "mock",
}

// DefaultModel returns the default model for a provider, or "".
func DefaultModel(provider string) string {
	return defaultModels[provider]
}

// modelAliases maps retired model IDs to their replacements.
var modelAliases = map[string]string{
	"gemini-1.5-flash":        "gemini-2.0-flash",
	"llama3-70b-8192":         "llama-3.3-70b-versatile",
	"llama-3.1-70b-versatile": "llama-3.3-70b-versatile",
	"claude-haiku":            "claude-haiku-4-5-20251001",
	"claude-sonnet":           "claude-sonnet-4-20250514",
}

// resolveModel maps a retired or friendly model name to a served model ID.
func resolveModel(name string) string {
	if id, ok := modelAliases[name]; ok {
		return id
	}
	return name
}
