package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterChain(t *testing.T) {
	r := NewRouter(Config{Default: ProviderGroq})
	assert.Equal(t, []string{"groq", "gemini", "ollama"}, r.Chain(""))
	assert.Equal(t, []string{"gemini", "groq", "ollama"}, r.Chain("gemini"))
	assert.Equal(t, []string{"huggingface", "gemini", "groq", "ollama"}, r.Chain("huggingface"))
}

func TestRouterFallsBackWithDefaultModel(t *testing.T) {
	groq := NewMockProvider(MockResponse{Err: &ErrRateLimit{Err: errors.New("429 quota")}})
	gemini := NewMockProvider(MockResponse{Text: "from gemini"})
	r := NewRouter(Config{},
		WithProvider(ProviderGroq, groq),
		WithProvider(ProviderGemini, gemini),
	)

	resp, err := r.Generate(context.Background(), "groq", "llama-3.1-8b-instant", Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "from gemini", resp.Text)
	assert.Equal(t, ProviderGemini, resp.Provider)

	require.Equal(t, 1, groq.CallCount())
	assert.Equal(t, "llama-3.1-8b-instant", groq.Calls[0].Model, "requested model goes to the requested provider")
	require.Equal(t, 1, gemini.CallCount())
	assert.Equal(t, "gemini-2.0-flash", gemini.Calls[0].Model, "fallbacks use their default model")
}

func TestRouterConfiguredModelForDefaultProvider(t *testing.T) {
	groq := NewMockProvider(MockResponse{Text: "a"}, MockResponse{Text: "b"})
	r := NewRouter(Config{Default: ProviderGroq, Model: "llama-3.1-8b-instant"},
		WithProvider(ProviderGroq, groq))

	_, err := r.Generate(context.Background(), "", "", Request{Prompt: "p"})
	require.NoError(t, err)
	_, err = r.Generate(context.Background(), "", "llama-3.3-70b-versatile", Request{Prompt: "p"})
	require.NoError(t, err)

	require.Equal(t, 2, groq.CallCount())
	assert.Equal(t, "llama-3.1-8b-instant", groq.Calls[0].Model)
	assert.Equal(t, "llama-3.3-70b-versatile", groq.Calls[1].Model)
}

func TestRouterSkipsUnconfiguredProviders(t *testing.T) {
	ollama := NewMockProvider(MockResponse{Text: "local"})
	r := NewRouter(Config{}, WithProvider(ProviderOllama, ollama))

	assert.False(t, r.Available(ProviderGemini))
	assert.False(t, r.Available(ProviderHuggingFace))

	resp, err := r.Generate(context.Background(), "huggingface", "", Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "local", resp.Text)
	assert.Equal(t, "llama3.2", ollama.Calls[0].Model)
}

func TestRouterAllFail(t *testing.T) {
	r := NewRouter(Config{},
		WithProvider(ProviderGemini, NewMockProvider(MockResponse{Err: errors.New("gemini down")})),
		WithProvider(ProviderGroq, NewMockProvider(MockResponse{Err: errors.New("groq down")})),
	)

	_, err := r.Generate(context.Background(), "gemini", "", Request{Prompt: "p"})
	var all *ErrAllFailed
	require.ErrorAs(t, err, &all)
	assert.Equal(t, []string{"gemini", "groq"}, all.Tried)
	assert.True(t, strings.HasPrefix(err.Error(), "All AI providers failed."))
}

func TestRouterStatus(t *testing.T) {
	r := NewRouter(Config{GeminiKey: "k", OllamaURL: "http://localhost:11434"})
	st := r.Status()
	assert.True(t, st[ProviderGemini])
	assert.True(t, st[ProviderOllama])
	assert.False(t, st[ProviderGroq])
}

func TestResolveModel(t *testing.T) {
	assert.Equal(t, "gemini-2.0-flash", resolveModel("gemini-1.5-flash"))
	assert.Equal(t, "llama-3.3-70b-versatile", resolveModel("llama3-70b-8192"))
	assert.Equal(t, "llama-3.3-70b-versatile", resolveModel("llama-3.1-70b-versatile"))
	assert.Equal(t, "mistral", resolveModel("mistral"))
}
