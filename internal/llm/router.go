package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pavelanni/examprep/internal/metrics"
)

// fallbackOrder is tried after the requested provider.
var fallbackOrder = []string{ProviderGemini, ProviderGroq, ProviderOllama}

// Router sends a request to the requested provider and falls back along
// gemini, groq, ollama when it fails. Providers without credentials are
// skipped. Clients are built on first use and reused.
type Router struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	providers map[string]Provider
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithLogger sets the router's logger.
func WithLogger(l *slog.Logger) RouterOption {
	return func(r *Router) { r.logger = l }
}

// WithMetrics records per-provider outcomes.
func WithMetrics(m *metrics.Metrics) RouterOption {
	return func(r *Router) { r.metrics = m }
}

// WithProvider registers a ready-made provider under name, replacing the
// one built from Config. Registered providers are always available.
func WithProvider(name string, p Provider) RouterOption {
	return func(r *Router) { r.providers[name] = p }
}

// NewRouter creates a Router from cfg.
func NewRouter(cfg Config, opts ...RouterOption) *Router {
	r := &Router{
		cfg:       cfg,
		logger:    slog.Default(),
		providers: make(map[string]Provider),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Available reports whether provider has the credentials it needs.
func (r *Router) Available(provider string) bool {
	r.mu.Lock()
	_, registered := r.providers[provider]
	r.mu.Unlock()
	if registered {
		return true
	}
	switch provider {
	case ProviderGemini:
		return r.cfg.GeminiKey != ""
	case ProviderGroq:
		return r.cfg.GroqKey != ""
	case ProviderOllama:
		return r.cfg.OllamaURL != ""
	case ProviderHuggingFace:
		return r.cfg.HFKey != ""
	case ProviderOpenAI:
		return r.cfg.OpenAIKey != ""
	case ProviderAnthropic:
		return r.cfg.AnthropicKey != ""
	}
	return false
}

// Status lists the known providers and whether each is usable.
func (r *Router) Status() map[string]bool {
	out := make(map[string]bool)
	for _, p := range []string{ProviderGemini, ProviderGroq, ProviderOllama,
		ProviderHuggingFace, ProviderOpenAI, ProviderAnthropic} {
		out[p] = r.Available(p)
	}
	return out
}

// Chain returns the providers tried for a request naming provider.
func (r *Router) Chain(provider string) []string {
	if provider == "" {
		provider = r.cfg.Default
	}
	chain := []string{provider}
	for _, p := range fallbackOrder {
		if p != provider {
			chain = append(chain, p)
		}
	}
	return chain
}

// Generate runs req against provider with model, falling back on failure.
// The requested model applies only to the requested provider; fallbacks
// use their default models.
func (r *Router) Generate(ctx context.Context, provider, model string, req Request) (*Response, error) {
	chain := r.Chain(provider)
	requested := chain[0]

	var lastErr error
	var tried []string
	for _, name := range chain {
		if !r.Available(name) {
			lastErr = &ErrProviderUnavailable{Provider: name, Err: fmt.Errorf("%s credentials missing", name)}
			continue
		}

		m := r.defaultModel(name)
		if name == requested && model != "" {
			m = model
		}

		p, err := r.provider(ctx, name)
		if err != nil {
			lastErr = err
			continue
		}

		tried = append(tried, name)
		r.logger.Debug("trying AI provider", "provider", name, "model", m)

		attempt := req
		attempt.Model = m
		resp, err := r.generate(ctx, p, attempt)
		if err == nil {
			r.metrics.AIRequest(name, "ok")
			resp.Provider = name
			return resp, nil
		}
		r.metrics.AIRequest(name, "error")
		r.logger.Warn("AI provider failed", "provider", name, "model", m, "error", err)
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no provider configured (tried %s)", strings.Join(chain, ", "))
	}
	return nil, &ErrAllFailed{Tried: tried, Last: lastErr}
}

func (r *Router) defaultModel(provider string) string {
	if provider == r.cfg.Default && r.cfg.Model != "" {
		return r.cfg.Model
	}
	return DefaultModel(provider)
}

func (r *Router) generate(ctx context.Context, p Provider, req Request) (*Response, error) {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}
	return p.Generate(ctx, req)
}

// provider returns the cached client for name, building it on first use.
func (r *Router) provider(ctx context.Context, name string) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[name]; ok {
		return p, nil
	}

	var (
		base Provider
		err  error
	)
	def := DefaultModel(name)
	switch name {
	case ProviderGemini:
		base, err = NewGeminiProvider(context.WithoutCancel(ctx), r.cfg.GeminiKey, def)
	case ProviderGroq:
		base, err = NewOpenAIProvider(name, r.cfg.GroqKey, groqBaseURL, def)
	case ProviderOllama:
		base, err = NewOpenAIProvider(name, "ollama", strings.TrimRight(r.cfg.OllamaURL, "/")+"/v1", def)
	case ProviderHuggingFace:
		base, err = NewOpenAIProvider(name, r.cfg.HFKey, huggingFaceBaseURL, def)
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(name, r.cfg.OpenAIKey, r.cfg.OpenAIURL, def)
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(r.cfg.AnthropicKey, def)
	default:
		return nil, fmt.Errorf("unknown AI provider: %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", name, err)
	}

	p := WithRetry(base, r.cfg.Retry)
	r.providers[name] = p
	return p, nil
}
