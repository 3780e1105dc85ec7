package llm

import (
	"context"
	"fmt"
	"time"
)

// Provider names.
const (
	ProviderAuto   = "auto"
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderGemini:
		return "gemini-1.5-pro"
	case ProviderOpenAI:
		return "gpt-4o-mini"
	default:
		return "llama3.2"
	}
}

// Options selects and configures a client.
type Options struct {
	Provider  string
	Model     string
	OllamaURL string
	OpenAIURL string
	APIKey    string
	Timeout   time.Duration
}

// New builds the client for opts.Provider. "auto" (or empty) probes the local
// Ollama daemon and uses it when it reports at least one model, otherwise Gemini.
func New(ctx context.Context, opts Options) (Client, error) {
	switch opts.Provider {
	case ProviderOllama:
		return NewOllama(opts.OllamaURL, opts.Model, opts.Timeout), nil
	case ProviderGemini:
		return NewGemini(ctx, GeminiOptions{APIKey: opts.APIKey, Model: opts.Model})
	case ProviderOpenAI:
		return NewOpenAI(opts.OpenAIURL, opts.APIKey, opts.Model, opts.Timeout), nil
	case ProviderAuto, "":
		return resolveAuto(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}

func resolveAuto(ctx context.Context, opts Options) (Client, error) {
	local := NewOllama(opts.OllamaURL, opts.Model, opts.Timeout)
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if Connected(probeCtx, local) || opts.APIKey == "" {
		// Without a cloud key, Ollama is the only usable choice; its errors
		// tell the user to start the daemon.
		return local, nil
	}
	return NewGemini(ctx, GeminiOptions{APIKey: opts.APIKey, Model: opts.Model})
}

// Connected reports whether c lists at least one model.
func Connected(ctx context.Context, c Client) bool {
	return len(c.ListModels(ctx)) > 0
}

// Describe returns provider, default model and unavailable hint for c, with
// generic values for clients that do not implement Describer.
func Describe(c Client) (provider, model, hint string) {
	if d, ok := c.(Describer); ok {
		return d.Provider(), d.DefaultModel(), d.UnavailableHint()
	}
	return "unknown", "", "Check your model configuration."
}
