package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// Gemini talks to the Gemini API through the genai SDK.
type Gemini struct {
	Model  string
	client *genai.Client
}

var (
	_ Client    = (*Gemini)(nil)
	_ Describer = (*Gemini)(nil)
)

// GeminiOptions configures NewGemini. BaseURL and HTTPClient are for tests and proxies.
type GeminiOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// NewGemini creates a Gemini client. The API key is required.
func NewGemini(ctx context.Context, opts GeminiOptions) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required (set GEMINI_API_KEY)")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel(ProviderGemini)
	}
	cfg := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = newHTTPClient(0)
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Gemini{Model: opts.Model, client: client}, nil
}

// Chat maps system messages onto the system instruction and assistant turns onto the "model" role.
func (g *Gemini) Chat(ctx context.Context, messages []Message, model string) (string, error) {
	if len(messages) == 0 {
		return "", ErrNoMessages
	}
	if model == "" {
		model = g.Model
	}

	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return "", ErrNoMessages
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.7),
		TopK:            genai.Ptr[float32](40),
		TopP:            genai.Ptr[float32](0.95),
		MaxOutputTokens: 1024,
	}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", unavailable(ProviderGemini, "chat", 0, err)
	}
	text := resp.Text()
	if text == "" {
		return "", protocol(ProviderGemini, "chat", errors.New("response has no candidates[0].content.parts[0].text"))
	}
	return text, nil
}

func (g *Gemini) ListModels(ctx context.Context) []ModelInfo {
	models := []ModelInfo{}
	for m, err := range g.client.Models.All(ctx) {
		if err != nil {
			return []ModelInfo{}
		}
		if m == nil {
			continue
		}
		models = append(models, ModelInfo{Name: strings.TrimPrefix(m.Name, "models/")})
	}
	return models
}

func (g *Gemini) Provider() string     { return ProviderGemini }
func (g *Gemini) DefaultModel() string { return g.Model }

func (g *Gemini) UnavailableHint() string {
	return "Check your Gemini API key."
}
