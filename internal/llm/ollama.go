package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultOllamaURL is where a local Ollama daemon listens.
const DefaultOllamaURL = "http://localhost:11434"

// Ollama talks to a local Ollama daemon.
type Ollama struct {
	BaseURL string
	Model   string
	client  *http.Client
}

var (
	_ Client    = (*Ollama)(nil)
	_ Describer = (*Ollama)(nil)
)

// NewOllama returns a client for the daemon at baseURL (DefaultOllamaURL if empty).
func NewOllama(baseURL, model string, timeout time.Duration) *Ollama {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if model == "" {
		model = DefaultModel(ProviderOllama)
	}
	return &Ollama{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		client:  newHTTPClient(timeout),
	}
}

type ollamaChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type ollamaChatResponse struct {
	Message *struct {
		Role    string  `json:"role"`
		Content *string `json:"content"`
	} `json:"message"`
	Error string `json:"error,omitempty"`
}

func (o *Ollama) Chat(ctx context.Context, messages []Message, model string) (string, error) {
	if len(messages) == 0 {
		return "", ErrNoMessages
	}
	if model == "" {
		model = o.Model
	}
	var out ollamaChatResponse
	err := doJSON(ctx, o.client, ProviderOllama, "chat", http.MethodPost, o.BaseURL+"/api/chat", nil,
		ollamaChatRequest{Model: model, Messages: messages, Stream: false}, &out)
	if err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", unavailable(ProviderOllama, "chat", 0, errors.New(out.Error))
	}
	if out.Message == nil || out.Message.Content == nil {
		return "", protocol(ProviderOllama, "chat", errors.New("response has no message.content"))
	}
	return *out.Message.Content, nil
}

type ollamaTagsResponse struct {
	Models []struct {
		Name       string    `json:"name"`
		Size       int64     `json:"size"`
		ModifiedAt time.Time `json:"modified_at"`
	} `json:"models"`
}

func (o *Ollama) ListModels(ctx context.Context) []ModelInfo {
	var out ollamaTagsResponse
	if err := doJSON(ctx, o.client, ProviderOllama, "list models", http.MethodGet, o.BaseURL+"/api/tags", nil, nil, &out); err != nil {
		return []ModelInfo{}
	}
	models := make([]ModelInfo, 0, len(out.Models))
	for _, m := range out.Models {
		models = append(models, ModelInfo{Name: m.Name, Size: m.Size, ModifiedAt: m.ModifiedAt})
	}
	return models
}

func (o *Ollama) Provider() string     { return ProviderOllama }
func (o *Ollama) DefaultModel() string { return o.Model }

func (o *Ollama) UnavailableHint() string {
	return fmt.Sprintf("Make sure Ollama is running on %s.", strings.TrimPrefix(strings.TrimPrefix(o.BaseURL, "http://"), "https://"))
}
