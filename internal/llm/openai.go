package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// OpenAI talks to any OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	BaseURL string // e.g. https://api.openai.com
	APIKey  string
	Model   string
	client  *http.Client
}

var (
	_ Client    = (*OpenAI)(nil)
	_ Describer = (*OpenAI)(nil)
)

// NewOpenAI returns a client for baseURL.
func NewOpenAI(baseURL, apiKey, model string, timeout time.Duration) *OpenAI {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	if model == "" {
		model = DefaultModel(ProviderOpenAI)
	}
	return &OpenAI{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		client:  newHTTPClient(timeout),
	}
}

func (c *OpenAI) header() http.Header {
	h := http.Header{}
	if c.APIKey != "" {
		h.Set("Authorization", "Bearer "+c.APIKey)
	}
	return h
}

func (c *OpenAI) Chat(ctx context.Context, messages []Message, model string) (string, error) {
	if len(messages) == 0 {
		return "", ErrNoMessages
	}
	if model == "" {
		model = c.Model
	}
	reqBody := map[string]any{
		"model":    model,
		"messages": messages,
	}
	var apiResp struct {
		Choices []struct {
			Message struct {
				Content *string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	err := doJSON(ctx, c.client, ProviderOpenAI, "chat", http.MethodPost, c.BaseURL+"/v1/chat/completions", c.header(), reqBody, &apiResp)
	if err != nil {
		return "", err
	}
	if len(apiResp.Choices) == 0 || apiResp.Choices[0].Message.Content == nil {
		return "", protocol(ProviderOpenAI, "chat", errors.New("response has no choices[0].message.content"))
	}
	return *apiResp.Choices[0].Message.Content, nil
}

func (c *OpenAI) ListModels(ctx context.Context) []ModelInfo {
	var out struct {
		Data []struct {
			ID      string `json:"id"`
			Created int64  `json:"created"`
		} `json:"data"`
	}
	if err := doJSON(ctx, c.client, ProviderOpenAI, "list models", http.MethodGet, c.BaseURL+"/v1/models", c.header(), nil, &out); err != nil {
		return []ModelInfo{}
	}
	models := make([]ModelInfo, 0, len(out.Data))
	for _, m := range out.Data {
		mi := ModelInfo{Name: m.ID}
		if m.Created > 0 {
			mi.ModifiedAt = time.Unix(m.Created, 0).UTC()
		}
		models = append(models, mi)
	}
	return models
}

func (c *OpenAI) Provider() string     { return ProviderOpenAI }
func (c *OpenAI) DefaultModel() string { return c.Model }

func (c *OpenAI) UnavailableHint() string {
	return "Check your API key and the OpenAI-compatible endpoint " + c.BaseURL + "."
}
