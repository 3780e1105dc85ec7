// Package client is the Go SDK for the taskagent daemon's HTTP API. The CLI
// uses it whenever a daemon is running.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/asad-creats/taskagent/pkg/models"
)

// DefaultTimeout bounds one request. Chat can wait on a slow local model, so
// it is generous.
const DefaultTimeout = 2 * time.Minute

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

// Option configures New.
type Option func(*Client)

// WithHTTPClient replaces the default client, e.g. with an instrumented transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.hc = &http.Client{Timeout: d} }
}

// New returns a client for baseURL such as "http://localhost:4280". An empty
// apiKey sends no X-API-Key header.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		hc:      &http.Client{Timeout: DefaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL is the daemon address requests go to.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	return req, nil
}

// send performs the request and decodes a 2xx body into out when out is non-nil.
func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode/100 != 2 {
		return newAPIError(method, path, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func get[T any](ctx context.Context, c *Client, path string) (*T, error) {
	out := new(T)
	if err := c.send(ctx, http.MethodGet, path, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func call[T any](ctx context.Context, c *Client, method, path string, body any) (*T, error) {
	out := new(T)
	if err := c.send(ctx, method, path, body, out); err != nil {
		return nil, err
	}
	return out, nil
}

// APIError is a non-2xx response. Message is the server's {"error": ...}.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func newAPIError(method, path string, resp *http.Response) *APIError {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
	return &APIError{Method: method, Path: path, Status: resp.StatusCode, Message: body.Error}
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func withQuery(path, key, value string) string {
	if value == "" {
		return path
	}
	return path + "?" + url.Values{key: {value}}.Encode()
}

func taskPath(id string, rest ...string) string {
	return "/tasks/" + url.PathEscape(id) + strings.Join(rest, "")
}

// Health reports whether /health answered ok.
func (c *Client) Health(ctx context.Context) (bool, error) {
	out, err := get[struct {
		OK bool `json:"ok"`
	}](ctx, c, "/health")
	if err != nil {
		return false, err
	}
	return out.OK, nil
}

func (c *Client) Config(ctx context.Context) (*models.Config, error) {
	return get[models.Config](ctx, c, "/config")
}

// ListTasks returns tasks matching filter (all, today, pending, completed,
// overdue or a category); empty means all.
func (c *Client) ListTasks(ctx context.Context, filter string) (*models.TaskList, error) {
	return get[models.TaskList](ctx, c, withQuery("/tasks", "filter", filter))
}

func (c *Client) CreateTask(ctx context.Context, in models.NewTask) (*models.Task, error) {
	return call[models.Task](ctx, c, http.MethodPost, "/tasks", in)
}

func (c *Client) GetTask(ctx context.Context, id string) (*models.Task, error) {
	return get[models.Task](ctx, c, taskPath(id))
}

// UpdateTask applies the non-nil fields and returns the updated task.
func (c *Client) UpdateTask(ctx context.Context, id string, fields models.TaskUpdate) (*models.Task, error) {
	return call[models.Task](ctx, c, http.MethodPatch, taskPath(id), fields)
}

func (c *Client) SetCompleted(ctx context.Context, id string, completed bool) (*models.Task, error) {
	return c.UpdateTask(ctx, id, models.TaskUpdate{Completed: &completed})
}

func (c *Client) ToggleTask(ctx context.Context, id string) (*models.Task, error) {
	return call[models.Task](ctx, c, http.MethodPost, taskPath(id, "/toggle"), nil)
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

// Stats returns productivity for period: today, week or all (the default).
func (c *Client) Stats(ctx context.Context, period string) (*models.Productivity, error) {
	return get[models.Productivity](ctx, c, withQuery("/tasks/stats", "period", period))
}

// TaskSuggestions asks the model how to get a task done.
func (c *Client) TaskSuggestions(ctx context.Context, id string) (*models.ToolResult, error) {
	return call[models.ToolResult](ctx, c, http.MethodPost, taskPath(id, "/suggestions"), nil)
}

// Chat sends one message. Pass the returned SessionID back to continue the
// conversation; a 409 means the session is still answering.
func (c *Client) Chat(ctx context.Context, sessionID, message string) (*models.ChatResponse, error) {
	return call[models.ChatResponse](ctx, c, http.MethodPost, "/chat", models.ChatRequest{SessionID: sessionID, Message: message})
}

func (c *Client) Session(ctx context.Context, id string) (*models.Session, error) {
	return get[models.Session](ctx, c, "/sessions/"+url.PathEscape(id))
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(id), nil, nil)
}

// Models lists what the daemon's model backend can serve.
func (c *Client) Models(ctx context.Context) (*models.Models, error) {
	return get[models.Models](ctx, c, "/models")
}
