// Package rest implements store.Store against a hosted table service that
// speaks the PostgREST dialect (Supabase's /rest/v1 endpoint).
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/asad-creats/taskagent/internal/store"
)

// DefaultTable is the table holding task rows.
const DefaultTable = "todos"

// Options configures the remote table.
type Options struct {
	BaseURL    string // project URL, e.g. https://xyz.supabase.co
	APIKey     string // anon or service key, sent as apikey and bearer token
	Table      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Store talks to one table over HTTP.
type Store struct {
	base   string
	key    string
	table  string
	client *http.Client
}

var _ store.Store = (*Store)(nil)

// New returns a Store. It does not contact the service; failures surface on first use.
func New(opts Options) (*Store, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("rest store: base URL required")
	}
	if opts.Table == "" {
		opts.Table = DefaultTable
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Store{
		base:   strings.TrimRight(opts.BaseURL, "/"),
		key:    opts.APIKey,
		table:  opts.Table,
		client: client,
	}, nil
}

// row is the wire shape of one task.
type row struct {
	ID        json.RawMessage `json:"id,omitempty"`
	Text      string          `json:"text"`
	Date      string          `json:"date"`
	Category  string          `json:"category"`
	Completed bool            `json:"completed"`
	Notes     *string         `json:"notes,omitempty"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
}

func (r row) task() store.Task {
	t := store.Task{
		ID:        strings.Trim(string(r.ID), `"`),
		Text:      r.Text,
		Date:      r.Date,
		Category:  r.Category,
		Completed: r.Completed,
	}
	if len(t.Date) > len(store.DateLayout) {
		t.Date = t.Date[:len(store.DateLayout)]
	}
	if t.Category == "" {
		t.Category = store.DefaultCategory
	}
	if r.Notes != nil {
		t.Notes = *r.Notes
	}
	if r.CreatedAt != nil {
		t.CreatedAt = r.CreatedAt.UTC()
	}
	return t
}

func (s *Store) tableURL(query url.Values) string {
	u := s.base + "/rest/v1/" + url.PathEscape(s.table)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func idFilter(id string) url.Values {
	return url.Values{"id": {"eq." + id}}
}

// do sends one request and decodes a JSON array of rows into out (when non-nil).
func (s *Store) do(ctx context.Context, op, method, u string, body any, out *[]row) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.key != "" {
		req.Header.Set("apikey", s.key)
		req.Header.Set("Authorization", "Bearer "+s.key)
	}
	if out != nil && method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return store.Unavailable("rest", op, err)
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return store.Unavailable("rest", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return &store.Error{Backend: "rest", Op: op, Err: fmt.Errorf("status %d: %s", resp.StatusCode, msg)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &store.Error{Backend: "rest", Op: op, Err: fmt.Errorf("decode rows: %w", err)}
	}
	return nil
}

func (s *Store) ListTasks(ctx context.Context) ([]store.Task, error) {
	var rows []row
	q := url.Values{"select": {"*"}, "order": {"date.asc,id.asc"}}
	if err := s.do(ctx, "list", http.MethodGet, s.tableURL(q), nil, &rows); err != nil {
		return nil, err
	}
	out := make([]store.Task, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.task())
	}
	return out, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*store.Task, error) {
	var rows []row
	q := idFilter(id)
	q.Set("select", "*")
	if err := s.do(ctx, "get", http.MethodGet, s.tableURL(q), nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	t := rows[0].task()
	return &t, nil
}

func (s *Store) CreateTask(ctx context.Context, in store.NewTask) (store.Task, error) {
	in, err := in.Normalize(time.Now())
	if err != nil {
		return store.Task{}, err
	}
	body := []row{{Text: in.Text, Date: in.Date, Category: in.Category, Notes: &in.Notes}}
	var rows []row
	if err := s.do(ctx, "create", http.MethodPost, s.tableURL(nil), body, &rows); err != nil {
		return store.Task{}, err
	}
	if len(rows) == 0 {
		return store.Task{}, &store.Error{Backend: "rest", Op: "create", Err: fmt.Errorf("insert returned no row")}
	}
	return rows[0].task(), nil
}

func (s *Store) SetCompleted(ctx context.Context, id string, completed bool) error {
	return s.patch(ctx, id, map[string]any{"completed": completed})
}

func (s *Store) UpdateTask(ctx context.Context, id string, f store.TaskFields) error {
	if err := f.Validate(); err != nil {
		return err
	}
	body := map[string]any{}
	if f.Text != nil {
		body["text"] = strings.TrimSpace(*f.Text)
	}
	if f.Date != nil {
		body["date"] = *f.Date
	}
	if f.Category != nil {
		c := *f.Category
		if c == "" {
			c = store.DefaultCategory
		}
		body["category"] = c
	}
	if f.Notes != nil {
		body["notes"] = *f.Notes
	}
	if f.Completed != nil {
		body["completed"] = *f.Completed
	}
	if len(body) == 0 {
		t, err := s.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return store.ErrNotFound
		}
		return nil
	}
	return s.patch(ctx, id, body)
}

func (s *Store) patch(ctx context.Context, id string, body map[string]any) error {
	var rows []row
	if err := s.do(ctx, "update", http.MethodPatch, s.tableURL(idFilter(id)), body, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	var rows []row
	if err := s.do(ctx, "delete", http.MethodDelete, s.tableURL(idFilter(id)), nil, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
