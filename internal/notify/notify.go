// Package notify forwards task changes to outside services such as a Slack
// channel or a generic JSON webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/asad-creats/taskagent/internal/otel"
)

// Task change verbs carried in Event.Action.
const (
	Created   = "created"
	Updated   = "updated"
	Completed = "completed"
	Deleted   = "deleted"
)

// Event is a task change worth telling someone about.
type Event struct {
	Action string    `json:"action"`
	TaskID string    `json:"task_id"`
	Text   string    `json:"text"`
	Date   string    `json:"date,omitempty"`
	At     time.Time `json:"at"`
}

// Message renders e as one human-readable line.
func (e Event) Message() string {
	switch e.Action {
	case Created:
		if e.Date != "" {
			return fmt.Sprintf("📝 New task: %s (due %s)", e.Text, e.Date)
		}
		return "📝 New task: " + e.Text
	case Completed:
		return "✅ Completed: " + e.Text
	case Deleted:
		return "🗑️ Deleted: " + e.Text
	default:
		return "✏️ Updated: " + e.Text
	}
}

// Sink is an integration that receives task events.
type Sink interface {
	Name() string
	Notify(ctx context.Context, ev Event) error
}

// Fanout delivers each event to every registered sink.
type Fanout struct {
	mu      sync.RWMutex
	sinks   map[string]Sink
	timeout time.Duration
	log     *slog.Logger
}

// NewFanout returns an empty Fanout; each sink gets timeout per delivery (5s if zero).
func NewFanout(timeout time.Duration, logger *slog.Logger) *Fanout {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{sinks: make(map[string]Sink), timeout: timeout, log: logger}
}

// Register adds s, replacing any sink with the same name.
func (f *Fanout) Register(s Sink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks[s.Name()] = s
}

// Get returns the sink registered under name, or nil.
func (f *Fanout) Get(name string) Sink {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.sinks[name]
}

// Len is the number of registered sinks.
func (f *Fanout) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.sinks)
}

// Notify sends ev to every sink. Failures are logged and joined; one failing
// sink does not stop the others.
func (f *Fanout) Notify(ctx context.Context, ev Event) error {
	f.mu.RLock()
	sinks := make([]Sink, 0, len(f.sinks))
	for _, s := range f.sinks {
		sinks = append(sinks, s)
	}
	f.mu.RUnlock()

	var errs []error
	for _, s := range sinks {
		sctx, cancel := context.WithTimeout(ctx, f.timeout)
		err := s.Notify(sctx, ev)
		cancel()
		otel.RecordNotification(ctx, s.Name(), err == nil)
		if err != nil {
			f.log.Warn("task notification failed", "sink", s.Name(), "action", ev.Action, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// SlackWebhook posts Event.Message to a Slack channel via an incoming webhook URL.
type SlackWebhook struct {
	WebhookURL string
	Channel    string // optional override
	Username   string // optional
	HTTPClient *http.Client
}

func (s SlackWebhook) Name() string { return "slack" }

func (s SlackWebhook) Notify(ctx context.Context, ev Event) error {
	if s.WebhookURL == "" {
		return errors.New("slack webhook URL not set")
	}
	payload := map[string]any{"text": ev.Message()}
	if s.Channel != "" {
		payload["channel"] = s.Channel
	}
	if s.Username != "" {
		payload["username"] = s.Username
	}
	return postJSON(ctx, s.HTTPClient, s.WebhookURL, payload)
}

// Webhook posts the Event itself as JSON to URL.
type Webhook struct {
	URL        string
	HTTPClient *http.Client
}

func (w Webhook) Name() string { return "webhook" }

func (w Webhook) Notify(ctx context.Context, ev Event) error {
	if w.URL == "" {
		return errors.New("webhook URL not set")
	}
	return postJSON(ctx, w.HTTPClient, w.URL, ev)
}

func postJSON(ctx context.Context, client *http.Client, url string, v any) error {
	if client == nil {
		client = http.DefaultClient
	}
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned %d", url, resp.StatusCode)
	}
	return nil
}
