package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/asad-creats/taskagent/internal/llm"
	"github.com/asad-creats/taskagent/internal/otel"
	"github.com/asad-creats/taskagent/internal/store"
)

// Reply actions that are not tool names.
const (
	ReplyNone  = "none"
	ReplyError = "error"
	ReplyBatch = "batch"
)

// Defaults for Options.
const (
	DefaultCommandDelay = 100 * time.Millisecond
	DefaultHistoryLimit = 10
)

// ErrBusy is returned by TryProcessQuery while another query is in flight.
var ErrBusy = errors.New("a query is already in progress")

// Response is the outcome of one query.
type Response struct {
	Response    string       `json:"response"`
	Action      string       `json:"action"`
	Actions     []Action     `json:"actions"`
	ToolResults []ToolResult `json:"tool_results"`
	Raw         string       `json:"raw,omitempty"`
	Provider    string       `json:"provider"`
	Model       string       `json:"model"`
	Error       string       `json:"error,omitempty"`
}

// Options configures a Dispatcher.
type Options struct {
	Model        string        // empty uses the client's default
	CommandDelay time.Duration // pause between commands of a batch; 0 uses DefaultCommandDelay, <0 disables
	HistoryLimit int           // turns of history sent to the model; 0 uses DefaultHistoryLimit
	Now          func() time.Time
	Logger       *slog.Logger
	Notifier     Notifier
}

// Dispatcher turns one user message into tool calls and a reply. It runs at
// most one query at a time.
type Dispatcher struct {
	store  store.Store
	client llm.Client
	exec   *Executor
	opts   Options
	log    *slog.Logger
	sem    chan struct{}
}

// NewDispatcher returns a Dispatcher over st and client.
func NewDispatcher(st store.Store, client llm.Client, opts Options) *Dispatcher {
	if opts.CommandDelay == 0 {
		opts.CommandDelay = DefaultCommandDelay
	}
	if opts.HistoryLimit == 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Dispatcher{
		store:  st,
		client: client,
		exec: NewExecutor(st, client, ExecutorOptions{
			Model:  opts.Model,
			Now:    opts.Now,
			Notify: opts.Notifier,
			Logger: opts.Logger,
		}),
		opts: opts,
		log:  opts.Logger,
		sem:  make(chan struct{}, 1),
	}
}

// Executor exposes the dispatcher's tool executor for direct tool calls.
func (d *Dispatcher) Executor() *Executor { return d.exec }

// ProcessQuery waits for any in-flight query, then runs this one. It never
// returns an error: every failure is described in the Response.
func (d *Dispatcher) ProcessQuery(ctx context.Context, userMessage string, history []llm.Message) Response {
	select {
	case d.sem <- struct{}{}:
	case <-ctx.Done():
		return d.modelError(fmt.Errorf("%w: %w", llm.ErrModelUnavailable, ctx.Err()))
	}
	defer func() { <-d.sem }()
	return d.process(ctx, userMessage, history)
}

// TryProcessQuery is ProcessQuery without waiting; it returns ErrBusy when a
// query is already running.
func (d *Dispatcher) TryProcessQuery(ctx context.Context, userMessage string, history []llm.Message) (Response, error) {
	select {
	case d.sem <- struct{}{}:
	default:
		return Response{}, ErrBusy
	}
	defer func() { <-d.sem }()
	return d.process(ctx, userMessage, history), nil
}

func (d *Dispatcher) process(ctx context.Context, userMessage string, history []llm.Message) (resp Response) {
	defer func() {
		otel.RecordQuery(ctx, resp.Action)
	}()

	tasks, err := d.store.ListTasks(ctx)
	if err != nil {
		d.log.Warn("task snapshot failed, prompting without tasks", "err", err)
		tasks = nil
	}
	system := systemPrompt(tasks, err == nil, d.exec.Today())
	msgs := BuildMessages(system, history, d.opts.HistoryLimit, userMessage)

	raw, err := d.client.Chat(ctx, msgs, d.opts.Model)
	if err == nil && ctx.Err() != nil {
		err = fmt.Errorf("%w: %w", llm.ErrModelUnavailable, ctx.Err())
	}
	if cause := context.Cause(ctx); err != nil && cause != nil && !errors.Is(err, cause) {
		err = fmt.Errorf("%w (%w)", err, cause)
	}
	if err != nil {
		d.log.Error("model call failed", "err", err)
		return d.modelError(err)
	}

	cmds, found := Extract(raw)
	if !found {
		return d.reply(Response{Response: raw, Action: ReplyNone, Actions: []Action{}, Raw: raw})
	}

	results := d.executeAll(ctx, cmds)
	actions := make([]Action, len(cmds))
	for i, c := range cmds {
		actions[i] = c.Action()
	}
	resp = Response{Actions: actions, ToolResults: results, Raw: raw}
	if len(cmds) == 1 {
		resp.Action = string(cmds[0].Action())
		resp.Response = FormatResult(results[0])
	} else {
		resp.Action = ReplyBatch
		resp.Response = Summarize(results)
	}
	return d.reply(resp)
}

// executeAll runs cmds in order with a pause between them. Once ctx is done,
// the remaining commands are reported as cancelled without running.
func (d *Dispatcher) executeAll(ctx context.Context, cmds []Command) []ToolResult {
	results := make([]ToolResult, 0, len(cmds))
	for i, cmd := range cmds {
		if i > 0 && !d.pause(ctx) {
			for _, rest := range cmds[i:] {
				results = append(results, failure(rest.Action(), "cancelled"))
			}
			break
		}
		results = append(results, d.exec.Execute(ctx, cmd))
	}
	return results
}

func (d *Dispatcher) pause(ctx context.Context) bool {
	if d.opts.CommandDelay < 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d.opts.CommandDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Summarize renders a batch: a status line over all results followed by the
// text of each successful one.
func Summarize(results []ToolResult) string {
	n := len(results)
	ok := 0
	var details []string
	for _, r := range results {
		if r.Success {
			ok++
			details = append(details, FormatResult(r))
		}
	}
	var s string
	switch {
	case ok == n:
		plural := ""
		if n > 1 {
			plural = "s"
		}
		s = fmt.Sprintf("✅ Done! Successfully completed all %d action%s.", n, plural)
	case ok == 0:
		s = "❌ Sorry, I couldn't complete those actions."
	default:
		s = fmt.Sprintf("⚠️ Completed %d of %d actions.", ok, n)
	}
	if len(details) > 0 {
		s += "\n\n" + strings.Join(details, "\n")
	}
	return s
}

func (d *Dispatcher) modelError(err error) Response {
	_, _, hint := llm.Describe(d.client)
	msg := "Sorry, I couldn't reach the AI model."
	if errors.Is(err, llm.ErrModelProtocol) && !errors.Is(err, llm.ErrModelUnavailable) {
		msg = "Sorry, the AI model returned a response I couldn't read."
	}
	if hint != "" {
		msg += " " + hint
	}
	return d.reply(Response{Response: msg, Action: ReplyError, Actions: []Action{}, Error: err.Error()})
}

func (d *Dispatcher) reply(r Response) Response {
	provider, model, _ := llm.Describe(d.client)
	if d.opts.Model != "" {
		model = d.opts.Model
	}
	r.Provider, r.Model = provider, model
	return r
}
