// Package httpapi serves the task REST API, the chat endpoint, the SSE event
// stream and the embedded web UI.
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/asad-creats/taskagent/internal/agent"
	"github.com/asad-creats/taskagent/internal/llm"
	"github.com/asad-creats/taskagent/internal/notify"
	"github.com/asad-creats/taskagent/internal/store"
	"github.com/asad-creats/taskagent/internal/ui"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// defaultMaxRequestBodyBytes is the default limit for request body size (1 MiB) to prevent OOM.
const defaultMaxRequestBodyBytes = 1 << 20

// limitBody wraps r.Body with http.MaxBytesReader so handlers cannot read more than maxBytes.
func limitBody(w http.ResponseWriter, r *http.Request, maxBytes int64) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
}

// bodyLimitMiddleware limits request body size for POST, PUT, PATCH to prevent OOM.
func bodyLimitMiddleware(maxBytes int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			limitBody(w, r, maxBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware sets CORS headers for dev mode (UI served from a different origin).
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ServerOptions configures the HTTP server.
type ServerOptions struct {
	Addr           string
	Dev            bool
	APIKey         string         // if set, require X-API-Key header or query api_key
	Store          store.Store    // required
	Client         llm.Client     // required
	StoreDriver    string         // reported by /config
	Agent          agent.Options  // template for per-session dispatchers; Notifier is set by NewApp
	Notify         *notify.Fanout // optional; told about every task change
	MetricsHandler http.Handler   // if set, used for /metrics (e.g. OTel Prometheus handler)
	UseOtelHTTP    bool           // if true, wrap handler with otelhttp for request metrics
	Logger         *slog.Logger
}

// App holds the HTTP server, SSE hub, store, model client and chat sessions.
type App struct {
	Server   *http.Server
	Hub      *SSEHub
	Store    store.Store
	Client   llm.Client
	Sessions *agent.Sessions
	Tools    *agent.Executor

	driver string
	notify *notify.Fanout
	log    *slog.Logger
	now    func() time.Time
}

// NewApp creates the HTTP app and registers all routes. The app owns opts.Store
// and closes it on server shutdown.
func NewApp(opts ServerOptions) (*App, error) {
	if opts.Store == nil {
		return nil, errors.New("httpapi: store required")
	}
	if opts.Client == nil {
		return nil, errors.New("httpapi: model client required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Agent.Now == nil {
		opts.Agent.Now = time.Now
	}
	if opts.Agent.Logger == nil {
		opts.Agent.Logger = opts.Logger
	}

	hub := NewSSEHub()
	a := &App{
		Hub:    hub,
		Store:  opts.Store,
		Client: opts.Client,
		driver: opts.StoreDriver,
		notify: opts.Notify,
		log:    opts.Logger,
		now:    opts.Agent.Now,
	}
	dispatcherOpts := opts.Agent
	dispatcherOpts.Notifier = func(_ context.Context, ev agent.Event) {
		fields := map[string]any{"action": ev.Action}
		if ev.Task != nil {
			fields["task"] = ev.Task
			a.forward(agentVerb(ev.Action), ev.Task.ID, ev.Task.Text, ev.Task.Date)
		}
		hub.Publish(EventTaskUpdate, fields)
	}
	a.Sessions = agent.NewSessions(func() *agent.Dispatcher {
		return agent.NewDispatcher(opts.Store, opts.Client, dispatcherOpts)
	})
	a.Tools = agent.NewExecutor(opts.Store, opts.Client, agent.ExecutorOptions{
		Model:  dispatcherOpts.Model,
		Now:    dispatcherOpts.Now,
		Notify: dispatcherOpts.Notifier,
		Logger: opts.Logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"ok": true})
	})
	if opts.MetricsHandler != nil {
		mux.Handle("/metrics", opts.MetricsHandler)
	} else {
		mux.HandleFunc("/metrics", a.handlePlainMetrics)
	}
	mux.HandleFunc("/config", a.handleConfig)
	mux.HandleFunc("/stream", hub.Handler())

	mux.HandleFunc("/tasks", a.handleTasks)
	mux.HandleFunc("/tasks/stats", a.handleStats)
	mux.HandleFunc("/tasks/", a.handleTask)

	mux.HandleFunc("/chat", a.handleChat)
	mux.HandleFunc("/sessions/", a.handleSession)
	mux.HandleFunc("/models", a.handleModels)

	// UI: embedded single-page task manager
	mux.Handle("/", ui.Handler())

	var handler http.Handler = mux
	handler = bodyLimitMiddleware(defaultMaxRequestBodyBytes, handler)
	if opts.Dev {
		handler = corsMiddleware(handler)
	}
	if opts.APIKey != "" {
		handler = apiKeyMiddleware(opts.APIKey, handler)
	}
	handler = requestLogMiddleware(opts.Logger, handler)
	if opts.UseOtelHTTP {
		handler = otelhttp.NewHandler(handler, "taskagent")
	}
	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Chat waits on the model, which may take minutes on a local CPU.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	srv.RegisterOnShutdown(func() {
		_ = opts.Store.Close()
	})
	a.Server = srv
	return a, nil
}

func (a *App) handleConfig(w http.ResponseWriter, r *http.Request) {
	provider, model, _ := llm.Describe(a.Client)
	degraded := false
	if fb, ok := a.Store.(*store.Fallback); ok {
		degraded = fb.Degraded()
	}
	writeJSON(w, map[string]any{
		"provider":       provider,
		"model":          model,
		"store":          a.driver,
		"store_degraded": degraded,
		"today":          agent.Today(a.now()),
	})
}

// handlePlainMetrics is the /metrics fallback when OTel is off: task gauges in
// Prometheus text format.
func (a *App) handlePlainMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	tasks, err := a.Store.ListTasks(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	today := agent.Today(a.now())
	var pending, completed, overdue int64
	for _, t := range tasks {
		switch {
		case t.Completed:
			completed++
		case agent.IsOverdue(t, today):
			overdue++
			pending++
		default:
			pending++
		}
	}
	_, _ = fmt.Fprintf(w, "# TYPE taskagent_tasks gauge\n")
	_, _ = fmt.Fprintf(w, "taskagent_tasks{state=\"pending\"} %d\n", pending)
	_, _ = fmt.Fprintf(w, "taskagent_tasks{state=\"completed\"} %d\n", completed)
	_, _ = fmt.Fprintf(w, "taskagent_tasks{state=\"overdue\"} %d\n", overdue)
	_, _ = fmt.Fprintf(w, "# TYPE taskagent_chat_sessions gauge\n")
	_, _ = fmt.Fprintf(w, "taskagent_chat_sessions %d\n", a.Sessions.Len())
}

func (a *App) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	provider, model, _ := llm.Describe(a.Client)
	writeJSON(w, map[string]any{
		"provider": provider,
		"model":    model,
		"models":   a.Client.ListModels(r.Context()),
	})
}

// PruneSessions drops chat sessions idle for longer than maxIdle.
func (a *App) PruneSessions(maxIdle time.Duration) int {
	n := a.Sessions.Prune(a.now(), maxIdle)
	if n > 0 {
		a.log.Debug("pruned idle chat sessions", "count", n)
	}
	return n
}

// responseRecorder captures status code for logging and forwards Flusher if supported.
type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func apiKeyMiddleware(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/health" || path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get("X-API-Key")
		if key == "" {
			key = r.URL.Query().Get("api_key")
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			writeJSONError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)
		logger.Info("request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// writeJSONError sends a JSON body {"error": "message"} with the given status code.
func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message})
}

// writeStoreError maps store errors to HTTP status codes.
func writeStoreError(w http.ResponseWriter, err error) {
	var ide *store.InvalidDateError
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "task not found")
	case errors.Is(err, store.ErrTextRequired):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &ide):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrUnavailable):
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}
