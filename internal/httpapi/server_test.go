package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/asad-creats/taskagent/internal/agent"
	"github.com/asad-creats/taskagent/internal/llm"
	"github.com/asad-creats/taskagent/internal/store"
)

// cannedModel answers every chat with the next reply, repeating the last one.
type cannedModel struct {
	mu      sync.Mutex
	replies []string
}

func (m *cannedModel) Chat(_ context.Context, _ []llm.Message, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.replies) == 0 {
		return "", nil
	}
	r := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	return r, nil
}

func (m *cannedModel) ListModels(context.Context) []llm.ModelInfo {
	return []llm.ModelInfo{{Name: "canned"}}
}

func newTestApp(t *testing.T, model llm.Client, opts ServerOptions) (*App, *httptest.Server) {
	t.Helper()
	if opts.Store == nil {
		st, err := store.Open(t.TempDir())
		if err != nil {
			t.Fatalf("store.Open: %v", err)
		}
		t.Cleanup(func() { _ = st.Close() })
		opts.Store = st
	}
	opts.Client = model
	opts.Addr = "127.0.0.1:0"
	opts.StoreDriver = "sqlite"
	opts.Agent.CommandDelay = -1
	app, err := NewApp(opts)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	ts := httptest.NewServer(app.Server.Handler)
	t.Cleanup(ts.Close)
	return app, ts
}

func TestServerSmoke(t *testing.T) {
	t.Parallel()

	_, ts := newTestApp(t, &cannedModel{}, ServerOptions{})

	// health
	r1, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	_ = r1.Body.Close()
	if r1.StatusCode != 200 {
		t.Fatalf("/health status=%d", r1.StatusCode)
	}

	// create task
	resp, err := http.Post(ts.URL+"/tasks", "application/json", strings.NewReader(`{"text":"buy milk","date":"2025-06-01","category":"Shopping"}`))
	if err != nil {
		t.Fatalf("POST /tasks: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /tasks status=%d", resp.StatusCode)
	}

	// list tasks
	r2, err := http.Get(ts.URL + "/tasks")
	if err != nil {
		t.Fatalf("GET /tasks: %v", err)
	}
	defer func() { _ = r2.Body.Close() }()
	var list agent.TaskList
	if err := json.NewDecoder(r2.Body).Decode(&list); err != nil {
		t.Fatalf("decode /tasks: %v", err)
	}
	if list.Count != 1 || list.Tasks[0].Text != "buy milk" || list.Tasks[0].Category != "Shopping" {
		t.Fatalf("unexpected list: %+v", list)
	}

	// SSE should produce initial connected event quickly.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, "GET", ts.URL+"/stream", nil)
	sseResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /stream: %v", err)
	}
	defer func() { _ = sseResp.Body.Close() }()

	sc := bufio.NewScanner(sseResp.Body)
	found := false
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "data: ") && strings.Contains(line, `"type":"connected"`) {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("did not see connected event")
	}
}

func TestServerAPIKey(t *testing.T) {
	t.Parallel()

	_, ts := newTestApp(t, &cannedModel{}, ServerOptions{APIKey: "secret"})

	resp, err := http.Get(ts.URL + "/tasks")
	if err != nil {
		t.Fatalf("GET /tasks: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("GET /tasks without key: status=%d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/tasks", nil)
	req.Header.Set("X-API-Key", "secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /tasks with key: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /tasks with key: status=%d", resp.StatusCode)
	}

	// health stays open
	resp, err = http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /health: status=%d", resp.StatusCode)
	}
}

func TestNewAppRequiresCollaborators(t *testing.T) {
	t.Parallel()
	if _, err := NewApp(ServerOptions{Client: &cannedModel{}}); err == nil {
		t.Fatal("expected error without store")
	}
	if _, err := NewApp(ServerOptions{Store: store.NewMemory()}); err == nil {
		t.Fatal("expected error without client")
	}
}
