package agent

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/asad-creats/taskagent/internal/llm"
	"github.com/asad-creats/taskagent/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fixedNow is 2025-06-10 noon local time.
var fixedNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.Local)

func nowFn() time.Time { return fixedNow }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedModel replays canned replies and records every call.
type scriptedModel struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   [][]llm.Message
	block   chan struct{} // when set, Chat waits on it or ctx
}

func (m *scriptedModel) Chat(ctx context.Context, msgs []llm.Message, _ string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, msgs)
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", &llm.Error{Provider: "fake", Op: "chat", Kind: llm.ErrModelUnavailable, Err: ctx.Err()}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	if len(m.replies) == 0 {
		return "", nil
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	return r, nil
}

func (m *scriptedModel) ListModels(context.Context) []llm.ModelInfo {
	return []llm.ModelInfo{{Name: "fake"}}
}

func (m *scriptedModel) Provider() string        { return "fake" }
func (m *scriptedModel) DefaultModel() string    { return "fake-1" }
func (m *scriptedModel) UnavailableHint() string { return "Make sure the fake model is running." }

func (m *scriptedModel) lastCall() []llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}

func newDispatcher(t *testing.T, st store.Store, model llm.Client) *Dispatcher {
	t.Helper()
	return NewDispatcher(st, model, Options{CommandDelay: -1, Now: nowFn, Logger: quietLogger()})
}

func seed(t *testing.T, st store.Store, tasks ...store.NewTask) []store.Task {
	t.Helper()
	out := make([]store.Task, 0, len(tasks))
	for _, nt := range tasks {
		created, err := st.CreateTask(context.Background(), nt)
		if err != nil {
			t.Fatalf("seed %q: %v", nt.Text, err)
		}
		out = append(out, created)
	}
	return out
}
