package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asad-creats/taskagent/internal/llm"
	"github.com/asad-creats/taskagent/internal/store"
)

func TestProcessQuerySingleCommand(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	model := &scriptedModel{replies: []string{`{"action":"create_task","parameters":{"text":"buy milk","date":"2025-06-10","category":"Shopping"}}`}}
	d := newDispatcher(t, st, model)

	resp := d.ProcessQuery(context.Background(), "add a task to buy milk", nil)
	assert.Equal(t, string(ActionCreateTask), resp.Action)
	assert.Equal(t, []Action{ActionCreateTask}, resp.Actions)
	assert.Equal(t, `Created task: "buy milk" due Jun 10, 2025 in Shopping`, resp.Response)
	require.Len(t, resp.ToolResults, 1)
	assert.True(t, resp.ToolResults[0].Success)
	assert.Equal(t, "fake", resp.Provider)
	assert.Equal(t, "fake-1", resp.Model)

	tasks, err := st.ListTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
}

func TestProcessQueryPassthrough(t *testing.T) {
	t.Parallel()
	const reply = "Hello! I'm doing well. How can I help with your tasks?"
	d := newDispatcher(t, store.NewMemory(), &scriptedModel{replies: []string{reply}})

	resp := d.ProcessQuery(context.Background(), "how are you", nil)
	assert.Equal(t, ReplyNone, resp.Action)
	assert.Equal(t, reply, resp.Response)
	assert.Empty(t, resp.Actions)
	assert.Nil(t, resp.ToolResults)
}

func TestProcessQueryBatchIndependence(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	model := &scriptedModel{replies: []string{"```json\n" + `[
		{"action":"create_task","parameters":{"text":"learn python","date":"2025-06-10"}},
		{"action":"complete_task","parameters":{"taskText":"does not exist"}},
		{"action":"create_task","parameters":{"text":"practice coding","date":"2025-06-10"}}
	]` + "\n```"}}
	d := newDispatcher(t, st, model)

	resp := d.ProcessQuery(context.Background(), "add two tasks and finish a third", nil)
	assert.Equal(t, ReplyBatch, resp.Action)
	assert.Equal(t, []Action{ActionCreateTask, ActionCompleteTask, ActionCreateTask}, resp.Actions)
	assert.True(t, strings.HasPrefix(resp.Response, "⚠️ Completed 2 of 3 actions."), resp.Response)
	assert.Contains(t, resp.Response, `Created task: "learn python"`)
	assert.Contains(t, resp.Response, `Created task: "practice coding"`)
	require.Len(t, resp.ToolResults, 3)
	assert.Equal(t, "Task not found", resp.ToolResults[1].Error)

	tasks, err := st.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestProcessQueryBatchRunsInOrder(t *testing.T) {
	t.Parallel()
	model := &scriptedModel{replies: []string{`[
		{"action":"create_task","parameters":{"text":"x","date":"2025-06-10"}},
		{"action":"list_tasks","parameters":{"filter":"all"}}
	]`}}
	d := newDispatcher(t, store.NewMemory(), model)

	resp := d.ProcessQuery(context.Background(), "add x then show my tasks", nil)
	require.Len(t, resp.ToolResults, 2)
	assert.Equal(t, 1, resp.ToolResults[1].Count)
	assert.True(t, strings.HasPrefix(resp.Response, "✅ Done! Successfully completed all 2 actions."))
}

func TestProcessQueryModelFailure(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	seed(t, st, store.NewTask{Text: "keep me", Date: "2025-06-10"})
	model := &scriptedModel{err: &llm.Error{Provider: "fake", Op: "chat", Kind: llm.ErrModelUnavailable, Err: errors.New("dial tcp: connection refused")}}
	d := newDispatcher(t, st, model)

	var resp Response
	require.NotPanics(t, func() { resp = d.ProcessQuery(context.Background(), "show my tasks", nil) })
	assert.Equal(t, ReplyError, resp.Action)
	assert.NotEmpty(t, resp.Response)
	assert.Contains(t, resp.Response, "couldn't reach the AI model")
	assert.Contains(t, resp.Response, "Make sure the fake model is running.")
	assert.Contains(t, resp.Error, "connection refused")
	assert.Empty(t, resp.ToolResults)
}

func TestProcessQueryProtocolFailure(t *testing.T) {
	t.Parallel()
	model := &scriptedModel{err: &llm.Error{Provider: "fake", Op: "chat", Kind: llm.ErrModelProtocol}}
	d := newDispatcher(t, store.NewMemory(), model)

	resp := d.ProcessQuery(context.Background(), "hi", nil)
	assert.Equal(t, ReplyError, resp.Action)
	assert.Contains(t, resp.Response, "couldn't read")
}

func TestProcessQueryCancelled(t *testing.T) {
	t.Parallel()
	model := &scriptedModel{block: make(chan struct{})}
	d := newDispatcher(t, store.NewMemory(), model)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	resp := d.ProcessQuery(ctx, "show my tasks", nil)
	assert.Equal(t, ReplyError, resp.Action)
	assert.Contains(t, resp.Response, "couldn't reach the AI model")
}

func TestTryProcessQueryBusy(t *testing.T) {
	t.Parallel()
	model := &scriptedModel{block: make(chan struct{}), replies: []string{"hello"}}
	d := newDispatcher(t, store.NewMemory(), model)

	done := make(chan Response, 1)
	go func() { done <- d.ProcessQuery(context.Background(), "first", nil) }()
	require.Eventually(t, func() bool { return model.lastCall() != nil }, time.Second, 5*time.Millisecond)

	_, err := d.TryProcessQuery(context.Background(), "second", nil)
	assert.ErrorIs(t, err, ErrBusy)

	close(model.block)
	assert.Equal(t, "hello", (<-done).Response)

	_, err = d.TryProcessQuery(context.Background(), "third", nil)
	assert.NoError(t, err)
}

func TestBatchCancelledBetweenCommands(t *testing.T) {
	t.Parallel()
	model := &scriptedModel{replies: []string{`[
		{"action":"create_task","parameters":{"text":"one","date":"2025-06-10"}},
		{"action":"create_task","parameters":{"text":"two","date":"2025-06-10"}}
	]`}}
	st := store.NewMemory()
	d := NewDispatcher(st, model, Options{CommandDelay: time.Hour, Now: nowFn, Logger: quietLogger()})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer cancel()
		for range 200 {
			if tasks, _ := st.ListTasks(context.Background()); len(tasks) == 1 {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()
	resp := d.ProcessQuery(ctx, "add one and two", nil)
	require.Len(t, resp.ToolResults, 2)
	assert.True(t, resp.ToolResults[0].Success)
	assert.Equal(t, "cancelled", resp.ToolResults[1].Error)
	assert.Contains(t, resp.Response, "Completed 1 of 2 actions.")
}

func TestPromptContents(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	seed(t, st,
		store.NewTask{Text: "late report", Date: "2025-06-01"},
		store.NewTask{Text: "gym", Date: "2025-06-12", Category: "Health"},
	)
	model := &scriptedModel{replies: []string{"ok"}}
	d := newDispatcher(t, st, model)

	history := make([]llm.Message, 0, 14)
	for i := range 14 {
		history = append(history, llm.Message{Role: llm.RoleUser, Content: fmt.Sprintf("turn %d", i)})
	}
	d.ProcessQuery(context.Background(), "what now?", history)

	msgs := model.lastCall()
	require.Len(t, msgs, 1+DefaultHistoryLimit+1)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Equal(t, "turn 4", msgs[1].Content)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "what now?"}, msgs[len(msgs)-1])

	sys := msgs[0].Content
	assert.Contains(t, sys, "Current tasks: 2 total")
	assert.Contains(t, sys, "Today's date: 2025-06-10")
	assert.Contains(t, sys, "late report (due 2025-06-01, General, overdue)")
	assert.Contains(t, sys, "gym (due 2025-06-12, Health, pending)")
	for _, tool := range Catalog {
		assert.Contains(t, sys, string(tool.Name))
	}
	assert.Contains(t, sys, `ONLY respond in plain English`)
}

func TestPromptWithoutSnapshot(t *testing.T) {
	t.Parallel()
	model := &scriptedModel{replies: []string{"ok"}}
	d := newDispatcher(t, brokenStore{store.NewMemory()}, model)

	resp := d.ProcessQuery(context.Background(), "hello", nil)
	assert.Equal(t, ReplyNone, resp.Action)

	sys := model.lastCall()[0].Content
	assert.NotContains(t, sys, "0 total")
	assert.Contains(t, sys, "Current tasks: unavailable")

	assert.Contains(t, SystemPrompt(nil, "2025-06-10"), "Current tasks: 0 total")
}

func TestBuildMessagesNoHistory(t *testing.T) {
	t.Parallel()
	msgs := BuildMessages("sys", []llm.Message{{Role: llm.RoleUser, Content: "old"}}, -1, "new")
	assert.Len(t, msgs, 2)
}
