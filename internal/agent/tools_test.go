package agent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asad-creats/taskagent/internal/llm"
	"github.com/asad-creats/taskagent/internal/store"
)

func newExecutor(st store.Store, model llm.Client, notify Notifier) *Executor {
	return NewExecutor(st, model, ExecutorOptions{Now: nowFn, Notify: notify, Logger: quietLogger()})
}

func TestCreateThenListScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ex := newExecutor(store.NewMemory(), nil, nil)

	res := ex.Execute(ctx, CreateTask{Text: "buy milk", Date: "2025-06-01", Category: "Shopping"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, `Created task: "buy milk" due Jun 1, 2025 in Shopping`, res.Message)

	list := ex.Execute(ctx, ListTasks{Filter: FilterAll})
	require.True(t, list.Success)
	require.NotNil(t, list.TaskList)
	require.Equal(t, 1, list.Count)
	got := list.Tasks[0]
	assert.Equal(t, "buy milk", got.Text)
	assert.Equal(t, "Shopping", got.Category)
	assert.False(t, got.Completed)
	assert.True(t, got.IsOverdue)
}

func TestOverdueThenCompleteScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	seeded := seed(t, st, store.NewTask{Text: "file taxes", Date: "2025-06-09"})
	ex := newExecutor(st, nil, nil)

	overdue := ex.Execute(ctx, ListTasks{Filter: FilterOverdue})
	require.Equal(t, 1, overdue.Count)
	assert.Equal(t, seeded[0].ID, overdue.Tasks[0].ID)

	done := ex.Execute(ctx, CompleteTask{TaskID: TaskRef(seeded[0].ID)})
	require.True(t, done.Success, done.Error)
	assert.Equal(t, `Completed task: "file taxes"`, done.Message)

	overdue = ex.Execute(ctx, ListTasks{Filter: FilterOverdue})
	assert.Equal(t, 0, overdue.Count)
}

func TestCompleteFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	seeded := seed(t, st, store.NewTask{Text: "walk dog", Date: "2025-06-10"})
	ex := newExecutor(st, nil, nil)

	res := ex.Execute(ctx, CompleteTask{TaskText: "feed cat"})
	assert.False(t, res.Success)
	assert.Equal(t, "Task not found", res.Error)

	res = ex.Execute(ctx, CompleteTask{})
	assert.Equal(t, "Task not found", res.Error)

	require.True(t, ex.Execute(ctx, CompleteTask{TaskText: "WALK"}).Success)
	res = ex.Execute(ctx, CompleteTask{TaskID: TaskRef(seeded[0].ID)})
	assert.False(t, res.Success)
	assert.Equal(t, "Task already completed", res.Error)
}

func TestDeleteMatching(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	seeded := seed(t, st,
		store.NewTask{Text: "grocery run", Date: "2025-06-10"},
		store.NewTask{Text: "grocery list", Date: "2025-06-11"},
	)
	ex := newExecutor(st, nil, nil)

	// id wins over text
	res := ex.Execute(ctx, DeleteTask{TaskID: TaskRef(seeded[1].ID), TaskText: "grocery run"})
	require.True(t, res.Success)
	assert.Equal(t, `Deleted task: "grocery list"`, res.Message)

	// first match in store order
	res = ex.Execute(ctx, DeleteTask{TaskText: "grocery"})
	require.True(t, res.Success)
	assert.Equal(t, `Deleted task: "grocery run"`, res.Message)

	res = ex.Execute(ctx, DeleteTask{TaskText: "grocery"})
	assert.Equal(t, "Task not found", res.Error)
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()
	ex := newExecutor(store.NewMemory(), nil, nil)

	res := ex.Execute(context.Background(), CreateTask{Text: "  "})
	assert.False(t, res.Success)
	assert.Equal(t, "Task text is required", res.Error)

	res = ex.Execute(context.Background(), CreateTask{Text: "x", Date: "2025-13-01"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Invalid date")
}

func TestCreateDefaults(t *testing.T) {
	t.Parallel()
	ex := newExecutor(store.NewMemory(), nil, nil)

	res := ex.Execute(context.Background(), CreateTask{Text: "stretch"})
	require.True(t, res.Success)
	assert.Equal(t, store.DefaultCategory, res.Task.Category)
	assert.NotEmpty(t, res.Task.Date)
}

func TestAnalyzeAndPrioritizeTools(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	seed(t, st,
		store.NewTask{Text: "a", Date: "2025-06-01"},
		store.NewTask{Text: "b", Date: "2025-06-10"},
		store.NewTask{Text: "c", Date: "2025-06-20"},
	)
	ex := newExecutor(st, nil, nil)

	an := ex.Execute(ctx, AnalyzeProductivity{})
	require.True(t, an.Success)
	assert.Equal(t, PeriodAll, an.Productivity.Period)
	assert.Equal(t, 3, an.Productivity.Stats.Total)
	assert.Equal(t, 1, an.Productivity.Stats.Overdue)

	pr := ex.Execute(ctx, SuggestPriorities{})
	require.True(t, pr.Success)
	assert.Equal(t, "1 overdue, 1 due today, 1 upcoming", pr.Summary)
}

func TestTaskSuggestions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	seeded := seed(t, st, store.NewTask{Text: "learn go", Date: "2025-06-10"})

	model := &scriptedModel{replies: []string{"  Start with the tour.\n- read\n- write  "}}
	ex := newExecutor(st, model, nil)
	res := ex.Execute(ctx, GetTaskSuggestions{TaskID: TaskRef(seeded[0].ID)})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "learn go", res.TaskText)
	assert.Equal(t, "Start with the tour.\n- read\n- write", res.Suggestions)
	require.Len(t, model.lastCall(), 1)
	assert.Contains(t, model.lastCall()[0].Content, `"learn go"`)

	failing := &scriptedModel{err: &llm.Error{Provider: "fake", Op: "chat", Kind: llm.ErrModelUnavailable, Err: errors.New("refused")}}
	res = newExecutor(st, failing, nil).Execute(ctx, GetTaskSuggestions{TaskText: "learn go"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Failed to generate suggestions: ")

	res = newExecutor(st, model, nil).Execute(ctx, GetTaskSuggestions{})
	assert.False(t, res.Success)
}

func TestMutationsNotify(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	var (
		mu     sync.Mutex
		events []Event
	)
	ex := newExecutor(store.NewMemory(), nil, func(_ context.Context, ev Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	})

	created := ex.Execute(ctx, CreateTask{Text: "ship it", Date: "2025-06-10"})
	ex.Execute(ctx, ListTasks{})
	ex.Execute(ctx, CompleteTask{TaskID: TaskRef(created.Task.ID)})
	ex.Execute(ctx, DeleteTask{TaskID: TaskRef(created.Task.ID)})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 3)
	assert.Equal(t, []Action{ActionCreateTask, ActionCompleteTask, ActionDeleteTask},
		[]Action{events[0].Action, events[1].Action, events[2].Action})
	assert.Equal(t, "task_update", events[0].Type)
	assert.True(t, events[1].Task.Completed)
}

type brokenStore struct{ *store.Memory }

func (brokenStore) ListTasks(context.Context) ([]store.Task, error) {
	return nil, store.Unavailable("test", "list", errors.New("connection refused"))
}

func TestStoreFailureIsReported(t *testing.T) {
	t.Parallel()
	ex := newExecutor(brokenStore{store.NewMemory()}, nil, nil)

	res := ex.Execute(context.Background(), ListTasks{})
	assert.False(t, res.Success)
	assert.Equal(t, ActionListTasks, res.Action)
	assert.Contains(t, res.Error, "connection refused")
}

type panickyStore struct{ *store.Memory }

func (panickyStore) ListTasks(context.Context) ([]store.Task, error) { panic("boom") }

func TestExecuteRecoversPanics(t *testing.T) {
	t.Parallel()
	ex := newExecutor(panickyStore{store.NewMemory()}, nil, nil)

	var res ToolResult
	require.NotPanics(t, func() { res = ex.Execute(context.Background(), SuggestPriorities{}) })
	assert.False(t, res.Success)
	assert.Equal(t, ActionSuggestPriorities, res.Action)
}
