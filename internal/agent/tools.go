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

// Param describes one tool parameter.
type Param struct {
	Name        string
	Type        string // string or number
	Description string
	Enum        []string
	Required    bool
}

// Tool describes one catalog entry.
type Tool struct {
	Name        Action
	Description string
	Params      []Param
}

// Catalog lists the tools the model may call, in prompt order.
var Catalog = []Tool{
	{
		Name:        ActionListTasks,
		Description: "List all tasks with optional filters (completed, pending, overdue, today)",
		Params: []Param{
			{Name: "filter", Type: "string", Enum: []string{"all", "completed", "pending", "overdue", "today"}, Description: "Filter to apply to tasks"},
		},
	},
	{
		Name:        ActionCreateTask,
		Description: "Create a new task with text, date, and category",
		Params: []Param{
			{Name: "text", Type: "string", Description: "Task description", Required: true},
			{Name: "date", Type: "string", Description: "Due date in YYYY-MM-DD format"},
			{Name: "category", Type: "string", Description: "Task category"},
		},
	},
	{
		Name:        ActionCompleteTask,
		Description: "Mark a task as completed by its ID or description",
		Params: []Param{
			{Name: "taskId", Type: "number", Description: "Task ID"},
			{Name: "taskText", Type: "string", Description: "Task description to match"},
		},
	},
	{
		Name:        ActionDeleteTask,
		Description: "Delete a task by its ID or description",
		Params: []Param{
			{Name: "taskId", Type: "number", Description: "Task ID"},
			{Name: "taskText", Type: "string", Description: "Task description to match"},
		},
	},
	{
		Name:        ActionAnalyzeProductivity,
		Description: "Analyze task completion patterns and provide insights",
		Params: []Param{
			{Name: "period", Type: "string", Enum: []string{"today", "week", "all"}, Description: "Time period to analyze"},
		},
	},
	{
		Name:        ActionSuggestPriorities,
		Description: "Suggest which tasks should be prioritized based on due dates and completion status",
	},
	{
		Name:        ActionGetTaskSuggestions,
		Description: "Get AI suggestions on how to accomplish a specific task, break it down into steps, or provide helpful tips",
		Params: []Param{
			{Name: "taskText", Type: "string", Description: "The task to get suggestions for", Required: true},
			{Name: "taskId", Type: "number", Description: "The task ID if available"},
		},
	},
}

// ErrAlreadyCompleted is reported when completing a task that is already done.
var ErrAlreadyCompleted = errors.New("Task already completed")

// errTaskNotFound is the user-facing form of store.ErrNotFound.
const errTaskNotFound = "Task not found"

// Event describes a task mutation made by a tool.
type Event struct {
	Type   string    `json:"type"` // always "task_update"
	Action Action    `json:"action"`
	Task   *TaskView `json:"task,omitempty"`
}

// Notifier receives task mutations (the HTTP layer forwards them to SSE subscribers).
type Notifier func(ctx context.Context, ev Event)

// Executor runs single commands against a store.
type Executor struct {
	store  store.Store
	model  llm.Client
	name   string // model name for secondary calls; empty uses the client default
	now    func() time.Time
	notify Notifier
	log    *slog.Logger
}

// ExecutorOptions configures NewExecutor.
type ExecutorOptions struct {
	Model  string
	Now    func() time.Time
	Notify Notifier
	Logger *slog.Logger
}

// NewExecutor returns an Executor. model may be nil, in which case
// get_task_suggestions fails gracefully.
func NewExecutor(st store.Store, model llm.Client, opts ExecutorOptions) *Executor {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Executor{store: st, model: model, name: opts.Model, now: opts.Now, notify: opts.Notify, log: opts.Logger}
}

// Today returns the executor's current date.
func (e *Executor) Today() string { return Today(e.now()) }

// Execute runs cmd against a fresh snapshot of the store. It never panics and
// reports every failure inside the returned ToolResult.
func (e *Executor) Execute(ctx context.Context, cmd Command) (res ToolResult) {
	action := cmd.Action()
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("tool panicked", "action", action, "panic", r)
			res = failure(action, fmt.Sprintf("internal error running %s", action))
		}
		res.Action = action
		otel.RecordToolExecution(ctx, string(action), res.Success)
		e.log.Debug("tool executed", "action", action, "success", res.Success, "error", res.Error)
	}()

	switch c := cmd.(type) {
	case ListTasks:
		return e.listTasks(ctx, c)
	case CreateTask:
		return e.createTask(ctx, c)
	case CompleteTask:
		return e.completeTask(ctx, c.TaskID, c.TaskText)
	case DeleteTask:
		return e.deleteTask(ctx, c.TaskID, c.TaskText)
	case AnalyzeProductivity:
		return e.analyze(ctx, c)
	case SuggestPriorities:
		return e.priorities(ctx)
	case GetTaskSuggestions:
		return e.suggestions(ctx, c)
	default:
		return failure(action, fmt.Sprintf("Unknown tool: %s", action))
	}
}

func (e *Executor) snapshot(ctx context.Context, action Action) ([]store.Task, *ToolResult) {
	tasks, err := e.store.ListTasks(ctx)
	if err != nil {
		r := failure(action, "Could not load tasks: "+err.Error())
		return nil, &r
	}
	return tasks, nil
}

func (e *Executor) listTasks(ctx context.Context, c ListTasks) ToolResult {
	tasks, fail := e.snapshot(ctx, ActionListTasks)
	if fail != nil {
		return *fail
	}
	today := e.Today()
	filter := NormalizeFilter(c.Filter)
	filtered := FilterTasks(tasks, filter, today)
	list := &TaskList{Filter: filter, Count: len(filtered), Tasks: make([]TaskView, 0, len(filtered))}
	for _, t := range filtered {
		list.Tasks = append(list.Tasks, NewTaskView(t, today))
	}
	return ToolResult{Success: true, TaskList: list}
}

func (e *Executor) createTask(ctx context.Context, c CreateTask) ToolResult {
	created, err := e.store.CreateTask(ctx, store.NewTask{Text: c.Text, Date: c.Date, Category: c.Category})
	if err != nil {
		var ide *store.InvalidDateError
		switch {
		case errors.Is(err, store.ErrTextRequired):
			return failure(ActionCreateTask, "Task text is required")
		case errors.As(err, &ide):
			return failure(ActionCreateTask, fmt.Sprintf("Invalid date %q, use YYYY-MM-DD", ide.Date))
		}
		return failure(ActionCreateTask, err.Error())
	}
	view := NewTaskView(created, e.Today())
	e.emit(ctx, ActionCreateTask, &view)
	return ToolResult{
		Success: true,
		Message: fmt.Sprintf("Created task: %q due %s in %s", created.Text, HumanDate(created.Date), created.Category),
		Task:    &view,
	}
}

// match finds a task by id, or else by case-insensitive substring of its text.
// The first match in store order wins.
func match(tasks []store.Task, id TaskRef, text string) (store.Task, bool) {
	if id != "" {
		for _, t := range tasks {
			if t.ID == string(id) {
				return t, true
			}
		}
		return store.Task{}, false
	}
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return store.Task{}, false
	}
	for _, t := range tasks {
		if strings.Contains(strings.ToLower(t.Text), needle) {
			return t, true
		}
	}
	return store.Task{}, false
}

func (e *Executor) completeTask(ctx context.Context, id TaskRef, text string) ToolResult {
	tasks, fail := e.snapshot(ctx, ActionCompleteTask)
	if fail != nil {
		return *fail
	}
	t, ok := match(tasks, id, text)
	if !ok {
		return failure(ActionCompleteTask, errTaskNotFound)
	}
	if t.Completed {
		return failure(ActionCompleteTask, ErrAlreadyCompleted.Error())
	}
	if err := e.store.SetCompleted(ctx, t.ID, true); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return failure(ActionCompleteTask, errTaskNotFound)
		}
		return failure(ActionCompleteTask, "Could not update task: "+err.Error())
	}
	t.Completed = true
	view := NewTaskView(t, e.Today())
	e.emit(ctx, ActionCompleteTask, &view)
	return ToolResult{Success: true, Message: fmt.Sprintf("Completed task: %q", t.Text), Task: &view}
}

func (e *Executor) deleteTask(ctx context.Context, id TaskRef, text string) ToolResult {
	tasks, fail := e.snapshot(ctx, ActionDeleteTask)
	if fail != nil {
		return *fail
	}
	t, ok := match(tasks, id, text)
	if !ok {
		return failure(ActionDeleteTask, errTaskNotFound)
	}
	if err := e.store.DeleteTask(ctx, t.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return failure(ActionDeleteTask, errTaskNotFound)
		}
		return failure(ActionDeleteTask, "Could not delete task: "+err.Error())
	}
	view := NewTaskView(t, e.Today())
	e.emit(ctx, ActionDeleteTask, &view)
	return ToolResult{Success: true, Message: fmt.Sprintf("Deleted task: %q", t.Text), Task: &view}
}

func (e *Executor) analyze(ctx context.Context, c AnalyzeProductivity) ToolResult {
	tasks, fail := e.snapshot(ctx, ActionAnalyzeProductivity)
	if fail != nil {
		return *fail
	}
	p := Analyze(tasks, c.Period, e.Today())
	return ToolResult{Success: true, Productivity: &p}
}

func (e *Executor) priorities(ctx context.Context) ToolResult {
	tasks, fail := e.snapshot(ctx, ActionSuggestPriorities)
	if fail != nil {
		return *fail
	}
	r := Prioritize(tasks, e.Today())
	return ToolResult{Success: true, PriorityReport: &r}
}

// suggestionPrompt asks the model for a short plan for one task.
func suggestionPrompt(taskText string) string {
	return fmt.Sprintf(`Provide helpful, actionable suggestions for this task: %q

Please provide:
1. A brief breakdown of how to approach this task
2. 2-3 specific action steps
3. Any helpful tips or resources

Keep it concise and practical. Format as a short paragraph followed by bullet points.`, taskText)
}

func (e *Executor) suggestions(ctx context.Context, c GetTaskSuggestions) ToolResult {
	text := strings.TrimSpace(c.TaskText)
	if text == "" && c.TaskID != "" {
		if t, err := e.store.GetTask(ctx, string(c.TaskID)); err == nil && t != nil {
			text = t.Text
		}
	}
	if text == "" {
		return failure(ActionGetTaskSuggestions, "taskText is required")
	}
	if e.model == nil {
		return failure(ActionGetTaskSuggestions, "Failed to generate suggestions: no model configured")
	}
	out, err := e.model.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: suggestionPrompt(text)}}, e.name)
	if err != nil {
		return failure(ActionGetTaskSuggestions, "Failed to generate suggestions: "+err.Error())
	}
	return ToolResult{Success: true, Suggestion: &Suggestion{
		TaskText:    text,
		TaskID:      string(c.TaskID),
		Suggestions: strings.TrimSpace(out),
	}}
}

func (e *Executor) emit(ctx context.Context, action Action, t *TaskView) {
	if e.notify == nil {
		return
	}
	e.notify(ctx, Event{Type: "task_update", Action: action, Task: t})
}
