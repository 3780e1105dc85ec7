package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/asad-creats/taskagent/internal/agent"
	"github.com/asad-creats/taskagent/internal/notify"
	"github.com/asad-creats/taskagent/internal/store"
)

type createTaskRequest struct {
	Text     string `json:"text"`
	Date     string `json:"date"`
	Category string `json:"category"`
	Notes    string `json:"notes"`
}

type updateTaskRequest struct {
	Text      *string `json:"text"`
	Date      *string `json:"date"`
	Category  *string `json:"category"`
	Notes     *string `json:"notes"`
	Completed *bool   `json:"completed"`
}

func (a *App) today() string { return agent.Today(a.now()) }

func (a *App) publishTask(action string, t store.Task) {
	a.publishTaskAs(action, action, t)
}

// publishTaskAs is publishTask with a separate notification verb.
func (a *App) publishTaskAs(action, verb string, t store.Task) {
	a.Hub.Publish(EventTaskUpdate, map[string]any{
		"action": action,
		"task":   agent.NewTaskView(t, a.today()),
	})
	a.forward(verb, t.ID, t.Text, t.Date)
}

// forward hands a task change to the configured notification sinks without
// blocking the request.
func (a *App) forward(action, id, text, date string) {
	if a.notify == nil {
		return
	}
	ev := notify.Event{Action: action, TaskID: id, Text: text, Date: date, At: a.now()}
	go func() { _ = a.notify.Notify(context.Background(), ev) }()
}

// agentVerb maps a tool action to the change verb used by notifications.
func agentVerb(action agent.Action) string {
	switch action {
	case agent.ActionCreateTask:
		return notify.Created
	case agent.ActionCompleteTask:
		return notify.Completed
	case agent.ActionDeleteTask:
		return notify.Deleted
	default:
		return notify.Updated
	}
}

// handleTasks serves GET /tasks?filter= and POST /tasks.
func (a *App) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tasks, err := a.Store.ListTasks(r.Context())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		today := a.today()
		filter := agent.NormalizeFilter(agent.Filter(r.URL.Query().Get("filter")))
		filtered := agent.FilterTasks(tasks, filter, today)
		views := make([]agent.TaskView, 0, len(filtered))
		for _, t := range filtered {
			views = append(views, agent.NewTaskView(t, today))
		}
		writeJSON(w, agent.TaskList{Filter: filter, Count: len(views), Tasks: views})
	case http.MethodPost:
		var body createTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		t, err := a.Store.CreateTask(r.Context(), store.NewTask(body))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		a.publishTask("created", t)
		writeJSONStatus(w, http.StatusCreated, agent.NewTaskView(t, a.today()))
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleStats serves GET /tasks/stats: all-time counts and per-category totals.
func (a *App) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tasks, err := a.Store.ListTasks(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	period := agent.NormalizePeriod(agent.Period(r.URL.Query().Get("period")))
	writeJSON(w, agent.Analyze(tasks, period, a.today()))
}

// handleTask serves /tasks/{id}, /tasks/{id}/toggle and /tasks/{id}/suggestions.
func (a *App) handleTask(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/tasks/"), "/")
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" || len(parts) > 2 {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	if len(parts) == 2 {
		switch parts[1] {
		case "toggle":
			a.toggleTask(w, r, id)
		case "suggestions":
			a.taskSuggestions(w, r, id)
		default:
			writeJSONError(w, http.StatusNotFound, "not found")
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		t, ok := a.lookup(w, r, id)
		if !ok {
			return
		}
		writeJSON(w, agent.NewTaskView(*t, a.today()))
	case http.MethodPatch, http.MethodPut:
		var body updateTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if err := a.Store.UpdateTask(r.Context(), id, store.TaskFields(body)); err != nil {
			writeStoreError(w, err)
			return
		}
		t, ok := a.lookup(w, r, id)
		if !ok {
			return
		}
		a.publishTask("updated", *t)
		writeJSON(w, agent.NewTaskView(*t, a.today()))
	case http.MethodDelete:
		t, ok := a.lookup(w, r, id)
		if !ok {
			return
		}
		if err := a.Store.DeleteTask(r.Context(), id); err != nil {
			writeStoreError(w, err)
			return
		}
		a.publishTask("deleted", *t)
		writeJSON(w, map[string]any{"ok": true})
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// lookup fetches a task or writes 404.
func (a *App) lookup(w http.ResponseWriter, r *http.Request, id string) (*store.Task, bool) {
	t, err := a.Store.GetTask(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return nil, false
	}
	if t == nil {
		writeJSONError(w, http.StatusNotFound, "task not found")
		return nil, false
	}
	return t, true
}

func (a *App) toggleTask(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	t, ok := a.lookup(w, r, id)
	if !ok {
		return
	}
	if err := a.Store.SetCompleted(r.Context(), id, !t.Completed); err != nil {
		writeStoreError(w, err)
		return
	}
	t.Completed = !t.Completed
	verb := notify.Updated
	if t.Completed {
		verb = notify.Completed
	}
	a.publishTaskAs("updated", verb, *t)
	writeJSON(w, agent.NewTaskView(*t, a.today()))
}

func (a *App) taskSuggestions(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	t, ok := a.lookup(w, r, id)
	if !ok {
		return
	}
	res := a.Tools.Execute(r.Context(), agent.GetTaskSuggestions{TaskText: t.Text, TaskID: agent.TaskRef(t.ID)})
	if !res.Success {
		writeJSONStatus(w, http.StatusBadGateway, res)
		return
	}
	writeJSON(w, res)
}
