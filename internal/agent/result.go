package agent

import "github.com/asad-creats/taskagent/internal/store"

// ToolResult is the outcome of one command. Exactly one payload pointer is set
// on success for read-only tools; mutating tools set Message and Task.
type ToolResult struct {
	Action  Action    `json:"action"`
	Success bool      `json:"success"`
	Message string    `json:"message,omitempty"`
	Error   string    `json:"error,omitempty"`
	Task    *TaskView `json:"task,omitempty"`

	*TaskList
	*Productivity
	*PriorityReport
	*Suggestion
}

// TaskView is a task as reported to callers, with the overdue flag computed.
type TaskView struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Date      string `json:"date"`
	Category  string `json:"category"`
	Completed bool   `json:"completed"`
	Notes     string `json:"notes,omitempty"`
	IsOverdue bool   `json:"isOverdue"`
}

// NewTaskView annotates t relative to today (YYYY-MM-DD).
func NewTaskView(t store.Task, today string) TaskView {
	return TaskView{
		ID:        t.ID,
		Text:      t.Text,
		Date:      t.Date,
		Category:  t.Category,
		Completed: t.Completed,
		Notes:     t.Notes,
		IsOverdue: IsOverdue(t, today),
	}
}

// TaskList is the list_tasks payload.
type TaskList struct {
	Filter Filter     `json:"filter"`
	Count  int        `json:"count"`
	Tasks  []TaskView `json:"tasks"`
}

// Stats are the counts reported by analyze_productivity.
type Stats struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	Pending        int `json:"pending"`
	Overdue        int `json:"overdue"`
	CompletionRate int `json:"completionRate"` // percent, 0 when Total is 0
}

// CategoryStats counts tasks in one category.
type CategoryStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// Productivity is the analyze_productivity payload.
type Productivity struct {
	Period     Period                   `json:"period"`
	Stats      Stats                    `json:"stats"`
	Categories map[string]CategoryStats `json:"categories"`
	Insights   []string                 `json:"insights"`
}

// Priority labels a PriorityGroup.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// PriorityTask is a task listed in a priority group.
type PriorityTask struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Date string `json:"date"`
}

// PriorityGroup is one bucket of suggest_priorities.
type PriorityGroup struct {
	Priority Priority       `json:"priority"`
	Reason   string         `json:"reason"`
	Tasks    []PriorityTask `json:"tasks"`
}

// PriorityReport is the suggest_priorities payload.
type PriorityReport struct {
	Priorities []PriorityGroup `json:"priorities"`
	Summary    string          `json:"summary"`
}

// Suggestion is the get_task_suggestions payload.
type Suggestion struct {
	TaskText    string `json:"taskText"`
	TaskID      string `json:"taskId,omitempty"`
	Suggestions string `json:"suggestions"`
}

func failure(action Action, msg string) ToolResult {
	return ToolResult{Action: action, Success: false, Error: msg}
}
