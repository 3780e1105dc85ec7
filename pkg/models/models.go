// Package models provides the JSON types of the taskagent HTTP API.
// They mirror what the server writes and are stable for use by pkg/client and other consumers.
package models

import "time"

// Task is a to-do item as returned by the API, with the overdue flag computed by the server.
type Task struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Date      string `json:"date"` // YYYY-MM-DD
	Category  string `json:"category"`
	Completed bool   `json:"completed"`
	Notes     string `json:"notes,omitempty"`
	IsOverdue bool   `json:"isOverdue"`
}

// NewTask is the POST /tasks body. Empty Date means today, empty Category means "General".
type NewTask struct {
	Text     string `json:"text"`
	Date     string `json:"date,omitempty"`
	Category string `json:"category,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// TaskUpdate is the PATCH /tasks/{id} body; nil fields are left unchanged.
type TaskUpdate struct {
	Text      *string `json:"text,omitempty"`
	Date      *string `json:"date,omitempty"`
	Category  *string `json:"category,omitempty"`
	Notes     *string `json:"notes,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// TaskList is the GET /tasks response.
type TaskList struct {
	Filter string `json:"filter"`
	Count  int    `json:"count"`
	Tasks  []Task `json:"tasks"`
}

// Stats are task counts; CompletionRate is a percentage.
type Stats struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	Pending        int `json:"pending"`
	Overdue        int `json:"overdue"`
	CompletionRate int `json:"completionRate"`
}

// CategoryStats counts the tasks of one category.
type CategoryStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// Productivity is the GET /tasks/stats response.
type Productivity struct {
	Period     string                   `json:"period"`
	Stats      Stats                    `json:"stats"`
	Categories map[string]CategoryStats `json:"categories"`
	Insights   []string                 `json:"insights"`
}

// PriorityTask is a task inside a priority group.
type PriorityTask struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Date string `json:"date"`
}

// PriorityGroup is one HIGH, MEDIUM or LOW bucket.
type PriorityGroup struct {
	Priority string         `json:"priority"`
	Reason   string         `json:"reason"`
	Tasks    []PriorityTask `json:"tasks"`
}

// ToolResult is the outcome of one command the assistant executed. Only the
// fields of the tool that ran are set.
type ToolResult struct {
	Action  string `json:"action"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Task    *Task  `json:"task,omitempty"`

	// list_tasks
	Filter string `json:"filter,omitempty"`
	Count  int    `json:"count,omitempty"`
	Tasks  []Task `json:"tasks,omitempty"`

	// analyze_productivity
	Period     string                   `json:"period,omitempty"`
	Stats      *Stats                   `json:"stats,omitempty"`
	Categories map[string]CategoryStats `json:"categories,omitempty"`
	Insights   []string                 `json:"insights,omitempty"`

	// suggest_priorities
	Priorities []PriorityGroup `json:"priorities,omitempty"`
	Summary    string          `json:"summary,omitempty"`

	// get_task_suggestions
	TaskText    string `json:"taskText,omitempty"`
	TaskID      string `json:"taskId,omitempty"`
	Suggestions string `json:"suggestions,omitempty"`
}

// ChatRequest is the POST /chat body. An empty SessionID starts a new session.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// ChatResponse is the POST /chat response.
type ChatResponse struct {
	SessionID   string       `json:"session_id"`
	Response    string       `json:"response"`
	Action      string       `json:"action"`
	Actions     []string     `json:"actions"`
	ToolResults []ToolResult `json:"tool_results"`
	Raw         string       `json:"raw,omitempty"`
	Provider    string       `json:"provider"`
	Model       string       `json:"model"`
	Error       string       `json:"error,omitempty"`
}

// Turn is one message of a chat session.
type Turn struct {
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	Action      string       `json:"action,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// Session is the GET /sessions/{id} response.
type Session struct {
	ID    string `json:"id"`
	Turns []Turn `json:"turns"`
}

// Model is a model the backend can serve.
type Model struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size,omitempty"`
	ModifiedAt time.Time `json:"modified_at,omitempty"`
}

// Models is the GET /models response.
type Models struct {
	Provider string  `json:"provider"`
	Model    string  `json:"model"`
	Models   []Model `json:"models"`
}

// Config is the GET /config response.
type Config struct {
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	Store         string `json:"store"`
	StoreDegraded bool   `json:"store_degraded"`
	Today         string `json:"today"`
}

// Action values reported in ChatResponse.Action besides the tool names.
const (
	ActionNone  = "none"
	ActionError = "error"
	ActionBatch = "batch"
)

// Task list filters accepted by GET /tasks?filter=.
const (
	FilterAll       = "all"
	FilterToday     = "today"
	FilterOverdue   = "overdue"
	FilterCompleted = "completed"
	FilterPending   = "pending"
)
