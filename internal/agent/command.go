// Package agent turns free-text instructions into task operations: it prompts
// a model for JSON tool calls, extracts them, runs them against a store.Store
// and summarizes the results.
package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Action names a tool in the catalog.
type Action string

const (
	ActionListTasks           Action = "list_tasks"
	ActionCreateTask          Action = "create_task"
	ActionCompleteTask        Action = "complete_task"
	ActionDeleteTask          Action = "delete_task"
	ActionAnalyzeProductivity Action = "analyze_productivity"
	ActionSuggestPriorities   Action = "suggest_priorities"
	ActionGetTaskSuggestions  Action = "get_task_suggestions"
)

// Command is one decoded tool call. The concrete types below are the only implementations.
type Command interface {
	Action() Action
	isCommand()
}

// Filter selects tasks for list_tasks.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterCompleted Filter = "completed"
	FilterPending   Filter = "pending"
	FilterOverdue   Filter = "overdue"
	FilterToday     Filter = "today"
)

// Period selects tasks for analyze_productivity.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodAll   Period = "all"
)

// TaskRef is a task id as sent by a model: a JSON number or string.
type TaskRef string

func (r *TaskRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = TaskRef(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("task id must be a number or string: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*r = TaskRef(strconv.FormatInt(i, 10))
		return nil
	}
	*r = TaskRef(n.String())
	return nil
}

type ListTasks struct {
	Filter Filter `json:"filter,omitempty"`
}

type CreateTask struct {
	Text     string `json:"text"`
	Date     string `json:"date,omitempty"`
	Category string `json:"category,omitempty"`
}

type CompleteTask struct {
	TaskID   TaskRef `json:"taskId,omitempty"`
	TaskText string  `json:"taskText,omitempty"`
}

type DeleteTask struct {
	TaskID   TaskRef `json:"taskId,omitempty"`
	TaskText string  `json:"taskText,omitempty"`
}

type AnalyzeProductivity struct {
	Period Period `json:"period,omitempty"`
}

type SuggestPriorities struct{}

type GetTaskSuggestions struct {
	TaskText string  `json:"taskText"`
	TaskID   TaskRef `json:"taskId,omitempty"`
}

func (ListTasks) Action() Action           { return ActionListTasks }
func (CreateTask) Action() Action          { return ActionCreateTask }
func (CompleteTask) Action() Action        { return ActionCompleteTask }
func (DeleteTask) Action() Action          { return ActionDeleteTask }
func (AnalyzeProductivity) Action() Action { return ActionAnalyzeProductivity }
func (SuggestPriorities) Action() Action   { return ActionSuggestPriorities }
func (GetTaskSuggestions) Action() Action  { return ActionGetTaskSuggestions }

func (ListTasks) isCommand()           {}
func (CreateTask) isCommand()          {}
func (CompleteTask) isCommand()        {}
func (DeleteTask) isCommand()          {}
func (AnalyzeProductivity) isCommand() {}
func (SuggestPriorities) isCommand()   {}
func (GetTaskSuggestions) isCommand()  {}

// decodeCommand builds the Command for action from its raw parameters. ok is
// false for unknown actions or parameters of the wrong shape.
func decodeCommand(action string, params json.RawMessage) (Command, bool) {
	if len(bytes.TrimSpace(params)) == 0 || bytes.Equal(bytes.TrimSpace(params), []byte("null")) {
		params = json.RawMessage("{}")
	}
	var (
		cmd Command
		err error
	)
	switch Action(strings.TrimSpace(action)) {
	case ActionListTasks:
		var c ListTasks
		err = json.Unmarshal(params, &c)
		cmd = c
	case ActionCreateTask:
		var c CreateTask
		err = json.Unmarshal(params, &c)
		cmd = c
	case ActionCompleteTask:
		var c CompleteTask
		err = json.Unmarshal(params, &c)
		cmd = c
	case ActionDeleteTask:
		var c DeleteTask
		err = json.Unmarshal(params, &c)
		cmd = c
	case ActionAnalyzeProductivity:
		var c AnalyzeProductivity
		err = json.Unmarshal(params, &c)
		cmd = c
	case ActionSuggestPriorities:
		cmd = SuggestPriorities{}
	case ActionGetTaskSuggestions:
		var c GetTaskSuggestions
		err = json.Unmarshal(params, &c)
		cmd = c
	default:
		return nil, false
	}
	if err != nil {
		return nil, false
	}
	return cmd, true
}
