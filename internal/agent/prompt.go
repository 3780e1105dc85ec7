package agent

import (
	"fmt"
	"strings"

	"github.com/asad-creats/taskagent/internal/llm"
	"github.com/asad-creats/taskagent/internal/store"
)

// maxListed caps how many tasks are listed in the system prompt.
const maxListed = 50

// SystemPrompt renders the instructions sent ahead of every query: the
// JSON-only directive, the tool catalog, worked examples and a snapshot of
// tasks as of today.
func SystemPrompt(tasks []store.Task, today string) string {
	return systemPrompt(tasks, true, today)
}

// systemPrompt renders the prompt; listed is false when the task snapshot
// could not be read, so no count is claimed.
func systemPrompt(tasks []store.Task, listed bool, today string) string {
	var b strings.Builder
	b.WriteString("You are a task management AI assistant. You MUST use the available tools to actually perform actions.\n\n")
	if listed {
		fmt.Fprintf(&b, "Current tasks: %d total\n", len(tasks))
	} else {
		b.WriteString("Current tasks: unavailable (the task list could not be read)\n")
	}
	fmt.Fprintf(&b, "Today's date: %s\n", today)
	writeTasks(&b, tasks, today)

	b.WriteString("\nAVAILABLE TOOLS:\n")
	for _, t := range Catalog {
		writeTool(&b, t)
	}

	b.WriteString(`
IMPORTANT RULES:
1. When user asks you to DO something (add tasks, show tasks, etc), you MUST respond with ONLY a JSON tool call
2. DO NOT explain what you will do - JUST DO IT by returning the JSON
3. When responding with JSON, use this EXACT format with NO extra text:

For single action:
{"action":"tool_name","parameters":{...}}

For multiple tasks (like "add 2 tasks"):
`)
	fmt.Fprintf(&b, `[{"action":"create_task","parameters":{"text":"task 1","date":%[1]q}},{"action":"create_task","parameters":{"text":"task 2","date":%[1]q}}]`+"\n", today)

	b.WriteString("\nEXAMPLES:\n")
	examples := []struct{ user, reply string }{
		{"add a task to buy milk", fmt.Sprintf(`{"action":"create_task","parameters":{"text":"buy milk","date":%q,"category":"Shopping"}}`, today)},
		{"show my tasks", `{"action":"list_tasks","parameters":{"filter":"all"}}`},
		{"suggest priorities", `{"action":"suggest_priorities","parameters":{}}`},
		{"add tasks to learn python and practice coding", fmt.Sprintf(`[{"action":"create_task","parameters":{"text":"learn python","date":%[1]q}},{"action":"create_task","parameters":{"text":"practice coding","date":%[1]q}}]`, today)},
		{"complete buy milk", `{"action":"complete_task","parameters":{"taskText":"buy milk"}}`},
		{"delete the grocery task", `{"action":"delete_task","parameters":{"taskText":"grocery"}}`},
		{"how productive have I been this week?", `{"action":"analyze_productivity","parameters":{"period":"week"}}`},
		{"help me with learning python", `{"action":"get_task_suggestions","parameters":{"taskText":"learning python"}}`},
	}
	for _, ex := range examples {
		fmt.Fprintf(&b, "User: %q\nYou: %s\n\n", ex.user, ex.reply)
	}
	b.WriteString(`ONLY respond in plain English if the user is making casual conversation (like "hello" or "how are you").`)
	return b.String()
}

func writeTasks(b *strings.Builder, tasks []store.Task, today string) {
	if len(tasks) == 0 {
		return
	}
	b.WriteString("\nTASKS:\n")
	for i, t := range tasks {
		if i == maxListed {
			fmt.Fprintf(b, "... and %d more\n", len(tasks)-maxListed)
			break
		}
		status := "pending"
		switch {
		case t.Completed:
			status = "completed"
		case IsOverdue(t, today):
			status = "overdue"
		}
		fmt.Fprintf(b, "- [%s] %s (due %s, %s, %s)\n", t.ID, t.Text, t.Date, t.Category, status)
	}
}

func writeTool(b *strings.Builder, t Tool) {
	fmt.Fprintf(b, "- %s: %s\n", t.Name, t.Description)
	for _, p := range t.Params {
		req := "optional"
		if p.Required {
			req = "required"
		}
		fmt.Fprintf(b, "    %s (%s, %s): %s", p.Name, p.Type, req, p.Description)
		if len(p.Enum) > 0 {
			fmt.Fprintf(b, " [%s]", strings.Join(p.Enum, ", "))
		}
		b.WriteString("\n")
	}
}

// BuildMessages assembles system prompt, the last limit history turns and
// the user message. limit <= 0 sends no history.
func BuildMessages(system string, history []llm.Message, limit int, userMessage string) []llm.Message {
	if limit < 0 {
		limit = 0
	}
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: system})
	msgs = append(msgs, history...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: userMessage})
	return msgs
}
