package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/asad-creats/taskagent/internal/store"
)

// HumanDate renders YYYY-MM-DD as "Jan 2, 2006", or returns the input unchanged.
func HumanDate(date string) string {
	d, err := time.Parse(store.DateLayout, date)
	if err != nil {
		return date
	}
	return d.Format("Jan 2, 2006")
}

// FormatResult renders r as chat text.
func FormatResult(r ToolResult) string {
	if !r.Success {
		if r.Error == "" {
			return "❌ Sorry, that didn't work."
		}
		return "❌ " + r.Error
	}
	if r.Message != "" {
		return r.Message
	}

	var b strings.Builder
	switch {
	case r.Productivity != nil:
		s := r.Productivity.Stats
		b.WriteString("📊 Productivity Summary:\n\n")
		fmt.Fprintf(&b, "• Total: %d\n", s.Total)
		fmt.Fprintf(&b, "• Completed: %d\n", s.Completed)
		fmt.Fprintf(&b, "• Pending: %d\n", s.Pending)
		fmt.Fprintf(&b, "• Overdue: %d\n", s.Overdue)
		fmt.Fprintf(&b, "• Completion Rate: %d%%\n", s.CompletionRate)
		if len(r.Insights) > 0 {
			b.WriteString("\n" + strings.Join(r.Insights, "\n"))
		}
	case r.PriorityReport != nil:
		b.WriteString("🎯 Priority Recommendations:\n\n")
		if len(r.Priorities) == 0 {
			b.WriteString("You have no pending tasks! 🎉")
			break
		}
		for _, g := range r.Priorities {
			fmt.Fprintf(&b, "**%s PRIORITY** (%s):\n", g.Priority, g.Reason)
			for _, t := range g.Tasks {
				fmt.Fprintf(&b, "  • %s (%s)\n", t.Text, t.Date)
			}
			b.WriteString("\n")
		}
	case r.TaskList != nil:
		fmt.Fprintf(&b, "📝 Task List (%d total):\n\n", r.Count)
		if r.Count == 0 {
			b.WriteString("No tasks found. Add your first task to get started!")
			break
		}
		for _, t := range r.Tasks {
			status := "⬜"
			if t.Completed {
				status = "✅"
			}
			overdue := ""
			if t.IsOverdue {
				overdue = " ⚠️ OVERDUE"
			}
			fmt.Fprintf(&b, "%s %s\n   %s • %s%s\n\n", status, t.Text, t.Category, t.Date, overdue)
		}
	case r.Suggestion != nil:
		return r.Suggestions
	default:
		out, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return string(r.Action)
		}
		return string(out)
	}
	return strings.TrimRight(b.String(), "\n")
}
