package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/asad-creats/taskagent/pkg/models"
)

var (
	colorDanger  = lipgloss.Color("#e53935")
	colorSuccess = lipgloss.Color("#8BC34A")
	colorWarning = lipgloss.Color("#FFC107")
	colorMuted   = lipgloss.Color("#8a94a6")

	titleStyle   = lipgloss.NewStyle().Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	doneStyle    = lipgloss.NewStyle().Foreground(colorMuted).Strikethrough(true)
	overdueStyle = lipgloss.NewStyle().Foreground(colorDanger)
	okStyle      = lipgloss.NewStyle().Foreground(colorSuccess)
	warnStyle    = lipgloss.NewStyle().Foreground(colorWarning)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
)

// renderTasks writes tasks as an aligned table. Widths are measured with
// lipgloss so styled cells line up.
func renderTasks(w io.Writer, tasks []models.Task) {
	if len(tasks) == 0 {
		_, _ = fmt.Fprintln(w, mutedStyle.Render("No tasks."))
		return
	}
	headers := []string{"ID", "", "TASK", "DUE", "CATEGORY"}
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		mark, text, due := "○", t.Text, t.Date
		switch {
		case t.Completed:
			mark, text = okStyle.Render("✓"), doneStyle.Render(t.Text)
		case t.IsOverdue:
			due = overdueStyle.Render(t.Date + " overdue")
		}
		rows = append(rows, []string{t.ID, mark, text, due, t.Category})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}
	line := func(cells []string, style *lipgloss.Style) string {
		var sb strings.Builder
		for i, c := range cells {
			if style != nil {
				c = style.Render(c)
			}
			sb.WriteString(c)
			if i < len(cells)-1 {
				sb.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(c)+2))
			}
		}
		return strings.TrimRight(sb.String(), " ")
	}
	_, _ = fmt.Fprintln(w, line(headers, &headerStyle))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, line(row, nil))
	}
}

// markdownRenderer renders assistant replies for a terminal; nil means plain text.
func markdownRenderer(plain bool) *glamour.TermRenderer {
	if plain {
		return nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return nil
	}
	return r
}

func renderReply(r *glamour.TermRenderer, text string) string {
	if r == nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}
