package agent

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/asad-creats/taskagent/internal/store"
)

// Today formats now as a calendar date in its own location.
func Today(now time.Time) string {
	return now.Format(store.DateLayout)
}

// IsOverdue reports whether t is pending with a date strictly before today.
// Both are YYYY-MM-DD, so string order is date order.
func IsOverdue(t store.Task, today string) bool {
	return !t.Completed && t.Date < today
}

// FilterTasks applies a list_tasks filter. Unknown filters behave like FilterAll.
// FilterToday only includes pending tasks.
func FilterTasks(tasks []store.Task, f Filter, today string) []store.Task {
	out := make([]store.Task, 0, len(tasks))
	for _, t := range tasks {
		var keep bool
		switch f {
		case FilterCompleted:
			keep = t.Completed
		case FilterPending:
			keep = !t.Completed
		case FilterOverdue:
			keep = IsOverdue(t, today)
		case FilterToday:
			keep = t.Date == today && !t.Completed
		default:
			keep = true
		}
		if keep {
			out = append(out, t)
		}
	}
	return out
}

// NormalizeFilter maps empty or unknown values to FilterAll.
func NormalizeFilter(f Filter) Filter {
	switch f {
	case FilterCompleted, FilterPending, FilterOverdue, FilterToday:
		return f
	}
	return FilterAll
}

// NormalizePeriod maps empty or unknown values to PeriodAll.
func NormalizePeriod(p Period) Period {
	switch p {
	case PeriodToday, PeriodWeek:
		return p
	}
	return PeriodAll
}

// Analyze computes stats, per-category counts and insights for period.
func Analyze(tasks []store.Task, period Period, today string) Productivity {
	period = NormalizePeriod(period)
	var weekAgo string
	if period == PeriodWeek {
		if d, err := time.Parse(store.DateLayout, today); err == nil {
			weekAgo = d.AddDate(0, 0, -7).Format(store.DateLayout)
		}
	}

	p := Productivity{Period: period, Categories: map[string]CategoryStats{}}
	for _, t := range tasks {
		switch period {
		case PeriodToday:
			if t.Date != today {
				continue
			}
		case PeriodWeek:
			if t.Date < weekAgo {
				continue
			}
		}
		p.Stats.Total++
		c := p.Categories[t.Category]
		c.Total++
		if t.Completed {
			p.Stats.Completed++
			c.Completed++
		}
		if IsOverdue(t, today) {
			p.Stats.Overdue++
		}
		p.Categories[t.Category] = c
	}
	p.Stats.Pending = p.Stats.Total - p.Stats.Completed
	p.Stats.CompletionRate = CompletionRate(p.Stats.Completed, p.Stats.Total)
	p.Insights = Insights(p.Stats)
	return p
}

// CompletionRate is round(completed/total*100), or 0 when total is 0.
func CompletionRate(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// Insights turns stats into short advice lines.
func Insights(s Stats) []string {
	insights := []string{}
	switch {
	case s.CompletionRate >= 80:
		insights = append(insights, "🎉 Excellent productivity! You're crushing your tasks.")
	case s.CompletionRate >= 60:
		insights = append(insights, "👍 Good progress! Keep up the momentum.")
	case s.CompletionRate >= 40:
		insights = append(insights, "📈 Room for improvement. Focus on completing pending tasks.")
	case s.Total > 0:
		insights = append(insights, "⚠️ Low completion rate. Consider breaking tasks into smaller pieces.")
	}
	if s.Overdue > 0 {
		plural := ""
		if s.Overdue > 1 {
			plural = "s"
		}
		insights = append(insights, fmt.Sprintf("⏰ You have %d overdue task%s. Prioritize these!", s.Overdue, plural))
	}
	if s.Total == 0 {
		insights = append(insights, "📝 No tasks yet. Start by adding your first task!")
	}
	return insights
}

// maxUpcoming caps the LOW priority group.
const maxUpcoming = 3

// Prioritize groups pending tasks: overdue is HIGH, due today is
// MEDIUM, and the soonest upcoming ones are LOW. Empty groups are omitted.
func Prioritize(tasks []store.Task, today string) PriorityReport {
	var overdue, dueToday, upcoming []store.Task
	for _, t := range tasks {
		if t.Completed {
			continue
		}
		switch {
		case t.Date < today:
			overdue = append(overdue, t)
		case t.Date == today:
			dueToday = append(dueToday, t)
		default:
			upcoming = append(upcoming, t)
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].Date < upcoming[j].Date })

	r := PriorityReport{Priorities: []PriorityGroup{}}
	if len(overdue) > 0 {
		r.Priorities = append(r.Priorities, group(PriorityHigh, "Overdue tasks", overdue))
	}
	if len(dueToday) > 0 {
		r.Priorities = append(r.Priorities, group(PriorityMedium, "Due today", dueToday))
	}
	if len(upcoming) > 0 {
		r.Priorities = append(r.Priorities, group(PriorityLow, "Upcoming tasks", upcoming[:min(len(upcoming), maxUpcoming)]))
	}
	r.Summary = fmt.Sprintf("%d overdue, %d due today, %d upcoming", len(overdue), len(dueToday), len(upcoming))
	return r
}

func group(p Priority, reason string, tasks []store.Task) PriorityGroup {
	g := PriorityGroup{Priority: p, Reason: reason, Tasks: make([]PriorityTask, 0, len(tasks))}
	for _, t := range tasks {
		g.Tasks = append(g.Tasks, PriorityTask{ID: t.ID, Text: t.Text, Date: t.Date})
	}
	return g
}
