package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/asad-creats/taskagent/internal/store"
)

func TestIsOverdueBoundary(t *testing.T) {
	t.Parallel()
	const today = "2025-06-10"
	cases := []struct {
		date      string
		completed bool
		want      bool
	}{
		{"2025-06-09", false, true},
		{"2025-06-10", false, false},
		{"2025-06-11", false, false},
		{"2024-12-31", true, false},
	}
	for _, c := range cases {
		got := IsOverdue(store.Task{Date: c.date, Completed: c.completed}, today)
		assert.Equal(t, c.want, got, "%s completed=%v", c.date, c.completed)
	}
}

func TestCompletionRate(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0, CompletionRate(0, 0))
	assert.Equal(t, 75, CompletionRate(3, 4))
	assert.Equal(t, 67, CompletionRate(2, 3))
	assert.Equal(t, 100, CompletionRate(5, 5))
}

func TestFilterTasks(t *testing.T) {
	t.Parallel()
	const today = "2025-06-10"
	tasks := []store.Task{
		{ID: "1", Date: "2025-06-09"},
		{ID: "2", Date: "2025-06-10"},
		{ID: "3", Date: "2025-06-10", Completed: true},
		{ID: "4", Date: "2025-06-12"},
	}
	ids := func(ts []store.Task) []string {
		out := []string{}
		for _, t := range ts {
			out = append(out, t.ID)
		}
		return out
	}
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(FilterTasks(tasks, FilterAll, today)))
	assert.Equal(t, []string{"3"}, ids(FilterTasks(tasks, FilterCompleted, today)))
	assert.Equal(t, []string{"1", "2", "4"}, ids(FilterTasks(tasks, FilterPending, today)))
	assert.Equal(t, []string{"1"}, ids(FilterTasks(tasks, FilterOverdue, today)))
	assert.Equal(t, []string{"2"}, ids(FilterTasks(tasks, FilterToday, today)))
	assert.Equal(t, FilterAll, NormalizeFilter("someday"))
}

func TestAnalyzePeriods(t *testing.T) {
	t.Parallel()
	const today = "2025-06-10"
	tasks := []store.Task{
		{Date: "2025-05-01", Category: "Work", Completed: true},
		{Date: "2025-06-03", Category: "Work", Completed: true},
		{Date: "2025-06-08", Category: "Home"},
		{Date: "2025-06-10", Category: "Home", Completed: true},
	}

	all := Analyze(tasks, PeriodAll, today)
	assert.Equal(t, Stats{Total: 4, Completed: 3, Pending: 1, Overdue: 1, CompletionRate: 75}, all.Stats)
	assert.Equal(t, CategoryStats{Total: 2, Completed: 2}, all.Categories["Work"])
	assert.Equal(t, []string{
		"👍 Good progress! Keep up the momentum.",
		"⏰ You have 1 overdue task. Prioritize these!",
	}, all.Insights)

	week := Analyze(tasks, PeriodWeek, today)
	assert.Equal(t, 3, week.Stats.Total)

	day := Analyze(tasks, PeriodToday, today)
	assert.Equal(t, 1, day.Stats.Total)
	assert.Equal(t, 100, day.Stats.CompletionRate)

	empty := Analyze(nil, "bogus", today)
	assert.Equal(t, PeriodAll, empty.Period)
	assert.Equal(t, 0, empty.Stats.CompletionRate)
	assert.Equal(t, []string{"📝 No tasks yet. Start by adding your first task!"}, empty.Insights)
}

func TestPrioritizePartition(t *testing.T) {
	t.Parallel()
	const today = "2025-06-10"
	tasks := []store.Task{
		{ID: "1", Date: "2025-06-01"},
		{ID: "2", Date: "2025-06-10"},
		{ID: "3", Date: "2025-06-30"},
		{ID: "4", Date: "2025-06-11"},
		{ID: "5", Date: "2025-06-15"},
		{ID: "6", Date: "2025-06-12"},
		{ID: "7", Date: "2025-06-02", Completed: true},
	}
	r := Prioritize(tasks, today)
	assert.Equal(t, "1 overdue, 1 due today, 4 upcoming", r.Summary)
	if assert.Len(t, r.Priorities, 3) {
		assert.Equal(t, PriorityHigh, r.Priorities[0].Priority)
		assert.Equal(t, PriorityMedium, r.Priorities[1].Priority)
		low := r.Priorities[2]
		assert.Equal(t, PriorityLow, low.Priority)
		var ids []string
		for _, pt := range low.Tasks {
			ids = append(ids, pt.ID)
		}
		assert.Equal(t, []string{"4", "6", "5"}, ids)
	}

	seen := map[string]int{}
	for _, g := range r.Priorities {
		for _, pt := range g.Tasks {
			seen[pt.ID]++
		}
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, id)
	}
	assert.NotContains(t, seen, "7")
}
