package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/asad-creats/taskagent/internal/agent"
	"github.com/asad-creats/taskagent/internal/store"
	"github.com/asad-creats/taskagent/pkg/models"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"tasks"},
		Short:   "Manage tasks without going through the model",
	}
	cmd.AddCommand(newTaskListCmd())
	cmd.AddCommand(newTaskAddCmd())
	cmd.AddCommand(newTaskDoneCmd(true))
	cmd.AddCommand(newTaskDoneCmd(false))
	cmd.AddCommand(newTaskEditCmd())
	cmd.AddCommand(newTaskRmCmd())
	cmd.AddCommand(newTaskStatsCmd())
	cmd.AddCommand(newTaskPrioritiesCmd())
	cmd.AddCommand(newTaskWatchCmd())
	return cmd
}

func newTaskListCmd() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks (filter: all, today, overdue, pending, completed)",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openTasks(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			tasks, err := svc.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			renderTasks(cmd.OutOrStdout(), tasks)
			return nil
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "all", "Filter: all, today, overdue, pending, completed")
	return cmd
}

func newTaskAddCmd() *cobra.Command {
	var date, category, notes string

	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Create a task (due today unless --date is given)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openTasks(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			t, err := svc.Add(cmd.Context(), models.NewTask{
				Text:     strings.Join(args, " "),
				Date:     date,
				Category: category,
				Notes:    notes,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created task %s: %q due %s in %s\n", t.ID, t.Text, agent.HumanDate(t.Date), t.Category)
			return nil
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Category (default General)")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	return cmd
}

// newTaskDoneCmd builds `done` (completed=true) or `undo` (completed=false).
func newTaskDoneCmd(completed bool) *cobra.Command {
	use, short, verb := "done <id>", "Mark a task completed", "Completed"
	if !completed {
		use, short, verb = "undo <id>", "Mark a completed task as pending again", "Reopened"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openTasks(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			t, err := svc.Update(cmd.Context(), args[0], models.TaskUpdate{Completed: &completed})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s task %s: %q\n", verb, t.ID, t.Text)
			return nil
		},
	}
	return cmd
}

func newTaskEditCmd() *cobra.Command {
	var text, date, category, notes string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task's text, date, category or notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var f models.TaskUpdate
			flags := cmd.Flags()
			if flags.Changed("text") {
				f.Text = &text
			}
			if flags.Changed("date") {
				f.Date = &date
			}
			if flags.Changed("category") {
				f.Category = &category
			}
			if flags.Changed("notes") {
				f.Notes = &notes
			}
			if f == (models.TaskUpdate{}) {
				return errors.New("nothing to change: pass --text, --date, --category or --notes")
			}

			svc, err := openTasks(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			t, err := svc.Update(cmd.Context(), args[0], f)
			if err != nil {
				return err
			}
			renderTasks(cmd.OutOrStdout(), []models.Task{t})
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "New text")
	cmd.Flags().StringVarP(&date, "date", "d", "", "New due date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "New category")
	cmd.Flags().StringVar(&notes, "notes", "", "New notes")
	return cmd
}

func newTaskRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openTasks(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			t, err := svc.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s: %q\n", t.ID, t.Text)
			return nil
		},
	}
	return cmd
}

func newTaskStatsCmd() *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show completion stats and insights (period: today, week, all)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openTasks(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			p, err := svc.Stats(cmd.Context(), period)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			s := p.Stats
			_, _ = fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Productivity (%s)", p.Period)))
			_, _ = fmt.Fprintf(out, "Total %d  Completed %d  Pending %d  Overdue %d  Rate %d%%\n",
				s.Total, s.Completed, s.Pending, s.Overdue, s.CompletionRate)
			if len(p.Categories) > 0 {
				names := make([]string, 0, len(p.Categories))
				for name := range p.Categories {
					names = append(names, name)
				}
				sort.Strings(names)
				_, _ = fmt.Fprintln(out)
				for _, name := range names {
					c := p.Categories[name]
					_, _ = fmt.Fprintf(out, "  %-16s %d/%d done\n", name, c.Completed, c.Total)
				}
			}
			if len(p.Insights) > 0 {
				_, _ = fmt.Fprintln(out)
				for _, in := range p.Insights {
					_, _ = fmt.Fprintln(out, "• "+in)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&period, "period", "p", "all", "Period: today, week, all")
	return cmd
}

func newTaskPrioritiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "priorities",
		Short: "Group pending tasks into HIGH, MEDIUM and LOW priority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openTasks(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			tasks, err := svc.List(cmd.Context(), string(agent.FilterAll))
			if err != nil {
				return err
			}
			st := make([]store.Task, 0, len(tasks))
			for _, t := range tasks {
				st = append(st, fromModel(t))
			}
			report := agent.Prioritize(st, agent.Today(time.Now()))

			out := cmd.OutOrStdout()
			for _, g := range report.Priorities {
				style := mutedStyle
				switch g.Priority {
				case agent.PriorityHigh:
					style = overdueStyle
				case agent.PriorityMedium:
					style = warnStyle
				}
				_, _ = fmt.Fprintf(out, "%s %s\n", style.Render(string(g.Priority)), mutedStyle.Render("("+g.Reason+")"))
				for _, t := range g.Tasks {
					_, _ = fmt.Fprintf(out, "  [%s] %s, %s\n", t.ID, t.Text, agent.HumanDate(t.Date))
				}
			}
			_, _ = fmt.Fprintln(out, report.Summary)
			return nil
		},
	}
	return cmd
}
