package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/asad-creats/taskagent/internal/config"
	"github.com/asad-creats/taskagent/internal/daemon"
)

// statusReport is what `taskagent status` shows; --json prints it as is.
type statusReport struct {
	Running       bool   `json:"running"`
	PID           int    `json:"pid,omitempty"`
	Addr          string `json:"addr,omitempty"`
	APIError      string `json:"api_error,omitempty"`
	Provider      string `json:"provider,omitempty"`
	Model         string `json:"model,omitempty"`
	Store         string `json:"store,omitempty"`
	StoreDegraded bool   `json:"store_degraded,omitempty"`
	Pending       int    `json:"pending"`
	Overdue       int    `json:"overdue"`
}

func newStatusCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the daemon runs, which model and store it uses, and open tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := collectStatus(cmd.Context(), config.MustHomeFrom(cmd.Context()), config.FromContext(cmd.Context()))
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			printStatus(cmd.OutOrStdout(), rep)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the status as JSON")
	return cmd
}

func collectStatus(ctx context.Context, home string, cfg *config.Config) (statusReport, error) {
	st, err := daemon.Status(ctx, home)
	if err != nil || !st.Running {
		return statusReport{}, err
	}
	rep := statusReport{Running: true, PID: st.PID, Addr: st.Addr}
	c, ok := daemonClient(ctx, home, cfg)
	if !ok {
		return rep, nil
	}
	info, err := c.Config(ctx)
	if err != nil {
		rep.APIError = err.Error()
		return rep, nil
	}
	rep.Provider, rep.Model = info.Provider, info.Model
	rep.Store, rep.StoreDegraded = info.Store, info.StoreDegraded
	if list, err := c.ListTasks(ctx, ""); err == nil {
		for _, t := range list.Tasks {
			if t.Completed {
				continue
			}
			rep.Pending++
			if t.IsOverdue {
				rep.Overdue++
			}
		}
	}
	return rep, nil
}

func printStatus(w io.Writer, rep statusReport) {
	if !rep.Running {
		_, _ = fmt.Fprintln(w, mutedStyle.Render("taskagent not running"))
		return
	}
	_, _ = fmt.Fprintf(w, "%s (pid %d, addr %s)\n", okStyle.Render("taskagent running"), rep.PID, rep.Addr)
	if rep.APIError != "" {
		_, _ = fmt.Fprintln(w, warnStyle.Render("API not responding: "+rep.APIError))
		return
	}
	if rep.Provider == "" {
		return
	}
	_, _ = fmt.Fprintf(w, "Model: %s (%s)\n", rep.Model, rep.Provider)
	store := rep.Store
	if rep.StoreDegraded {
		store += " " + warnStyle.Render("(degraded, using local mirror)")
	}
	_, _ = fmt.Fprintf(w, "Store: %s\n", store)
	tasks := fmt.Sprintf("Tasks: %d open", rep.Pending)
	if rep.Overdue > 0 {
		tasks += ", " + overdueStyle.Render(fmt.Sprintf("%d overdue", rep.Overdue))
	}
	_, _ = fmt.Fprintln(w, tasks)
}
