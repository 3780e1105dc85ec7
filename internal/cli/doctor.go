package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/asad-creats/taskagent/internal/backend"
	"github.com/asad-creats/taskagent/internal/config"
	"github.com/asad-creats/taskagent/internal/daemon"
	"github.com/asad-creats/taskagent/internal/llm"
)

func newDoctorCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the task store and model backend are reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			cfg := config.FromContext(cmd.Context())
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			out := cmd.OutOrStdout()
			var problems []string
			check := func(name string, err error, detail string) {
				if err != nil {
					problems = append(problems, fmt.Sprintf("%s: %v", name, err))
					_, _ = fmt.Fprintf(out, "%s %s: %v\n", overdueStyle.Render("✗"), name, err)
					return
				}
				_, _ = fmt.Fprintf(out, "%s %s: %s\n", okStyle.Render("✓"), name, detail)
			}

			st, err := backend.OpenStore(ctx, cfg, home, slog.Default())
			if err == nil {
				tasks, lerr := st.ListTasks(ctx)
				_ = st.Close()
				check("store", lerr, fmt.Sprintf("%s, %d tasks", cfg.Store.Driver, len(tasks)))
			} else {
				check("store", err, "")
			}

			c, err := backend.NewClient(ctx, cfg, slog.Default())
			if err != nil {
				check("model", err, "")
			} else {
				provider, model, hint := llm.Describe(c)
				if models := c.ListModels(ctx); len(models) == 0 {
					check("model", fmt.Errorf("%s has no models available. %s", provider, hint), "")
				} else {
					check("model", nil, fmt.Sprintf("%s %s (%d available)", provider, model, len(models)))
				}
			}

			if s, _ := daemon.Status(cmd.Context(), home); s.Running {
				_, _ = fmt.Fprintf(out, "%s daemon: running (pid %d, addr %s)\n", okStyle.Render("✓"), s.PID, s.Addr)
			} else {
				_, _ = fmt.Fprintf(out, "%s daemon: not running\n", mutedStyle.Render("-"))
			}

			if len(problems) > 0 {
				return errors.New("doctor checks failed")
			}
			_, _ = fmt.Fprintln(out, "ok")
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Time allowed for the backend checks")
	return cmd
}
