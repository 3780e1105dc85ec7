package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/asad-creats/taskagent/internal/config"
	"github.com/asad-creats/taskagent/internal/daemon"
)

func newStopCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running taskagent daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			res, err := daemon.Stop(cmd.Context(), home, timeout)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case !res.Stopped:
				_, _ = fmt.Fprintln(out, mutedStyle.Render("taskagent is not running"))
			case res.Forced:
				_, _ = fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("Killed taskagent (pid %d) after %s without a clean exit", res.PID, timeout)))
			default:
				_, _ = fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("Stopped taskagent (pid %d)", res.PID)))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "How long to wait for a clean shutdown before killing")
	return cmd
}
