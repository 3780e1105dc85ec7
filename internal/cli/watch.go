package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/asad-creats/taskagent/internal/config"
	"github.com/asad-creats/taskagent/pkg/client"
)

func newTaskWatchCmd() *cobra.Command {
	var (
		since uint64
		count int
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print task changes as the daemon publishes them",
		Long: "Follows the daemon's event stream. Changes made from the web UI, chat or " +
			"another terminal show up here. Needs a running daemon.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, ok := daemonClient(ctx, config.MustHomeFrom(ctx), config.FromContext(ctx))
			if !ok {
				return errors.New("task watch needs a running daemon; start one with `taskagent serve`")
			}
			out := cmd.OutOrStdout()
			seen := 0
			err := c.Events(ctx, since, func(ev client.Event) error {
				if ev.Type != "task_update" {
					return nil
				}
				if err := printTaskEvent(out, ev); err != nil {
					return err
				}
				seen++
				if count > 0 && seen >= count {
					return client.ErrStopEvents
				}
				return nil
			})
			if errors.Is(err, ctx.Err()) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().Uint64Var(&since, "since", 0, "Replay buffered events after this event id")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Exit after this many task events (0 follows forever)")
	return cmd
}

func printTaskEvent(w io.Writer, ev client.Event) error {
	te, err := ev.TaskUpdate()
	if err != nil {
		return fmt.Errorf("event %d: %w", ev.ID, err)
	}
	stamp := mutedStyle.Render(time.Now().Format("15:04:05"))
	if te.Task == nil {
		_, err = fmt.Fprintf(w, "%s #%d %s\n", stamp, ev.ID, te.Action)
		return err
	}
	text := te.Task.Text
	if te.Task.Completed {
		text = doneStyle.Render(text)
	}
	_, err = fmt.Fprintf(w, "%s #%d %-8s %s %s (%s)\n", stamp, ev.ID, te.Action, te.Task.ID, text, te.Task.Date)
	return err
}
