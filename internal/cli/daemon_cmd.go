package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/asad-creats/taskagent/internal/config"
	"github.com/asad-creats/taskagent/internal/daemon"
)

// newDaemonCmd is the process `serve` detaches into. Its stderr is the
// daemon log file.
func newDaemonCmd() *cobra.Command {
	var opts daemon.StartOptions
	cmd := &cobra.Command{
		Use:    "daemon",
		Short:  "Run the daemon in this process (used by serve)",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Home = config.MustHomeFrom(cmd.Context())
			opts.Config = config.FromContext(cmd.Context())
			opts.Logger = slog.Default().With("pid", os.Getpid())

			err := daemon.StartForeground(cmd.Context(), opts)
			if errors.Is(err, context.Canceled) {
				opts.Logger.Info("daemon stopped")
				return nil
			}
			if err != nil {
				opts.Logger.Error("daemon exited", "err", err)
			}
			return err
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.Port, "port", 0, "Port for the web UI and API")
	f.BoolVar(&opts.Dev, "dev", false, "Allow cross-origin requests from a dev server")
	f.StringVar(&opts.PprofAddr, "pprof", "", "Serve pprof on this address (e.g. 127.0.0.1:6060)")
	f.BoolVar(&opts.EnableOtel, "otel", false, "Export OpenTelemetry metrics on /metrics")
	return cmd
}
